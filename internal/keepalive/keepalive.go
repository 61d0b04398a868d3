// Package keepalive pings the systemd watchdog from the periodic
// loops, so a hung loop gets the process restarted by the service
// manager instead of silently stalling.
package keepalive

import (
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"herdwatch/pkg/logx"
)

// Pinger rate-limits watchdog notifications to half the interval
// systemd advertises. The zero-value-like disabled pinger is returned
// when the watchdog is off; Ping is then a no-op.
type Pinger struct {
	enabled  bool
	interval time.Duration
	log      logx.Logger

	mu   sync.Mutex
	last time.Time
}

func New(enabled bool, log logx.Logger) *Pinger {
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Pinger{log: log}
	if !enabled {
		return p
	}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		log.Debug("systemd watchdog not available", logx.Err(err))
		return p
	}
	p.enabled = true
	p.interval = interval / 2
	log.Info("systemd watchdog enabled", logx.Duration("ping_interval", p.interval))
	return p
}

// Ready tells the service manager that startup is complete.
func (p *Pinger) Ready() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
}

// Ping notifies the watchdog, at most once per interval.
func (p *Pinger) Ping() {
	if p == nil || !p.enabled {
		return
	}
	now := time.Now()
	p.mu.Lock()
	if now.Sub(p.last) < p.interval {
		p.mu.Unlock()
		return
	}
	p.last = now
	p.mu.Unlock()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
		p.log.Warn("watchdog ping failed", logx.Err(err))
	}
}
