// Package delivery drains unsent notifications to their recipients.
//
// Guarantees: at-least-once per notification, best-effort per
// recipient. A notification is acknowledged once every recipient has
// been attempted, whatever the individual outcomes; a crash before the
// acknowledgement re-delivers to all recipients on the next run, so
// recipients must tolerate duplicates.
package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"herdwatch/internal/notification"
	"herdwatch/pkg/logx"
)

// NotificationStore is the pipeline-side slice of the notification
// store. Unsent returns notifications ordered by creation time, oldest
// first. MarkSent is idempotent.
type NotificationStore interface {
	Unsent(ctx context.Context) ([]notification.Record, error)
	MarkSent(ctx context.Context, id uuid.UUID) (notification.Record, error)
}

// Sender pushes one rendered message to one recipient. Failures are
// returned, never thrown past the pipeline.
type Sender interface {
	Send(ctx context.Context, recipientID int64, text string, buttons [][]notification.Button) error
}

type Stats struct {
	Notifications int // notifications acknowledged this run
	Unresolved    int // notifications that failed content/recipient resolution
	Recipients    int // individual sends attempted
	Failed        int // individual sends that failed
}

type Pipeline struct {
	store    NotificationStore
	sender   Sender
	resolver notification.Resolver
	log      logx.Logger

	mu      sync.Mutex
	limiter *rate.Limiter
}

func New(store NotificationStore, sender Sender, resolver notification.Resolver, ratePerSec int, log logx.Logger) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	return &Pipeline{
		store:    store,
		sender:   sender,
		resolver: resolver,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:      log,
	}
}

// Apply swaps the send rate limit. Safe to call while a run is in
// progress; the new limit takes effect from the next send.
func (p *Pipeline) Apply(ratePerSec int) {
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	p.mu.Lock()
	p.limiter = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	p.mu.Unlock()
}

func (p *Pipeline) currentLimiter() *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limiter
}

// RunOnce fetches every unsent notification, resolves each against the
// current directory and attempts delivery to all its recipients.
//
// A resolution failure (e.g. an undefined status transition) fails the
// single notification loudly; later notifications still run. A send
// failure is caught per recipient. Both leave the notification subject
// to the usual rules: unresolved notifications stay unsent, attempted
// ones are marked sent regardless of per-recipient outcomes.
func (p *Pipeline) RunOnce(ctx context.Context) (Stats, error) {
	records, err := p.store.Unsent(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("fetch unsent notifications: %w", err)
	}

	var st Stats
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		d, err := notification.Resolve(ctx, rec, p.resolver)
		if err != nil {
			st.Unresolved++
			p.log.Error("notification resolution failed", logx.String("notification", rec.ID.String()), logx.Err(err))
			continue
		}

		for _, recipient := range d.Recipients {
			st.Recipients++
			if err := p.currentLimiter().Wait(ctx); err != nil {
				return st, err
			}
			if err := p.sender.Send(ctx, recipient, d.Text, d.Buttons); err != nil {
				st.Failed++
				p.log.Warn("notification send failed",
					logx.String("notification", rec.ID.String()),
					logx.Int64("recipient", recipient),
					logx.Err(err),
				)
			}
		}

		if _, err := p.store.MarkSent(ctx, rec.ID); err != nil {
			// The notification stays unsent and will be re-delivered
			// on the next run.
			p.log.Error("mark sent failed", logx.String("notification", rec.ID.String()), logx.Err(err))
			continue
		}
		st.Notifications++
	}

	if st.Notifications > 0 || st.Failed > 0 || st.Unresolved > 0 {
		p.log.Info("delivery run finished",
			logx.Int("notifications", st.Notifications),
			logx.Int("unresolved", st.Unresolved),
			logx.Int("recipients", st.Recipients),
			logx.Int("failed", st.Failed),
		)
	}
	return st, nil
}
