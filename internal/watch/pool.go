package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"herdwatch/internal/types"
	"herdwatch/pkg/logx"
)

// Roster is the externally owned set of currently active cameras. No
// camera appears twice.
type Roster interface {
	ActiveCameras(ctx context.Context) ([]types.Camera, error)
}

// WatcherFactory builds a fresh watcher for a camera that just entered
// the roster.
type WatcherFactory func(camera types.Camera, now time.Time) *Watcher

// Pool keeps the live watcher set in lockstep with the active roster
// and drives each watcher's periodic check.
//
// The pool is the sole owner of its watcher map: lookups and mutations
// happen only inside Tick, and ticks are serialized by the caller's
// scheduler. Removing a camera drops its history; re-entry starts with
// a fresh baseline.
type Pool struct {
	roster     Roster
	newWatcher WatcherFactory
	log        logx.Logger

	watchers map[uuid.UUID]*Watcher
}

func NewPool(roster Roster, factory WatcherFactory, log logx.Logger) *Pool {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pool{
		roster:     roster,
		newWatcher: factory,
		log:        log,
		watchers:   map[uuid.UUID]*Watcher{},
	}
}

// Tick reconciles the watcher set against the roster, then checks each
// live camera. A failing camera check is logged and counted but never
// aborts the tick; only a roster fetch failure (or cancellation) does.
func (p *Pool) Tick(ctx context.Context, now time.Time, minInterval time.Duration) error {
	departed := make(map[uuid.UUID]struct{}, len(p.watchers))
	for id := range p.watchers {
		departed[id] = struct{}{}
	}

	cameras, err := p.roster.ActiveCameras(ctx)
	if err != nil {
		return fmt.Errorf("fetch active cameras: %w", err)
	}
	p.log.Debug("roster fetched", logx.Int("active", len(cameras)))

	var failed int
	for _, cam := range cameras {
		if err := ctx.Err(); err != nil {
			return err
		}
		w, ok := p.watchers[cam.ID]
		if !ok {
			p.log.Info("watcher created", logx.String("camera", cam.ID.String()), logx.String("address", cam.Address))
			w = p.newWatcher(cam, now)
			p.watchers[cam.ID] = w
		}
		delete(departed, cam.ID)

		if err := w.Check(ctx, now, minInterval); err != nil {
			failed++
			p.log.Error("camera check failed", logx.String("camera", cam.ID.String()), logx.Err(err))
		}
	}

	for id := range departed {
		p.log.Info("watcher removed", logx.String("camera", id.String()))
		delete(p.watchers, id)
	}

	if failed > 0 {
		p.log.Warn("tick finished with failures", logx.Int("failed", failed), logx.Int("cameras", len(cameras)))
	}
	return nil
}

// Size reports the number of live watchers.
func (p *Pool) Size() int { return len(p.watchers) }
