// Package watch detects meaningful herd-state changes per camera and
// keeps the set of live watchers synchronized with the active roster.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"herdwatch/internal/notification"
	"herdwatch/internal/types"
	"herdwatch/pkg/logx"
)

// SampleSource provides the analyses produced for a camera within a
// trailing window ending now. An empty result is valid.
type SampleSource interface {
	Analyses(ctx context.Context, cameraID uuid.UUID, since time.Duration) ([]types.Analysis, error)
}

// NotificationStore is the watcher-side slice of the notification
// store.
type NotificationStore interface {
	Add(ctx context.Context, n notification.Notification) error
}

// Watcher owns one camera's check cadence and last-known aggregated
// state. It is not safe for concurrent use; the pool serializes all
// checks for a camera.
type Watcher struct {
	camera  types.Camera
	samples SampleSource
	store   NotificationStore
	log     logx.Logger

	lastChecked time.Time
	last        *types.State
}

func NewWatcher(camera types.Camera, samples SampleSource, store NotificationStore, log logx.Logger, now time.Time) *Watcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{
		camera:      camera,
		samples:     samples,
		store:       store,
		log:         log.With(logx.String("camera", camera.ID.String())),
		lastChecked: now,
	}
}

// Check aggregates the analyses produced since the last check and
// emits one state-change notification if any counter moved.
//
// The baseline (lastChecked, last) is committed only after the fetch
// and the emit have succeeded, so a failed check retries the same
// window on the next tick instead of silently skipping it. A window
// with no analyses resets the baseline and emits nothing.
func (w *Watcher) Check(ctx context.Context, now time.Time, minInterval time.Duration) error {
	elapsed := now.Sub(w.lastChecked)
	if elapsed < minInterval {
		return nil
	}

	analyses, err := w.samples.Analyses(ctx, w.camera.ID, elapsed)
	if err != nil {
		return fmt.Errorf("fetch analyses for camera %s: %w", w.camera.ID, err)
	}
	w.log.Debug("analyses fetched", logx.Int("count", len(analyses)), logx.Duration("window", elapsed))

	state, ok := Aggregate(analyses)
	if !ok {
		// Data gap: reset the comparison baseline rather than
		// treating it as a notification-worthy change.
		w.last = nil
		w.lastChecked = now
		return nil
	}

	if w.last != nil && !w.last.Equal(state) {
		w.log.Info("herd state changed",
			logx.Int("prev_cows", w.last.Cows), logx.Int("prev_calves", w.last.Calves),
			logx.Int("cows", state.Cows), logx.Int("calves", state.Calves),
		)
		n := &notification.CameraStateChange{
			CameraID: w.camera.ID,
			Address:  w.camera.Address,
			Previous: *w.last,
			New:      state,
		}
		if err := w.store.Add(ctx, n); err != nil {
			return fmt.Errorf("emit state-change notification for camera %s: %w", w.camera.ID, err)
		}
	}

	w.last = &state
	w.lastChecked = now
	return nil
}
