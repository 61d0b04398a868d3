package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"herdwatch/pkg/logx"
)

// Watch reloads the config file on change and calls onChange with each
// successfully parsed config. A broken edit is logged and skipped; the
// previous config stays in effect. Watch blocks until ctx is done.
//
// The parent directory is watched, not the file itself, because many
// editors replace files via rename (which drops a direct file watch).
func Watch(ctx context.Context, path string, log logx.Logger, onChange func(Config)) error {
	if log.IsZero() {
		log = logx.Nop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}

	// Debounce to avoid reloading on partial writes.
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			cfg, err := Load(path)
			if err != nil {
				log.Warn("config reload failed; keeping previous config", logx.String("path", path), logx.Err(err))
				return
			}
			log.Info("config reloaded", logx.String("path", path))
			onChange(cfg)
		})
	}

	base := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timerMu.Unlock()
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", logx.Err(err))
		}
	}
}
