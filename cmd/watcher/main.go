// Command watcher runs the camera watcher pool: it reconciles per-camera
// watchers against the active roster and turns significant herd-state
// changes into notifications for the bot process to deliver.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"herdwatch/internal/config"
	"herdwatch/internal/keepalive"
	"herdwatch/internal/runtime/supervisor"
	"herdwatch/internal/schedule"
	"herdwatch/internal/storage"
	"herdwatch/internal/types"
	"herdwatch/internal/watch"
	"herdwatch/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "watcher"))

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return err
	}
	defer store.Close()

	pool := watch.NewPool(store, func(cam types.Camera, now time.Time) *watch.Watcher {
		return watch.NewWatcher(cam, store, store, log, now)
	}, log.With(logx.String("comp", "pool")))

	// Hot-reloadable config: the loop reads the current value per tick.
	var current atomic.Value
	current.Store(cfg)

	ka := keepalive.New(cfg.KeepaliveEnabled, log)

	c := schedule.New(log)
	c.Schedule(cron.Every(cfg.Watcher.Tick), cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		ka.Ping()
		cc := current.Load().(config.Config)
		if err := pool.Tick(ctx, time.Now(), cc.Watcher.MinInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("watcher tick failed", logx.Err(err))
		}
		ka.Ping()
	}))

	sup := supervisor.New(ctx, log)
	sup.Go("config.watch", func(ctx context.Context) error {
		return config.Watch(ctx, cfgPath, log, func(nc config.Config) {
			current.Store(nc)
		})
	})

	c.Start()
	ka.Ready()
	log.Info("watcher started",
		logx.Duration("tick", cfg.Watcher.Tick),
		logx.Duration("min_interval", cfg.Watcher.MinInterval),
	)

	<-ctx.Done()
	log.Info("shutting down")

	// Stop() returns a context that is done once the running tick
	// finishes; never abort a tick mid-camera.
	<-c.Stop().Done()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	_ = sup.Wait(waitCtx)
	return nil
}
