// Command bot runs the Telegram side: the admin command surface and
// the delivery loop that drains unsent notifications to their
// recipients.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"herdwatch/internal/config"
	"herdwatch/internal/delivery"
	"herdwatch/internal/keepalive"
	"herdwatch/internal/notification"
	"herdwatch/internal/runtime/supervisor"
	"herdwatch/internal/schedule"
	"herdwatch/internal/storage"
	"herdwatch/internal/transport/telegram"
	"herdwatch/internal/types"
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
	log := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "bot"))

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return err
	}
	defer store.Close()

	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return err
	}
	telegram.NewHandlers(store, log.With(logx.String("comp", "handlers"))).Register(adapter)

	// Camera state changes go to every approved user; swap this policy
	// for per-camera subscriptions if a deployment needs them.
	resolver := notification.Resolver{
		Directory: store,
		CameraPolicy: func(ctx context.Context, cameraID uuid.UUID) ([]int64, error) {
			return store.UserIDs(ctx, types.StatusApprovedUser)
		},
	}
	pipe := delivery.New(store, adapter, resolver, cfg.Delivery.RatePerSec,
		log.With(logx.String("comp", "delivery")))

	ka := keepalive.New(cfg.KeepaliveEnabled, log)

	c := schedule.New(log)
	c.Schedule(cron.Every(cfg.Delivery.Tick), cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		ka.Ping()
		if _, err := pipe.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("delivery run failed", logx.Err(err))
		}
		ka.Ping()
	}))

	sup := supervisor.New(ctx, log)
	sup.Go("telegram.poll", adapter.Run)
	sup.Go("config.watch", func(ctx context.Context) error {
		return config.Watch(ctx, cfgPath, log, func(nc config.Config) {
			pipe.Apply(nc.Delivery.RatePerSec)
		})
	})

	c.Start()
	ka.Ready()
	log.Info("bot started", logx.Duration("delivery_tick", cfg.Delivery.Tick))

	<-ctx.Done()
	log.Info("shutting down")

	// Finish the in-flight delivery run before exiting.
	<-c.Stop().Done()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	_ = sup.Wait(waitCtx)
	return nil
}
