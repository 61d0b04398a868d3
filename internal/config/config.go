// Package config loads and watches the YAML configuration shared by
// the watcher and the bot processes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// raw mirrors the YAML file. Durations are Go duration strings
// (e.g. "500ms", "10s", "5m").
type raw struct {
	Telegram struct {
		Token       string `yaml:"token"`
		PollTimeout string `yaml:"poll_timeout"`
	} `yaml:"telegram"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Storage struct {
		Path        string `yaml:"path"`
		BusyTimeout string `yaml:"busy_timeout"`
	} `yaml:"storage"`
	Watcher struct {
		Tick        string `yaml:"tick"`
		MinInterval string `yaml:"min_interval"`
	} `yaml:"watcher"`
	Delivery struct {
		Tick       string `yaml:"tick"`
		RatePerSec int    `yaml:"rate_per_sec"`
	} `yaml:"delivery"`
	Keepalive struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"keepalive"`
}

type Config struct {
	Telegram TelegramConfig
	Logging  LoggingConfig
	Storage  StorageConfig
	Watcher  WatcherConfig
	Delivery DeliveryConfig

	KeepaliveEnabled bool
}

type TelegramConfig struct {
	Token       string
	PollTimeout time.Duration
}

type LoggingConfig struct {
	Level string
}

type StorageConfig struct {
	Path        string
	BusyTimeout time.Duration
}

type WatcherConfig struct {
	// Tick is the pool loop period; MinInterval is the per-camera
	// minimum elapsed time between two checks.
	Tick        time.Duration
	MinInterval time.Duration
}

type DeliveryConfig struct {
	Tick       time.Duration
	RatePerSec int
}

// Load reads and validates the config file. Unknown keys are rejected
// so typos fail loudly instead of silently using defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return parse(b)
}

func parse(b []byte) (Config, error) {
	var r raw
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	var errs []error
	dur := func(path, s string, def time.Duration) time.Duration {
		d, err := parseDuration(path, s, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	cfg.Telegram.Token = strings.TrimSpace(r.Telegram.Token)
	cfg.Telegram.PollTimeout = dur("telegram.poll_timeout", r.Telegram.PollTimeout, 10*time.Second)
	cfg.Logging.Level = strings.TrimSpace(r.Logging.Level)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Storage.Path = strings.TrimSpace(r.Storage.Path)
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "./herdwatch.db"
	}
	cfg.Storage.BusyTimeout = dur("storage.busy_timeout", r.Storage.BusyTimeout, 5*time.Second)
	cfg.Watcher.Tick = dur("watcher.tick", r.Watcher.Tick, 10*time.Second)
	cfg.Watcher.MinInterval = dur("watcher.min_interval", r.Watcher.MinInterval, 5*time.Minute)
	cfg.Delivery.Tick = dur("delivery.tick", r.Delivery.Tick, 5*time.Second)
	cfg.Delivery.RatePerSec = r.Delivery.RatePerSec
	if cfg.Delivery.RatePerSec <= 0 {
		cfg.Delivery.RatePerSec = 10
	}
	cfg.KeepaliveEnabled = r.Keepalive.Enabled

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func parseDuration(path, s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, s, err)
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
