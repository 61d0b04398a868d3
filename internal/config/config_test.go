package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte("telegram:\n  token: abc\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Telegram.Token != "abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.PollTimeout != 10*time.Second {
		t.Fatalf("poll timeout default = %v", cfg.Telegram.PollTimeout)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("level default = %q", cfg.Logging.Level)
	}
	if cfg.Storage.Path != "./herdwatch.db" {
		t.Fatalf("storage path default = %q", cfg.Storage.Path)
	}
	if cfg.Watcher.Tick != 10*time.Second || cfg.Watcher.MinInterval != 5*time.Minute {
		t.Fatalf("watcher defaults = %v / %v", cfg.Watcher.Tick, cfg.Watcher.MinInterval)
	}
	if cfg.Delivery.Tick != 5*time.Second || cfg.Delivery.RatePerSec != 10 {
		t.Fatalf("delivery defaults = %v / %d", cfg.Delivery.Tick, cfg.Delivery.RatePerSec)
	}
	if cfg.KeepaliveEnabled {
		t.Fatal("keepalive must default to off")
	}
}

func TestParseExplicitValues(t *testing.T) {
	doc := `
telegram:
  token: "  xyz  "
  poll_timeout: 30s
logging:
  level: debug
storage:
  path: /var/lib/herdwatch/db.sqlite
  busy_timeout: 2s
watcher:
  tick: 5s
  min_interval: 10m
delivery:
  tick: 1s
  rate_per_sec: 25
keepalive:
  enabled: true
`
	cfg, err := parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Telegram.Token != "xyz" {
		t.Fatalf("token not trimmed: %q", cfg.Telegram.Token)
	}
	if cfg.Watcher.MinInterval != 10*time.Minute {
		t.Fatalf("min interval = %v", cfg.Watcher.MinInterval)
	}
	if cfg.Delivery.RatePerSec != 25 {
		t.Fatalf("rate = %d", cfg.Delivery.RatePerSec)
	}
	if !cfg.KeepaliveEnabled {
		t.Fatal("keepalive not enabled")
	}
}

func TestParseInvalidDuration(t *testing.T) {
	_, err := parse([]byte("watcher:\n  tick: soon\n  min_interval: later\n"))
	if err == nil {
		t.Fatal("expected an error for invalid durations")
	}
	// Both offending fields are reported, not just the first.
	msg := err.Error()
	if !strings.Contains(msg, "watcher.tick") || !strings.Contains(msg, "watcher.min_interval") {
		t.Fatalf("error should name both fields, got %q", msg)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := parse([]byte("telegram:\n  tokne: abc\n")); err == nil {
		t.Fatal("expected misspelled key to be rejected")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
