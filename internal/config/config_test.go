package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Data.Dir == "" {
		t.Error("expected a default data dir")
	}
	if cfg.Sync.Interval != 15*time.Minute {
		t.Errorf("expected 15m sync interval, got %v", cfg.Sync.Interval)
	}
	if cfg.Sync.DailyInterval != 24*time.Hour {
		t.Errorf("expected 24h daily interval, got %v", cfg.Sync.DailyInterval)
	}
	if cfg.Dashboard.Enabled {
		t.Error("expected dashboard disabled by default")
	}
	if cfg.Dashboard.Port != 8090 {
		t.Errorf("expected default dashboard port, got %d", cfg.Dashboard.Port)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rentora.yaml")
	content := `
data:
  dir: /tmp/rentora-test
remote:
  base_url: https://api.example.com
  api_key: key-123
  timeout: 30s
sync:
  interval: 5m
dashboard:
  enabled: true
  port: 9100
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Remote.BaseURL != "https://api.example.com" || cfg.Remote.APIKey != "key-123" {
		t.Errorf("unexpected remote config: %+v", cfg.Remote)
	}
	if cfg.Remote.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Remote.Timeout)
	}
	if cfg.Sync.Interval != 5*time.Minute {
		t.Errorf("expected 5m interval, got %v", cfg.Sync.Interval)
	}
	if !cfg.Dashboard.Enabled || cfg.Dashboard.Port != 9100 {
		t.Errorf("unexpected dashboard config: %+v", cfg.Dashboard)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Log.Level)
	}
	// Unset keys keep their defaults.
	if cfg.Sync.DailyInterval != 24*time.Hour {
		t.Errorf("expected default daily interval, got %v", cfg.Sync.DailyInterval)
	}

	if got := cfg.DatabasePath(); got != filepath.Join("/tmp/rentora-test", "rentora.db") {
		t.Errorf("unexpected database path %q", got)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RENTORA_REMOTE_BASE_URL", "https://env.example.com")
	t.Setenv("RENTORA_LOG_LEVEL", "warn")

	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Remote.BaseURL != "https://env.example.com" {
		t.Errorf("expected env override, got %q", cfg.Remote.BaseURL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected env log level, got %q", cfg.Log.Level)
	}
}
