package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commodash.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"REACT_APP_BACKEND_URL", "COMMODASH_API_URL", "COMMODASH_POLL_INTERVAL",
		"COMMODASH_RATE_LIMIT", "COMMODASH_CACHE_PATH", "COMMODASH_ARCHIVE_DIR", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api:
  base_url: "https://dash.example.com"
  timeout: 5s
  rate_limit_per_min: 120
poll:
  interval: 10s
views:
  default_symbol: "WTI"
  history_days: 90
  forecast_days: 7
  news_limit: 20
storage:
  cache_path: "/tmp/commodash/cache.db"
  archive_dir: "/tmp/commodash/ticks"
server:
  host: "0.0.0.0"
  port: 8080
  grpc_port: 9191
logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- API --
	if cfg.API.BaseURL != "https://dash.example.com" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://dash.example.com")
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 5*time.Second)
	}
	if cfg.API.RateLimitPerMin != 120 {
		t.Errorf("API.RateLimitPerMin = %d, want %d", cfg.API.RateLimitPerMin, 120)
	}

	// -- Poll / Views --
	if cfg.Poll.Interval != 10*time.Second {
		t.Errorf("Poll.Interval = %v, want %v", cfg.Poll.Interval, 10*time.Second)
	}
	if cfg.Views.DefaultSymbol != "WTI" {
		t.Errorf("Views.DefaultSymbol = %q, want %q", cfg.Views.DefaultSymbol, "WTI")
	}
	if cfg.Views.HistoryDays != 90 || cfg.Views.ForecastDays != 7 || cfg.Views.NewsLimit != 20 {
		t.Errorf("Views = %+v, want days 90/7 and limit 20", cfg.Views)
	}

	// -- Storage / Server / Logging --
	if cfg.Storage.CachePath != "/tmp/commodash/cache.db" {
		t.Errorf("Storage.CachePath = %q, want %q", cfg.Storage.CachePath, "/tmp/commodash/cache.db")
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Server.Addr() = %q, want %q", cfg.Server.Addr(), "0.0.0.0:8080")
	}
	if cfg.Server.GRPCPort != 9191 {
		t.Errorf("Server.GRPCPort = %d, want %d", cfg.Server.GRPCPort, 9191)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want debug/text", cfg.Logging)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Poll.Interval != 30*time.Second {
		t.Errorf("Poll.Interval = %v, want 30s", cfg.Poll.Interval)
	}
	if cfg.Views.DefaultSymbol != "XAU" {
		t.Errorf("Views.DefaultSymbol = %q, want XAU", cfg.Views.DefaultSymbol)
	}
	if cfg.Views.HistoryDays != 30 || cfg.Views.NewsLimit != 15 {
		t.Errorf("Views = %+v, want history 30 and news 15", cfg.Views)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api:
  base_url: "http://yaml-host"
storage:
  cache_path: "/yaml/cache.db"
logging:
  level: "info"
`)

	t.Setenv("REACT_APP_BACKEND_URL", "http://frontend-env")
	t.Setenv("COMMODASH_API_URL", "http://commodash-env")
	t.Setenv("COMMODASH_POLL_INTERVAL", "45s")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.API.BaseURL != "http://commodash-env" {
		t.Errorf("API.BaseURL = %q, want %q (env override)", cfg.API.BaseURL, "http://commodash-env")
	}
	if cfg.Poll.Interval != 45*time.Second {
		t.Errorf("Poll.Interval = %v, want 45s (env override)", cfg.Poll.Interval)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q (env override)", cfg.Logging.Level, "warn")
	}
	// cache_path should remain from YAML since no env override was set.
	if cfg.Storage.CachePath != "/yaml/cache.db" {
		t.Errorf("Storage.CachePath = %q, want %q (from YAML)", cfg.Storage.CachePath, "/yaml/cache.db")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "poll:\n  interval: 0s\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() with zero poll interval should fail")
	}

	t.Setenv("COMMODASH_POLL_INTERVAL", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() with unparsable COMMODASH_POLL_INTERVAL should fail")
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("COMMODASH_API_URL=http://from-dotenv:9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	os.Unsetenv("COMMODASH_API_URL")
	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://from-dotenv:9000" {
		t.Errorf("BaseURL = %q, want value from .env", cfg.API.BaseURL)
	}

	if err := os.WriteFile(env, []byte("COMMODASH-BAD=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for malformed .env")
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("COMMODASH_CONFIG", "")
	if got := PathFromEnv(); got != DefaultPath {
		t.Errorf("PathFromEnv() = %q, want %q", got, DefaultPath)
	}
	t.Setenv("COMMODASH_CONFIG", "/etc/commodash.yaml")
	if got := PathFromEnv(); got != "/etc/commodash.yaml" {
		t.Errorf("PathFromEnv() = %q, want %q", got, "/etc/commodash.yaml")
	}
}
