package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"BACKEND_URL", "POLL_INTERVAL_MS", "PORT", "ALLOWED_ORIGINS", "SQLITE_DATABASE", "HISTORY_DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.BackendURL != "http://127.0.0.1:9000" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, expected 500ms", cfg.PollInterval)
	}
	if cfg.Port != "8081" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if !cfg.SQLiteEnabled() {
		t.Error("SQLite history should be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://sim:9000/")
	t.Setenv("POLL_INTERVAL_MS", "1500")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("SQLITE_DATABASE", DisabledValue)
	t.Setenv("MAP_ZOOM", "not-a-number")

	cfg := Load()

	if cfg.BackendURL != "http://sim:9000" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.BackendURL)
	}
	if cfg.PollInterval != 1500*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.SQLiteEnabled() {
		t.Error("SQLite history should be disabled by \"off\"")
	}
	if cfg.MapZoom != 14 {
		t.Errorf("invalid MAP_ZOOM should fall back to default, got %d", cfg.MapZoom)
	}
}

func TestSQLiteEnabled_PostgresTakesPrecedence(t *testing.T) {
	cfg := &Config{DatabasePath: "data/x.db", HistoryDatabaseURL: "postgres://localhost/x"}
	if cfg.SQLiteEnabled() {
		t.Error("SQLite should be disabled when HISTORY_DATABASE_URL is set")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BackendURL:    "http://localhost:9000",
			PollInterval:  time.Second,
			ActionTimeout: time.Second,
			HistoryEvery:  1,
			LogLevel:      "info",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty backend", func(c *Config) { c.BackendURL = "" }},
		{"zero interval", func(c *Config) { c.PollInterval = 0 }},
		{"zero action timeout", func(c *Config) { c.ActionTimeout = 0 }},
		{"history every zero", func(c *Config) { c.HistoryEvery = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("baseline config should validate: %v", err)
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadDotEnv_LocalOverrides(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ".env"), []byte("FLEETVIEW_TEST_KEY=base\n"), 0644)
	os.WriteFile(filepath.Join(dir, ".env.local"), []byte("FLEETVIEW_TEST_KEY=local\n"), 0644)
	t.Cleanup(func() { os.Unsetenv("FLEETVIEW_TEST_KEY") })

	LoadDotEnv(dir)

	if got := os.Getenv("FLEETVIEW_TEST_KEY"); got != "local" {
		t.Errorf("FLEETVIEW_TEST_KEY = %q, expected local", got)
	}
}
