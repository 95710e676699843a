package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.DBPath != "freeday.db" || cfg.WriteLimit != 120 {
		t.Errorf("backend defaults = %+v", cfg)
	}
	if cfg.ServerURL != "http://localhost:8080" || cfg.PollInterval != 10*time.Second {
		t.Errorf("client defaults = %+v", cfg)
	}
	if cfg.Password != "" || cfg.LogLevel != "info" {
		t.Errorf("password = %q, level = %q", cfg.Password, cfg.LogLevel)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("FREEDAY_PORT", "9090")
	t.Setenv("FREEDAY_SERVER_URL", "https://cal.example.com/")
	t.Setenv("FREEDAY_POLL_INTERVAL", "30s")
	t.Setenv("FREEDAY_WRITE_LIMIT", "0")
	t.Setenv("FREEDAY_LOG_LEVEL", "DEBUG")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.ServerURL != "https://cal.example.com" {
		t.Errorf("server url = %q, want trailing slash trimmed", cfg.ServerURL)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("poll interval = %v", cfg.PollInterval)
	}
	if cfg.WriteLimit != 0 {
		t.Errorf("write limit = %d", cfg.WriteLimit)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "FREEDAY_PASSWORD=from-file\nFREEDAY_DB_PATH=/tmp/file.db\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("FREEDAY_DB_PATH", "/tmp/env.db")
	// godotenv sets variables process-wide; restore them after the test.
	t.Setenv("FREEDAY_PASSWORD", "")
	os.Unsetenv("FREEDAY_PASSWORD")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Password != "from-file" {
		t.Errorf("password = %q, want from-file", cfg.Password)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("db path = %q, want environment to win", cfg.DBPath)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad interval", "FREEDAY_POLL_INTERVAL", "often"},
		{"zero interval", "FREEDAY_POLL_INTERVAL", "0s"},
		{"bad url", "FREEDAY_SERVER_URL", "not a url"},
		{"bad port", "FREEDAY_PORT", "http"},
		{"negative limit", "FREEDAY_WRITE_LIMIT", "-1"},
		{"bad level", "FREEDAY_LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Errorf("%s=%q: expected error", tt.key, tt.value)
			}
		})
	}
}
