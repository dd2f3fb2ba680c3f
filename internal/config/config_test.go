package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LISTEN_ADDR", "LEDGER_BACKEND", "DB_PATH", "LOG_LEVEL", "AUTH_SECRET"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != ":8080" {
		t.Errorf("unexpected listen address: %q", cfg.ListenAddress)
	}
	if cfg.Ledger.Backend != BackendSQLite || cfg.Ledger.Path != "./data/groupbuy.db" {
		t.Errorf("unexpected ledger config: %+v", cfg.Ledger)
	}
	if cfg.AuthEnabled() {
		t.Error("expected auth disabled without a secret")
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("unexpected token ttl: %v", cfg.Auth.TokenTTL)
	}
	if cfg.Log.Level != "info" || cfg.Metrics.Path != "/metrics" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
listen: " :6000 "
ledger:
  backend: LevelDB
auth:
  secret: " s3cret "
  token_ttl: 90m
log:
  level: DEBUG
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != ":6000" {
		t.Errorf("unexpected listen address: %q", cfg.ListenAddress)
	}
	if cfg.Ledger.Backend != BackendLevelDB || cfg.Ledger.Path != "./data/groupbuy.ldb" {
		t.Errorf("unexpected ledger config: %+v", cfg.Ledger)
	}
	if !cfg.AuthEnabled() || cfg.Auth.Secret != "s3cret" {
		t.Errorf("unexpected auth config: %+v", cfg.Auth)
	}
	if cfg.Auth.TokenTTL != 90*time.Minute {
		t.Errorf("unexpected token ttl: %v", cfg.Auth.TokenTTL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("unexpected log level: %q", cfg.Log.Level)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("LISTEN_ADDR", ":9000")
	path := writeConfig(t, `
listen: ":6000"
ledger:
  backend: sqlite
  path: /tmp/ignored.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != ":9000" || cfg.Ledger.Backend != BackendMemory {
		t.Errorf("expected env to win, got %+v", cfg)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"unknown backend", "ledger:\n  backend: redis\n"},
		{"unknown log level", "log:\n  level: chatty\n"},
		{"relative metrics path", "metrics:\n  path: metrics\n"},
		{"negative ttl", "auth:\n  token_ttl: -1h\n"},
		{"unknown field", "listen_address: \":1\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := Load(writeConfig(t, tt.contents)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
