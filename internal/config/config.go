// Package config loads the server settings from an optional YAML file and
// the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Ledger backends.
const (
	BackendSQLite  = "sqlite"
	BackendLevelDB = "leveldb"
	BackendMemory  = "memory"
)

const (
	defaultListen      = ":8080"
	defaultSQLitePath  = "./data/groupbuy.db"
	defaultLevelDBPath = "./data/groupbuy.ldb"
	defaultMetricsPath = "/metrics"
	defaultTokenTTL    = 24 * time.Hour
)

// Config captures the runtime settings for the promotion server.
type Config struct {
	ListenAddress string        `yaml:"listen"`
	Ledger        LedgerConfig  `yaml:"ledger"`
	Auth          AuthConfig    `yaml:"auth"`
	Log           LogConfig     `yaml:"log"`
	Metrics       MetricsConfig `yaml:"metrics"`
}

// LedgerConfig selects the storage backend.
type LedgerConfig struct {
	Backend string `yaml:"backend"`
	// Path is the database file (sqlite) or directory (leveldb).
	Path string `yaml:"path"`
}

// AuthConfig enables bearer-token authentication when Secret is set.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig sets the HTTP path Prometheus metrics are served on.
type MetricsConfig struct {
	Path string `yaml:"path"`
}

// Load reads the YAML file at path, if any, applies environment overrides,
// and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AuthEnabled reports whether callers must present a token.
func (cfg Config) AuthEnabled() bool {
	return cfg.Auth.Secret != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (cfg *Config) applyEnv() {
	cfg.ListenAddress = getEnv("LISTEN_ADDR", cfg.ListenAddress)
	cfg.Ledger.Backend = getEnv("LEDGER_BACKEND", cfg.Ledger.Backend)
	cfg.Ledger.Path = getEnv("DB_PATH", cfg.Ledger.Path)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Auth.Secret = getEnv("AUTH_SECRET", cfg.Auth.Secret)
}

func (cfg *Config) normalize() {
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListen
	}

	cfg.Ledger.Backend = strings.ToLower(strings.TrimSpace(cfg.Ledger.Backend))
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = BackendSQLite
	}
	cfg.Ledger.Path = strings.TrimSpace(cfg.Ledger.Path)
	if cfg.Ledger.Path == "" {
		switch cfg.Ledger.Backend {
		case BackendSQLite:
			cfg.Ledger.Path = defaultSQLitePath
		case BackendLevelDB:
			cfg.Ledger.Path = defaultLevelDBPath
		}
	}

	cfg.Auth.Secret = strings.TrimSpace(cfg.Auth.Secret)
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = defaultTokenTTL
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	cfg.Metrics.Path = strings.TrimSpace(cfg.Metrics.Path)
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
}

func (cfg *Config) validate() error {
	switch cfg.Ledger.Backend {
	case BackendSQLite, BackendLevelDB, BackendMemory:
	default:
		return fmt.Errorf("ledger: unknown backend %q", cfg.Ledger.Backend)
	}
	if cfg.Auth.TokenTTL < 0 {
		return errors.New("auth: token_ttl cannot be negative")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics: path %q must start with /", cfg.Metrics.Path)
	}
	return nil
}
