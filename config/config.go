// Package config defines service configuration and its loading rules.
//
// Precedence (low -> high): built-in defaults, optional YAML file pointed at
// by SCORING_CONFIG, then SCORING_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. ":memory:" runs fully in memory.
	DBPath string `koanf:"db_path"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// StreakWindowDays bounds the streak look-back recomputation.
	StreakWindowDays int `koanf:"streak_window_days"`

	// MaxConflictRetries bounds the engine's optimistic-lock retry loop.
	MaxConflictRetries int `koanf:"max_conflict_retries"`

	// RefreshInterval is how often the background scheduler recomputes
	// current-period metrics for all entities. Zero disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// SchedulerEnabled toggles the background metrics scheduler.
	SchedulerEnabled bool `koanf:"scheduler_enabled"`
}

// New returns the built-in defaults.
func New() *Config {
	return &Config{
		Addr:               ":8080",
		DBPath:             "scoring.db",
		LogLevel:           "info",
		StreakWindowDays:   90,
		MaxConflictRetries: 3,
		RefreshInterval:    15 * time.Minute,
		SchedulerEnabled:   true,
	}
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Environment keys map flat: SCORING_DB_PATH -> db_path.
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("SCORING_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("SCORING_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "scoring_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.StreakWindowDays <= 0 {
		return errors.New("streak_window_days must be positive")
	}
	if c.MaxConflictRetries < 0 {
		return errors.New("max_conflict_retries must not be negative")
	}
	if c.RefreshInterval < 0 {
		return errors.New("refresh_interval must not be negative")
	}
	return nil
}
