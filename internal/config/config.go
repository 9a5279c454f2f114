// Package config loads runtime settings from the environment, with an
// optional .env file and an optional YAML tuning file for the schema
// classifier.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/chatdb/internal/schema"
)

// Config holds every setting the commands need. Flags may override
// individual fields after loading.
type Config struct {
	Backend    string `env:"CHATDB_BACKEND" envDefault:"sqlite"`
	SQLitePath string `env:"CHATDB_SQLITE_PATH" envDefault:"chatdb.db"`

	MongoURI      string `env:"CHATDB_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"CHATDB_MONGO_DB" envDefault:"chatdb"`

	LogLevel string `env:"CHATDB_LOG_LEVEL" envDefault:"info"`

	// ThresholdsFile optionally points at a YAML file tuning the
	// classifier's uniqueness cutoffs.
	ThresholdsFile string `env:"CHATDB_THRESHOLDS_FILE"`

	Thresholds schema.Thresholds `env:"-"`
}

// Load reads .env (when present), then the environment, then the
// thresholds file named by CHATDB_THRESHOLDS_FILE.
func Load() (*Config, error) {
	// Missing .env is fine; a malformed one is not.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.ThresholdsFile != "" {
		if err := cfg.loadThresholds(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) loadThresholds() error {
	data, err := os.ReadFile(c.ThresholdsFile)
	if err != nil {
		return fmt.Errorf("read thresholds file: %w", err)
	}
	var t schema.Thresholds
	if err := yaml.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("parse thresholds file %s: %w", c.ThresholdsFile, err)
	}
	if t.NumericUnique < 0 || t.NumericUnique > 1 || t.OthersUnique < 0 || t.OthersUnique > 1 {
		return fmt.Errorf("thresholds in %s must be within [0, 1]", c.ThresholdsFile)
	}
	c.Thresholds = t
	return nil
}

// SlogLevel maps the configured level name to a slog level, defaulting
// to info for unknown names.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
