// Package config loads client settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	LogLevel string `env:"APCLIENT_LOG_LEVEL" envDefault:"info"`

	// Game names the game whose state is persisted.
	Game string `env:"APCLIENT_GAME"`

	BatchSize    int           `env:"APCLIENT_BATCH_SIZE"    envDefault:"25"`
	PollInterval time.Duration `env:"APCLIENT_POLL_INTERVAL" envDefault:"500ms"`

	SaveInterval    time.Duration `env:"APCLIENT_SAVE_INTERVAL"     envDefault:"60s"`
	MinSaveInterval time.Duration `env:"APCLIENT_MIN_SAVE_INTERVAL" envDefault:"10s"`
	StoreTimeout    time.Duration `env:"APCLIENT_STORE_TIMEOUT"     envDefault:"5s"`
	CloseTimeout    time.Duration `env:"APCLIENT_CLOSE_TIMEOUT"     envDefault:"2s"`

	// SaveDir holds one JSON document per session. Empty disables the file store.
	SaveDir    string `env:"APCLIENT_SAVE_DIR"`
	SQLitePath string `env:"APCLIENT_SQLITE_PATH"`
	// DatabaseURL enables the Postgres store.
	DatabaseURL string `env:"DATABASE_URL"`

	EventQueueSize int `env:"APCLIENT_EVENT_QUEUE_SIZE" envDefault:"1000"`
	// MetricsAddr serves Prometheus metrics when set.
	MetricsAddr string `env:"APCLIENT_METRICS_ADDR"`
}

// Load parses the environment on top of the defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	for name, d := range map[string]time.Duration{
		"poll interval":     c.PollInterval,
		"save interval":     c.SaveInterval,
		"min save interval": c.MinSaveInterval,
		"store timeout":     c.StoreTimeout,
		"close timeout":     c.CloseTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.EventQueueSize <= 0 {
		return fmt.Errorf("event queue size must be positive, got %d", c.EventQueueSize)
	}
	return nil
}
