// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Achievement is a catalog entry supplied through configuration.
type Achievement struct {
	Name             string `koanf:"name"`
	Description      string `koanf:"description"`
	Type             string `koanf:"type"`
	Tier             string `koanf:"tier"`
	BasePoints       int64  `koanf:"base_points"`
	RequirementValue int64  `koanf:"requirement_value"`
	Hidden           bool   `koanf:"hidden"`
	Repeatable       bool   `koanf:"repeatable"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the async ingestion queue across all shards.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of queue shards and workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the event id dedupe cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// StoreDriver is memory or postgres.
	StoreDriver string `koanf:"store_driver"`
	DatabaseURL string `koanf:"database_url"`

	// RedisAddr enables the leaderboard mirror and notification publishing.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	NotifyChannel   string `koanf:"notify_channel"`
	NotifyTimeoutMS int    `koanf:"notify_timeout_ms"`

	// ProcessRetries bounds worker retries of a failed discovery.
	ProcessRetries int `koanf:"process_retries"`

	// SpeciesPoints overrides points per rarity tier.
	SpeciesPoints map[string]int64 `koanf:"species_points"`

	// Collections maps a collection name to its species ids.
	Collections map[string][]string `koanf:"collections"`

	// Achievements extends the built-in catalog.
	Achievements []Achievement `koanf:"achievements"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		EventQueueSize:      100_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          500_000,
		MaxLeaderboardLimit: 100,
		StoreDriver:         StoreMemory,
		NotifyChannel:       "winged:notifications",
		NotifyTimeoutMS:     2000,
		ProcessRetries:      3,
	}
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize < 1:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.ProcessRetries < 0:
		return fmt.Errorf("%w: process_retries must not be negative", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
