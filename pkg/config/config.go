// Package config loads histofy's layered configuration: embedded defaults,
// the user config file, the repository-local .histofy.toml, and HISTOFY_*
// environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/histofy/histofy/pkg/errors"
)

// Commit holds defaults for the commit command
type Commit struct {
	// DefaultTime is the commit time used when --time is not given.
	// Empty means the current time.
	DefaultTime string `koanf:"default_time"`
	// AutoAdd stages all tracked changes before committing
	AutoAdd bool `koanf:"auto_add"`
}

// Migration holds defaults for date migrations
type Migration struct {
	// StartTime is when the first commit of each day lands
	StartTime string `koanf:"start_time"`
	// SpacingMinutes separates consecutive commits within a day
	SpacingMinutes int `koanf:"spacing_minutes"`
	// SpreadDays is the default distribution window
	SpreadDays int `koanf:"spread_days"`
	// CreateBackup controls the pre-rewrite backup branch
	CreateBackup bool `koanf:"create_backup"`
	// RollbackOnFailure restores from the backup when a rewrite fails
	RollbackOnFailure bool `koanf:"rollback_on_failure"`
}

// Push holds retry behavior for remote pushes
type Push struct {
	// Retries is the attempt count for transient failures
	Retries int `koanf:"retries"`
	// BackoffMs is the initial backoff in milliseconds; doubles per attempt
	BackoffMs int `koanf:"backoff_ms"`
}

// History holds ledger retention settings
type History struct {
	// MaxEntries caps ledger size per repository. 0 keeps everything.
	MaxEntries int `koanf:"max_entries"`
}

// Config is the main configuration structure
type Config struct {
	Commit    Commit    `koanf:"commit"`
	Migration Migration `koanf:"migration"`
	Push      Push      `koanf:"push"`
	History   History   `koanf:"history"`
}

// Backoff returns the initial push backoff as a duration.
func (p Push) Backoff() time.Duration {
	return time.Duration(p.BackoffMs) * time.Millisecond
}

// Validate rejects values the engine cannot work with. Called once after
// loading; commands can then trust the config.
func (c *Config) Validate() error {
	if c.Migration.StartTime != "" {
		if _, err := time.Parse("15:04", c.Migration.StartTime); err != nil {
			return errors.NewConfigurationError("migration.start_time",
				"invalid start time %q, expected HH:MM", c.Migration.StartTime)
		}
	}
	if c.Commit.DefaultTime != "" {
		if _, err := time.Parse("15:04", c.Commit.DefaultTime); err != nil {
			return errors.NewConfigurationError("commit.default_time",
				"invalid time %q, expected HH:MM", c.Commit.DefaultTime)
		}
	}
	if c.Migration.SpacingMinutes < 1 {
		return errors.NewConfigurationError("migration.spacing_minutes",
			"spacing must be at least 1 minute, got %d", c.Migration.SpacingMinutes)
	}
	if c.Migration.SpreadDays < 1 {
		return errors.NewConfigurationError("migration.spread_days",
			"spread must cover at least 1 day, got %d", c.Migration.SpreadDays)
	}
	if c.Push.Retries < 0 {
		return errors.NewConfigurationError("push.retries",
			"retries cannot be negative, got %d", c.Push.Retries)
	}
	if c.Push.BackoffMs < 0 {
		return errors.NewConfigurationError("push.backoff_ms",
			"backoff cannot be negative, got %d", c.Push.BackoffMs)
	}
	if c.History.MaxEntries < 0 {
		return errors.NewConfigurationError("history.max_entries",
			"max entries cannot be negative, got %d", c.History.MaxEntries)
	}
	return nil
}

// Default returns the built-in configuration
func Default() *Config {
	cfg, err := loadDefaults()
	if err != nil {
		// The embedded defaults are compiled in; failing to parse them is a
		// build defect, not a runtime condition.
		panic(fmt.Sprintf("embedded defaults are invalid: %v", err))
	}
	return cfg
}
