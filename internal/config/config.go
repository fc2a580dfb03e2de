// Package config defines process configuration and how it is loaded.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Threshold is how many sightings confirm presence.
	Threshold int `koanf:"threshold"`
	// QueueSize bounds a session's event queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of session workers.
	WorkerCount int `koanf:"worker_count"`

	// LedgerDriver is csv, sqlite, postgres or memory.
	LedgerDriver string `koanf:"ledger_driver"`
	LedgerDir    string `koanf:"ledger_dir"`
	SQLitePath   string `koanf:"sqlite_path"`
	PostgresDSN  string `koanf:"postgres_dsn"`

	// Timezone names the IANA zone calendar dates are taken in; "Local"
	// or empty means the host zone.
	Timezone string `koanf:"timezone"`

	IOTimeoutMS       int `koanf:"io_timeout_ms"`
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
	DedupeCacheDays   int `koanf:"dedupe_cache_days"`

	// Archive target for `rollcall archive`.
	ArchiveBucket    string `koanf:"archive_bucket"`
	ArchivePrefix    string `koanf:"archive_prefix"`
	ArchiveRegion    string `koanf:"archive_region"`
	ArchiveEndpoint  string `koanf:"archive_endpoint"`
	ArchivePathStyle bool   `koanf:"archive_path_style"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		Threshold:         7,
		QueueSize:         1024,
		WorkerCount:       1,
		LedgerDriver:      "csv",
		LedgerDir:         "attendance_logs",
		SQLitePath:        "rollcall.db",
		Timezone:          "Local",
		IOTimeoutMS:       5000,
		ShutdownTimeoutMS: 10000,
		DedupeCacheDays:   7,
		ArchivePrefix:     "attendance/",
		ArchiveRegion:     "us-east-1",
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// IOTimeout is IOTimeoutMS as a duration.
func (c *Config) IOTimeout() time.Duration {
	return time.Duration(c.IOTimeoutMS) * time.Millisecond
}

// ShutdownTimeout is ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Threshold < 1:
		return fmt.Errorf("%w: threshold must be at least 1, got %d", ErrInvalidConfig, c.Threshold)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.IOTimeoutMS < 0 || c.ShutdownTimeoutMS < 0:
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	switch c.LedgerDriver {
	case "csv", "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("%w: unknown ledger_driver %q", ErrInvalidConfig, c.LedgerDriver)
	}
	if c.LedgerDriver == "csv" && c.LedgerDir == "" {
		return fmt.Errorf("%w: ledger_dir must not be empty", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
