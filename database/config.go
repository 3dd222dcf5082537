package database

import (
	"time"

	"github.com/kbukum/fixturekit/validation"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and tunes the test database. Durations are strings so
// they read naturally in YAML and environment variables.
type Config struct {
	// Enabled controls whether a database is attached to the test application.
	Enabled bool `mapstructure:"enabled"`

	// Driver selects the gorm dialector: "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`

	// DSN is the connection string handed to the driver.
	DSN string `mapstructure:"dsn"`

	MaxOpenConns int `mapstructure:"max_open_conns"`

	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// ConnMaxLifetime bounds connection reuse, "1h".
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`

	// MaxRetries is the number of connection attempts.
	MaxRetries int `mapstructure:"max_retries"`

	// SlowQueryThreshold logs slower statements as warnings.
	SlowQueryThreshold string `mapstructure:"slow_query_threshold"`

	// LogLevel is the gorm log level: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`
}

// ApplyDefaults fills zero fields. In-memory sqlite gets a single
// connection since each connection would otherwise see its own database.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.MaxOpenConns <= 0 {
		if c.Driver == DriverSQLite {
			c.MaxOpenConns = 1
		} else {
			c.MaxOpenConns = 10
		}
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "1h"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate reports every unusable field of an enabled configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.New().
		OneOf("driver", c.Driver, []string{DriverSQLite, DriverPostgres}).
		Required("dsn", c.DSN).
		Custom(c.MaxOpenConns > 0, "max_open_conns", "must be > 0").
		Customf(c.MaxIdleConns <= c.MaxOpenConns, "max_idle_conns", "must be <= max_open_conns (%d)", c.MaxOpenConns).
		Custom(c.MaxRetries > 0, "max_retries", "must be > 0").
		Custom(isDuration(c.ConnMaxLifetime), "conn_max_lifetime", "must be a duration such as 1h").
		Custom(isDuration(c.SlowQueryThreshold), "slow_query_threshold", "must be a duration such as 200ms").
		Validate()
}

func isDuration(s string) bool {
	_, err := time.ParseDuration(s)
	return err == nil
}
