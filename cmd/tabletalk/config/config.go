// Package config provides configuration structures for the tabletalk CLI.
package config

import (
	"fmt"
	"time"

	"github.com/tabletalk/tabletalk/pkg/models"
)

// Config represents the runtime configuration.
type Config struct {
	// Database settings
	Database     string        `yaml:"database" json:"database"`
	LogLevel     string        `yaml:"log_level" json:"log_level"`
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`

	// SchemaTTL bounds how old the cached schema description may be
	// before a request reloads it.
	SchemaTTL time.Duration `yaml:"schema_ttl" json:"schema_ttl"`

	// ConfirmRisk is the lowest risk level that requires explicit
	// confirmation before execution (low, medium, high).
	ConfirmRisk string `yaml:"confirm_risk" json:"confirm_risk"`

	// SessionIdleTimeout controls when idle conversation sessions are
	// reaped. Zero disables the reaper.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout" json:"session_idle_timeout"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Connection pool configuration
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool" json:"connection_pool"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// ConnectionPoolConfig represents connection pool configuration.
type ConnectionPoolConfig struct {
	MaxOpenConnections int           `yaml:"max_open_connections" json:"max_open_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections" json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnectionTimeout  time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
}

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}

	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 5 * time.Minute
	}
	if c.SchemaTTL <= 0 {
		c.SchemaTTL = 24 * time.Hour
	}
	if c.SessionIdleTimeout < 0 {
		return fmt.Errorf("session idle timeout must not be negative")
	}

	if _, err := c.ConfirmRiskLevel(); err != nil {
		return err
	}

	// Set defaults for connection pool
	if c.ConnectionPool.MaxOpenConnections <= 0 {
		c.ConnectionPool.MaxOpenConnections = 25
	}
	if c.ConnectionPool.MaxIdleConnections <= 0 {
		c.ConnectionPool.MaxIdleConnections = 5
	}
	if c.ConnectionPool.ConnMaxLifetime <= 0 {
		c.ConnectionPool.ConnMaxLifetime = 30 * time.Minute
	}
	if c.ConnectionPool.ConnMaxIdleTime <= 0 {
		c.ConnectionPool.ConnMaxIdleTime = 10 * time.Minute
	}
	if c.ConnectionPool.ConnectionTimeout <= 0 {
		c.ConnectionPool.ConnectionTimeout = 30 * time.Second
	}

	// Set defaults for metrics
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	return nil
}

// ConfirmRiskLevel parses the configured confirmation threshold.
func (c *Config) ConfirmRiskLevel() (models.RiskLevel, error) {
	switch c.ConfirmRisk {
	case "", "high":
		return models.RiskHigh, nil
	case "medium":
		return models.RiskMedium, nil
	case "low":
		return models.RiskLow, nil
	default:
		return models.RiskHigh, fmt.Errorf("unsupported confirm risk level: %s", c.ConfirmRisk)
	}
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database:           ":memory:",
		LogLevel:           "info",
		QueryTimeout:       5 * time.Minute,
		SchemaTTL:          24 * time.Hour,
		ConfirmRisk:        "high",
		SessionIdleTimeout: 30 * time.Minute,
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
			Path:    "/metrics",
		},
		ConnectionPool: ConnectionPoolConfig{
			MaxOpenConnections: 25,
			MaxIdleConnections: 5,
			ConnMaxLifetime:    30 * time.Minute,
			ConnMaxIdleTime:    10 * time.Minute,
			ConnectionTimeout:  30 * time.Second,
		},
	}
}
