package cache

import (
	"time"
)

// Config holds the configuration for the schema-context cache.
type Config struct {
	// TTL is the time-to-live for cache entries.
	TTL time.Duration
	// EnableStats enables cache statistics collection.
	EnableStats bool
}

// DefaultConfig returns a default cache configuration. Schema context
// changes rarely, so the default lifetime is a day.
func DefaultConfig() *Config {
	return &Config{
		TTL:         24 * time.Hour,
		EnableStats: true,
	}
}

// WithTTL sets the time-to-live for cache entries.
func (c *Config) WithTTL(ttl time.Duration) *Config {
	c.TTL = ttl
	return c
}

// WithStats enables or disables cache statistics.
func (c *Config) WithStats(enable bool) *Config {
	c.EnableStats = enable
	return c
}
