// Package cache provides a TTL cache for schema-context strings.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoLoader is returned when a key has no registered loader.
var ErrNoLoader = errors.New("cache: no loader registered for key")

// Loader rebuilds the cached value for a key.
type Loader func(ctx context.Context) (string, error)

// entry is one cached value with its fetch time.
type entry struct {
	value     string
	fetchedAt time.Time
}

// Stats contains live cache statistics.
type Stats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Refreshes   int64     `json:"refreshes"`
	LastRefresh time.Time `json:"last_refresh"`
}

// SchemaCache caches textual schema descriptions per key with a TTL.
// The mutex is held across a refresh, guaranteeing at most one refresh
// in flight per cache instance.
type SchemaCache struct {
	mu      sync.Mutex
	config  *Config
	loaders map[string]Loader
	entries map[string]*entry
	stats   Stats
}

// NewSchemaCache creates a cache with the given configuration.
func NewSchemaCache(config *Config) *SchemaCache {
	if config == nil {
		config = DefaultConfig()
	}
	return &SchemaCache{
		config:  config,
		loaders: make(map[string]Loader),
		entries: make(map[string]*entry),
	}
}

// Register binds a loader to a key. Get and Refresh fail for keys
// without a loader.
func (c *SchemaCache) Register(key string, loader Loader) {
	c.mu.Lock()
	c.loaders[key] = loader
	c.mu.Unlock()
}

// Get returns the cached value for the key, refreshing synchronously
// when the entry is absent or older than ttl. A ttl of zero or less
// forces a reload.
func (c *SchemaCache) Get(ctx context.Context, key string, ttl time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && ttl > 0 && time.Since(e.fetchedAt) < ttl {
		if c.config.EnableStats {
			c.stats.Hits++
		}
		return e.value, nil
	}
	if c.config.EnableStats {
		c.stats.Misses++
	}
	return c.refreshLocked(ctx, key)
}

// Refresh forces a cache rebuild for the key and returns the new value.
func (c *SchemaCache) Refresh(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx, key)
}

// Invalidate drops the entry for the key.
func (c *SchemaCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops all entries.
func (c *SchemaCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Stats returns a snapshot of the cache statistics.
func (c *SchemaCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// refreshLocked reloads the key through its loader. The caller holds the
// lock; a failed load keeps any stale entry in place.
func (c *SchemaCache) refreshLocked(ctx context.Context, key string) (string, error) {
	loader, ok := c.loaders[key]
	if !ok {
		return "", ErrNoLoader
	}

	value, err := loader(ctx)
	if err != nil {
		return "", err
	}

	c.entries[key] = &entry{value: value, fetchedAt: time.Now()}
	if c.config.EnableStats {
		c.stats.Refreshes++
		c.stats.LastRefresh = time.Now()
	}
	return value, nil
}
