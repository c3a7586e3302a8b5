package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tabletalk/tabletalk/pkg/cache"
	pkgerrors "github.com/tabletalk/tabletalk/pkg/errors"
	"github.com/tabletalk/tabletalk/pkg/infrastructure/metrics"
	"github.com/tabletalk/tabletalk/pkg/repositories"
)

// schemaContextKey is the cache key under which the schema text lives.
const schemaContextKey = "schema_context"

// cachedSchemaProvider serves the schema description text from a TTL
// cache, loading it through the schema repository on miss or expiry.
type cachedSchemaProvider struct {
	cache   *cache.SchemaCache
	logger  zerolog.Logger
	metrics metrics.Collector
}

// NewSchemaProvider creates a SchemaProvider backed by the given cache
// and repository. The repository becomes the cache loader for the
// schema context entry.
func NewSchemaProvider(schemaCache *cache.SchemaCache, repo repositories.SchemaRepository, logger zerolog.Logger, collector metrics.Collector) SchemaProvider {
	if collector == nil {
		collector = &metrics.NoOpCollector{}
	}
	schemaCache.Register(schemaContextKey, func(ctx context.Context) (string, error) {
		return repo.BuildSchemaContext(ctx)
	})
	return &cachedSchemaProvider{
		cache:   schemaCache,
		logger:  logger,
		metrics: collector,
	}
}

// GetSchemaContext returns the cached schema text, reloading it when
// the entry is older than ttl. A non-positive ttl forces a reload.
func (p *cachedSchemaProvider) GetSchemaContext(ctx context.Context, ttl time.Duration) (string, error) {
	timer := p.metrics.StartTimer("schema_context_duration_seconds")
	defer timer.Stop()

	text, err := p.cache.Get(ctx, schemaContextKey, ttl)
	if err != nil {
		p.metrics.IncrementCounter("schema_context_errors_total")
		return "", pkgerrors.Wrap(err, pkgerrors.CodeSchemaUnavailable, "failed to load schema context")
	}
	return text, nil
}

// RefreshSchemaCache drops the cached entry and reloads it immediately.
func (p *cachedSchemaProvider) RefreshSchemaCache(ctx context.Context) (string, error) {
	p.logger.Info().Msg("Refreshing schema cache")
	p.metrics.IncrementCounter("schema_cache_refreshes_total")

	text, err := p.cache.Refresh(ctx, schemaContextKey)
	if err != nil {
		p.metrics.IncrementCounter("schema_context_errors_total")
		return "", pkgerrors.Wrap(err, pkgerrors.CodeSchemaUnavailable, "failed to refresh schema context")
	}
	return text, nil
}
