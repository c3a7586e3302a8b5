// Package services contains business logic implementations.
package services

import (
	"context"
	"time"

	"github.com/tabletalk/tabletalk/pkg/models"
)

// SchemaProvider supplies the textual schema description used to ground
// generated statements. A ttl of zero forces a reload.
type SchemaProvider interface {
	GetSchemaContext(ctx context.Context, ttl time.Duration) (string, error)
	RefreshSchemaCache(ctx context.Context) (string, error)
}

// QueryExecutor runs a statement and returns rows in result order.
// Column order within a row follows the catalog, not the request.
type QueryExecutor interface {
	ExecuteSQLQuery(ctx context.Context, sql string) (*models.RowSet, error)
}

// Reporter produces the star-schema diagnostic reports that the SQL
// renderer deliberately does not cover.
type Reporter interface {
	Report(ctx context.Context, action models.Action) (string, error)
}
