// Package repositories defines the data access contracts consumed by
// the services layer.
package repositories

import (
	"context"

	"github.com/tabletalk/tabletalk/pkg/models"
)

// SchemaRepository builds the textual schema description used as
// grounding context for generated statements.
type SchemaRepository interface {
	BuildSchemaContext(ctx context.Context) (string, error)
}

// QueryRepository runs statements and returns rows in result order.
type QueryRepository interface {
	ExecuteSQLQuery(ctx context.Context, sql string) (*models.RowSet, error)
}
