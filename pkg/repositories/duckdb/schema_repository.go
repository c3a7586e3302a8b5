package duckdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	pkgerrors "github.com/tabletalk/tabletalk/pkg/errors"
	"github.com/tabletalk/tabletalk/pkg/infrastructure/pool"
	"github.com/tabletalk/tabletalk/pkg/repositories"
)

// schemaRepository implements repositories.SchemaRepository for DuckDB.
type schemaRepository struct {
	pool   pool.ConnectionPool
	logger zerolog.Logger
}

// NewSchemaRepository creates a new DuckDB schema repository.
func NewSchemaRepository(pool pool.ConnectionPool, logger zerolog.Logger) repositories.SchemaRepository {
	return &schemaRepository{
		pool:   pool,
		logger: logger,
	}
}

// BuildSchemaContext describes every base table and its columns as a
// plain-text block, one table per paragraph, columns in ordinal order.
func (r *schemaRepository) BuildSchemaContext(ctx context.Context) (string, error) {
	r.logger.Debug().Msg("Building schema context")

	db, err := r.pool.Get(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "failed to get database connection")
	}

	rows, err := db.QueryContext(ctx, strings.TrimSpace(`
SELECT t.table_schema, t.table_name, c.column_name, c.data_type, c.is_nullable
FROM information_schema.tables t
JOIN information_schema.columns c
  ON c.table_schema = t.table_schema AND c.table_name = t.table_name
WHERE t.table_type = 'BASE TABLE'
ORDER BY t.table_schema, t.table_name, c.ordinal_position`))
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.CodeSchemaUnavailable, "failed to query catalog")
	}
	defer rows.Close()

	var (
		b          strings.Builder
		lastTable  string
		tableCount int
	)
	for rows.Next() {
		var schema, table, column, dataType, nullable string
		if err := rows.Scan(&schema, &table, &column, &dataType, &nullable); err != nil {
			return "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to scan catalog row")
		}

		qualified := schema + "." + table
		if qualified != lastTable {
			if lastTable != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "TABLE %s\n", qualified)
			lastTable = qualified
			tableCount++
		}

		constraint := "NULL"
		if strings.EqualFold(nullable, "no") {
			constraint = "NOT NULL"
		}
		fmt.Fprintf(&b, "  %s %s %s\n", column, dataType, constraint)
	}
	if err := rows.Err(); err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "error iterating catalog rows")
	}

	if tableCount == 0 {
		return "Database schema: empty (no base tables)", nil
	}
	return fmt.Sprintf("Database schema (%d tables)\n\n%s", tableCount,
		strings.TrimRight(b.String(), "\n")), nil
}
