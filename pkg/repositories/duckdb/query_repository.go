// Package duckdb provides DuckDB-specific repository implementations.
package duckdb

import (
	"context"

	"github.com/rs/zerolog"

	pkgerrors "github.com/tabletalk/tabletalk/pkg/errors"
	"github.com/tabletalk/tabletalk/pkg/infrastructure/pool"
	"github.com/tabletalk/tabletalk/pkg/models"
	"github.com/tabletalk/tabletalk/pkg/repositories"
)

// queryRepository implements repositories.QueryRepository for DuckDB.
type queryRepository struct {
	pool   pool.ConnectionPool
	logger zerolog.Logger
}

// NewQueryRepository creates a new DuckDB query repository.
func NewQueryRepository(pool pool.ConnectionPool, logger zerolog.Logger) repositories.QueryRepository {
	return &queryRepository{
		pool:   pool,
		logger: logger,
	}
}

// ExecuteSQLQuery runs a statement and scans every row into a map keyed
// by column name. The returned column list preserves result order.
func (r *queryRepository) ExecuteSQLQuery(ctx context.Context, query string) (*models.RowSet, error) {
	r.logger.Debug().Str("sql", query).Msg("Executing statement")

	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "failed to get database connection")
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Str("sql", query).Msg("Statement failed")
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeExecutionFailed, "statement execution failed")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to read result columns")
	}

	result := &models.RowSet{Columns: columns}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to scan result row")
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "error iterating result rows")
	}

	return result, nil
}
