package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	pkgerrors "github.com/tabletalk/tabletalk/pkg/errors"
	"github.com/tabletalk/tabletalk/pkg/infrastructure/metrics"
	"github.com/tabletalk/tabletalk/pkg/models"
)

// defaultTopLimit bounds a top-distribution report when the request did
// not name a limit.
const defaultTopLimit = 10

// DiagnosticsService implements the star-schema reporting collaborator.
// Diagnostic intents never pass through the SQL renderer; the handler
// dispatches them here, and every statement issued is read-only.
type DiagnosticsService struct {
	executor QueryExecutor
	logger   zerolog.Logger
	metrics  metrics.Collector
}

// NewDiagnosticsService creates a diagnostics service over the executor.
func NewDiagnosticsService(executor QueryExecutor, logger zerolog.Logger, collector metrics.Collector) *DiagnosticsService {
	return &DiagnosticsService{
		executor: executor,
		logger:   logger,
		metrics:  collector,
	}
}

// Report builds the report for a diagnostic action.
func (s *DiagnosticsService) Report(ctx context.Context, action models.Action) (string, error) {
	if !action.Intent.IsDiagnostic() {
		return "", pkgerrors.New(pkgerrors.CodeInvalidRequest,
			fmt.Sprintf("intent %s is not a diagnostic", action.Intent))
	}

	timer := s.metrics.StartTimer("diagnostics_report_seconds")
	defer timer.Stop()
	s.metrics.IncrementCounter("diagnostics_reports_total", "intent", action.Intent.String())

	switch action.Intent {
	case models.IntentStarOverview:
		return s.starOverview(ctx)
	case models.IntentFactHealth:
		return s.factHealth(ctx, action.Table)
	case models.IntentOrphanCheck:
		return s.orphanCheck(ctx, action.Table)
	case models.IntentNullDensity:
		return s.nullDensity(ctx, action.Table)
	case models.IntentTopDistribution:
		return s.topDistribution(ctx, action.Table, action.Column, action.Option("limit"))
	default:
		return "", pkgerrors.New(pkgerrors.CodeInternal,
			fmt.Sprintf("unhandled diagnostic intent %s", action.Intent))
	}
}

// starOverview classifies base tables into fact, dimension, and other
// roles by naming convention.
func (s *DiagnosticsService) starOverview(ctx context.Context) (string, error) {
	rows, err := s.executor.ExecuteSQLQuery(ctx, strings.TrimSpace(`
SELECT t.table_schema || '.' || t.table_name AS table_name,
       CASE WHEN t.table_name LIKE 'fact_%' THEN 'fact'
            WHEN t.table_name LIKE 'dim_%' THEN 'dimension'
            ELSE 'other' END AS role,
       COUNT(c.column_name) AS column_count
FROM information_schema.tables t
LEFT JOIN information_schema.columns c
  ON c.table_schema = t.table_schema AND c.table_name = t.table_name
WHERE t.table_type = 'BASE TABLE'
GROUP BY t.table_schema, t.table_name
ORDER BY role, table_name`))
	if err != nil {
		return "", pkgerrors.Wrap(err, pkgerrors.CodeExecutionFailed, "star overview query failed")
	}
	return "Star schema overview\n" + FormatRowSet(rows), nil
}

// factHealth reports row counts for one fact table, or every table whose
// name follows the fact_ convention.
func (s *DiagnosticsService) factHealth(ctx context.Context, table models.TableRef) (string, error) {
	tables := []models.TableRef{table}
	if table.IsEmpty() {
		var err error
		tables, err = s.tablesLike(ctx, "fact_%")
		if err != nil {
			return "", err
		}
		if len(tables) == 0 {
			return "Fact health\nno fact tables found", nil
		}
	}

	var b strings.Builder
	b.WriteString("Fact health\n")
	for _, t := range tables {
		rows, err := s.executor.ExecuteSQLQuery(ctx, fmt.Sprintf(
			"SELECT COUNT(*) AS row_count FROM %s", quoteQualified(t)))
		if err != nil {
			return "", pkgerrors.Wrapf(err, pkgerrors.CodeExecutionFailed,
				"fact health query failed for %s", t.Qualified())
		}
		fmt.Fprintf(&b, "%s: %s rows\n", t.Qualified(), firstCell(rows, "row_count"))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// orphanCheck counts fact rows whose dimension key has no matching
// dimension row. Key-to-dimension pairing follows the naming convention
// <name>_id or <name>_key against dim_<name>.
func (s *DiagnosticsService) orphanCheck(ctx context.Context, table models.TableRef) (string, error) {
	tables := []models.TableRef{table}
	if table.IsEmpty() {
		var err error
		tables, err = s.tablesLike(ctx, "fact_%")
		if err != nil {
			return "", err
		}
	}

	dims, err := s.tablesLike(ctx, "dim_%")
	if err != nil {
		return "", err
	}
	dimByName := make(map[string]models.TableRef, len(dims))
	for _, d := range dims {
		dimByName[d.Bare()] = d
	}

	var b strings.Builder
	b.WriteString("Orphan check\n")
	checked := 0
	for _, fact := range tables {
		columns, err := s.columnsOf(ctx, fact)
		if err != nil {
			return "", err
		}
		for _, col := range columns {
			base, ok := keyBaseName(col)
			if !ok {
				continue
			}
			dim, ok := dimByName["dim_"+base]
			if !ok {
				continue
			}
			rows, err := s.executor.ExecuteSQLQuery(ctx, fmt.Sprintf(strings.TrimSpace(`
SELECT COUNT(*) AS orphans
FROM %s f
LEFT JOIN %s d ON f.%s = d.%s
WHERE f.%s IS NOT NULL AND d.%s IS NULL`),
				quoteQualified(fact), quoteQualified(dim),
				quoteIdent(col), quoteIdent(col), quoteIdent(col), quoteIdent(col)))
			if err != nil {
				return "", pkgerrors.Wrapf(err, pkgerrors.CodeExecutionFailed,
					"orphan check failed for %s.%s", fact.Qualified(), col)
			}
			fmt.Fprintf(&b, "%s.%s -> %s: %s orphans\n",
				fact.Qualified(), col, dim.Qualified(), firstCell(rows, "orphans"))
			checked++
		}
	}
	if checked == 0 {
		b.WriteString("no fact-to-dimension key pairs found\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// nullDensity reports the null ratio of every column in one table using
// a single scan.
func (s *DiagnosticsService) nullDensity(ctx context.Context, table models.TableRef) (string, error) {
	columns, err := s.columnsOf(ctx, table)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("table %s has no columns in the catalog", table.Qualified()))
	}

	selects := make([]string, 0, len(columns)+1)
	selects = append(selects, "COUNT(*) AS total_rows")
	for _, col := range columns {
		selects = append(selects, fmt.Sprintf("COUNT(%s) AS %s", quoteIdent(col), quoteIdent(col)))
	}
	rows, err := s.executor.ExecuteSQLQuery(ctx, fmt.Sprintf(
		"SELECT %s FROM %s", strings.Join(selects, ", "), quoteQualified(table)))
	if err != nil {
		return "", pkgerrors.Wrapf(err, pkgerrors.CodeExecutionFailed,
			"null density query failed for %s", table.Qualified())
	}
	if rows.NumRows() == 0 {
		return fmt.Sprintf("Null density for %s\n%s", table.Qualified(), NoResultsMarker), nil
	}

	row := rows.Rows[0]
	total := cellFloat(row["total_rows"])
	var b strings.Builder
	fmt.Fprintf(&b, "Null density for %s (%d rows)\n", table.Qualified(), int64(total))
	for _, col := range columns {
		density := 0.0
		if total > 0 {
			density = 1 - cellFloat(row[col])/total
		}
		fmt.Fprintf(&b, "%s: %.1f%% null\n", col, density*100)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// topDistribution reports the most frequent values of one column.
func (s *DiagnosticsService) topDistribution(ctx context.Context, table models.TableRef, column, limitOption string) (string, error) {
	limit := defaultTopLimit
	if n, err := strconv.Atoi(limitOption); err == nil && n > 0 {
		limit = n
	}

	rows, err := s.executor.ExecuteSQLQuery(ctx, fmt.Sprintf(strings.TrimSpace(`
SELECT %s AS value, COUNT(*) AS occurrences
FROM %s
GROUP BY 1
ORDER BY occurrences DESC, value
LIMIT %d`), quoteIdent(column), quoteQualified(table), limit))
	if err != nil {
		return "", pkgerrors.Wrapf(err, pkgerrors.CodeExecutionFailed,
			"top distribution query failed for %s.%s", table.Qualified(), column)
	}
	return fmt.Sprintf("Top %d values of %s.%s\n%s",
		limit, table.Qualified(), column, FormatRowSet(rows)), nil
}

// tablesLike lists base tables whose bare name matches the pattern.
func (s *DiagnosticsService) tablesLike(ctx context.Context, pattern string) ([]models.TableRef, error) {
	rows, err := s.executor.ExecuteSQLQuery(ctx, fmt.Sprintf(strings.TrimSpace(`
SELECT table_schema || '.' || table_name AS table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE' AND table_name LIKE %s
ORDER BY table_name`), quoteLiteral(pattern)))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeExecutionFailed, "table listing failed")
	}
	refs := make([]models.TableRef, 0, rows.NumRows())
	for _, row := range rows.Rows {
		if name, ok := row["table_name"].(string); ok && name != "" {
			refs = append(refs, models.TableRef(name))
		}
	}
	return refs, nil
}

// columnsOf lists column names in ordinal order, matching on the bare
// table name.
func (s *DiagnosticsService) columnsOf(ctx context.Context, table models.TableRef) ([]string, error) {
	rows, err := s.executor.ExecuteSQLQuery(ctx, fmt.Sprintf(strings.TrimSpace(`
SELECT column_name
FROM information_schema.columns
WHERE table_name = %s
ORDER BY ordinal_position`), quoteLiteral(table.Bare())))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.CodeExecutionFailed,
			"column listing failed for %s", table.Qualified())
	}
	columns := make([]string, 0, rows.NumRows())
	for _, row := range rows.Rows {
		if name, ok := row["column_name"].(string); ok && name != "" {
			columns = append(columns, name)
		}
	}
	return columns, nil
}

// keyBaseName strips a _id or _key suffix, which marks a column as a
// candidate dimension key.
func keyBaseName(column string) (string, bool) {
	lower := strings.ToLower(column)
	for _, suffix := range []string{"_id", "_key"} {
		if base, ok := strings.CutSuffix(lower, suffix); ok && base != "" {
			return base, true
		}
	}
	return "", false
}

// firstCell returns the named cell of the first row, or "0" when absent.
func firstCell(rows *models.RowSet, column string) string {
	if rows.NumRows() == 0 {
		return "0"
	}
	if v, ok := rows.Rows[0][column]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return "0"
}

// cellFloat coerces a numeric cell to float64.
func cellFloat(value interface{}) float64 {
	switch v := value.(type) {
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case int:
		return float64(v)
	case float64:
		return v
	case float32:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}
