package services

import (
	"fmt"
	"strings"

	"github.com/tabletalk/tabletalk/pkg/models"
)

// DefaultColumnType is the fixed-width text type every unrecognized or
// missing column type token falls back to. The permissiveness is
// deliberate: the renderer never hard-fails on a malformed column list.
const DefaultColumnType = "VARCHAR(255)"

// identityColumn is the synthetic column emitted when a parsed column
// list comes out empty, so the renderer never emits an empty definition
// list.
const identityColumn = `"id" BIGINT PRIMARY KEY`

// simpleTypes is the recognized column type set. Tokens are matched on
// their base name, before any precision suffix.
var simpleTypes = map[string]bool{
	"INT": true, "INTEGER": true, "BIGINT": true, "SMALLINT": true,
	"TINYINT": true, "DECIMAL": true, "NUMERIC": true, "FLOAT": true,
	"REAL": true, "DOUBLE": true, "DATE": true, "TIME": true,
	"TIMESTAMP": true, "DATETIME": true, "VARCHAR": true, "CHAR": true,
	"TEXT": true, "BOOLEAN": true, "BOOL": true, "UUID": true, "BLOB": true,
}

// SQLRenderer renders concrete actions into statement text using fixed
// templates with deterministic parameter substitution. It is a pure
// function of the action.
type SQLRenderer struct{}

// NewSQLRenderer creates a new renderer.
func NewSQLRenderer() *SQLRenderer {
	return &SQLRenderer{}
}

// Render returns the statement for a concrete action, or ok=false for
// the diagnostic intents, which a caller must dispatch to the reporting
// service instead of treating as an error.
func (r *SQLRenderer) Render(action models.Action) (models.TrustedSQL, bool) {
	if action.Kind != models.ActionConcrete || action.Intent.IsDiagnostic() {
		return "", false
	}

	switch action.Intent {
	case models.IntentListTables:
		return r.renderListTables(), true
	case models.IntentDescribeTable:
		return r.renderDescribeTable(action.Table), true
	case models.IntentRowCount:
		return r.renderRowCount(action.Table), true
	case models.IntentDropTable:
		return r.renderDropTable(action.Table), true
	case models.IntentCreateTable:
		return r.renderCreateTable(action.Table, action.Option("columns")), true
	case models.IntentAddColumn:
		return r.renderAddColumn(action.Table, action.Column, action.Option("type")), true
	case models.IntentDropColumn:
		return r.renderDropColumn(action.Table, action.Column), true
	case models.IntentCreateIndex:
		return r.renderCreateIndex(action.Table, action.Column), true
	default:
		return "", false
	}
}

func (r *SQLRenderer) renderListTables() models.TrustedSQL {
	return models.TrustedSQL(strings.TrimSpace(`
SELECT t.table_schema || '.' || t.table_name AS table_name,
       COUNT(c.column_name) AS column_count
FROM information_schema.tables t
LEFT JOIN information_schema.columns c
  ON c.table_schema = t.table_schema AND c.table_name = t.table_name
WHERE t.table_type = 'BASE TABLE'
GROUP BY t.table_schema, t.table_name
ORDER BY table_name`))
}

// renderDescribeTable uses only the unqualified name in the lookup
// predicate; the catalog matches on bare table names.
func (r *SQLRenderer) renderDescribeTable(table models.TableRef) models.TrustedSQL {
	return models.TrustedSQL(fmt.Sprintf(strings.TrimSpace(`
SELECT column_name, data_type, is_nullable, character_maximum_length
FROM information_schema.columns
WHERE table_name = %s
ORDER BY ordinal_position`), quoteLiteral(table.Bare())))
}

func (r *SQLRenderer) renderRowCount(table models.TableRef) models.TrustedSQL {
	return models.TrustedSQL(fmt.Sprintf(
		"SELECT COUNT(*) AS row_count FROM %s", quoteQualified(table)))
}

func (r *SQLRenderer) renderDropTable(table models.TableRef) models.TrustedSQL {
	return models.TrustedSQL(fmt.Sprintf(
		"DROP TABLE IF EXISTS %s", quoteQualified(table)))
}

func (r *SQLRenderer) renderCreateTable(table models.TableRef, columns string) models.TrustedSQL {
	defs := make([]string, 0, 4)
	for _, spec := range ParseColumnList(columns) {
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(spec.Name), spec.Type))
	}
	if len(defs) == 0 {
		defs = append(defs, identityColumn)
	}
	return models.TrustedSQL(fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		quoteQualified(table), strings.Join(defs, ",\n  ")))
}

func (r *SQLRenderer) renderAddColumn(table models.TableRef, column, typeToken string) models.TrustedSQL {
	return models.TrustedSQL(fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
		quoteQualified(table), quoteIdent(column), resolveColumnType(typeToken)))
}

func (r *SQLRenderer) renderDropColumn(table models.TableRef, column string) models.TrustedSQL {
	return models.TrustedSQL(fmt.Sprintf(
		"ALTER TABLE %s DROP COLUMN IF EXISTS %s",
		quoteQualified(table), quoteIdent(column)))
}

// renderCreateIndex derives the index name deterministically from the
// bare table name and the first indexed column.
func (r *SQLRenderer) renderCreateIndex(table models.TableRef, column string) models.TrustedSQL {
	indexName := fmt.Sprintf("idx_%s_%s", table.Bare(), column)
	return models.TrustedSQL(fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		quoteIdent(indexName), quoteQualified(table), quoteIdent(column)))
}

// ParseColumnList splits free-form column text on commas, then each
// segment on whitespace into (name, optional type token). Column types
// outside the recognized set fall back to the default text type.
// Parenthesized precision suffixes keep a comma-split segment glued to
// its predecessor when the parentheses are unbalanced.
func ParseColumnList(columns string) []models.ColumnSpec {
	var specs []models.ColumnSpec
	for _, segment := range splitColumnSegments(columns) {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}
		name := strings.Trim(fields[0], `"`)
		if name == "" {
			continue
		}
		typeToken := ""
		if len(fields) > 1 {
			typeToken = strings.Join(fields[1:], " ")
		}
		specs = append(specs, models.ColumnSpec{
			Name: name,
			Type: resolveColumnType(typeToken),
		})
	}
	return specs
}

// splitColumnSegments splits on commas outside parentheses, so
// "amount decimal(18,2)" stays one segment.
func splitColumnSegments(columns string) []string {
	var segments []string
	depth := 0
	start := 0
	for i, ch := range columns {
		switch ch {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				segments = append(segments, columns[start:i])
				start = i + 1
			}
		}
	}
	segments = append(segments, columns[start:])
	return segments
}

// resolveColumnType uppercases a type token and keeps it verbatim when
// its base name is recognized; anything else becomes the default text
// type rather than an error.
func resolveColumnType(token string) string {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		return DefaultColumnType
	}
	base := token
	if i := strings.Index(base, "("); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSpace(base)
	if simpleTypes[base] {
		return token
	}
	return DefaultColumnType
}

// quoteQualified quotes each dotted segment of a table reference for use
// in a statement body.
func quoteQualified(table models.TableRef) string {
	parts := strings.Split(table.Qualified(), ".")
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteLiteral single-quotes a string literal for lookup predicates.
func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
