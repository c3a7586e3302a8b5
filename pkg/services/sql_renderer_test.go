package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletalk/tabletalk/pkg/models"
)

func concreteAction(intent models.IntentTag, table models.TableRef) models.Action {
	return models.Action{
		Kind:   models.ActionConcrete,
		Intent: intent,
		Table:  table,
	}
}

func TestSQLRenderer_RowCount(t *testing.T) {
	renderer := NewSQLRenderer()

	sql, ok := renderer.Render(concreteAction(models.IntentRowCount, "fact_loans"))
	require.True(t, ok)
	assert.Equal(t, models.TrustedSQL(`SELECT COUNT(*) AS row_count FROM "fact_loans"`), sql)
}

func TestSQLRenderer_RowCountQualified(t *testing.T) {
	renderer := NewSQLRenderer()

	sql, ok := renderer.Render(concreteAction(models.IntentRowCount, "staging.tmp_loads"))
	require.True(t, ok)
	assert.Equal(t, models.TrustedSQL(`SELECT COUNT(*) AS row_count FROM "staging"."tmp_loads"`), sql)
}

func TestSQLRenderer_DescribeTableUsesBareName(t *testing.T) {
	renderer := NewSQLRenderer()

	sql, ok := renderer.Render(concreteAction(models.IntentDescribeTable, "staging.dim_customer"))
	require.True(t, ok)
	// Catalog lookups match on the unqualified name.
	assert.Contains(t, string(sql), "table_name = 'dim_customer'")
	assert.Contains(t, string(sql), "ORDER BY ordinal_position")
	assert.NotContains(t, string(sql), "staging")
}

func TestSQLRenderer_DropTableGuarded(t *testing.T) {
	renderer := NewSQLRenderer()

	sql, ok := renderer.Render(concreteAction(models.IntentDropTable, "staging.tmp_loads"))
	require.True(t, ok)
	assert.Equal(t, models.TrustedSQL(`DROP TABLE IF EXISTS "staging"."tmp_loads"`), sql)
}

func TestSQLRenderer_CreateTable(t *testing.T) {
	renderer := NewSQLRenderer()

	action := concreteAction(models.IntentCreateTable, "staging.pay")
	action.Options = map[string]string{"columns": "id int, amount decimal(18,2), payee text"}

	sql, ok := renderer.Render(action)
	require.True(t, ok)
	assert.Equal(t, models.TrustedSQL(strings.TrimSpace(`
CREATE TABLE IF NOT EXISTS "staging"."pay" (
  "id" INT,
  "amount" DECIMAL(18,2),
  "payee" TEXT
)`)), sql)
}

func TestSQLRenderer_CreateTableEmptyColumnsGetsIdentity(t *testing.T) {
	renderer := NewSQLRenderer()

	action := concreteAction(models.IntentCreateTable, "pay")
	action.Options = map[string]string{"columns": "  , ,  "}

	sql, ok := renderer.Render(action)
	require.True(t, ok)
	assert.Contains(t, string(sql), `"id" BIGINT PRIMARY KEY`)
}

func TestSQLRenderer_AddColumn(t *testing.T) {
	renderer := NewSQLRenderer()

	action := concreteAction(models.IntentAddColumn, "fact_loans")
	action.Column = "loaded_at"
	action.Options = map[string]string{"type": "timestamp"}

	sql, ok := renderer.Render(action)
	require.True(t, ok)
	assert.Equal(t, models.TrustedSQL(
		`ALTER TABLE "fact_loans" ADD COLUMN IF NOT EXISTS "loaded_at" TIMESTAMP`), sql)
}

func TestSQLRenderer_AddColumnDefaultsType(t *testing.T) {
	renderer := NewSQLRenderer()

	action := concreteAction(models.IntentAddColumn, "dim_customer")
	action.Column = "note"

	sql, ok := renderer.Render(action)
	require.True(t, ok)
	assert.Equal(t, models.TrustedSQL(
		`ALTER TABLE "dim_customer" ADD COLUMN IF NOT EXISTS "note" VARCHAR(255)`), sql)
}

func TestSQLRenderer_DropColumn(t *testing.T) {
	renderer := NewSQLRenderer()

	action := concreteAction(models.IntentDropColumn, "dim_customer")
	action.Column = "note"

	sql, ok := renderer.Render(action)
	require.True(t, ok)
	assert.Equal(t, models.TrustedSQL(
		`ALTER TABLE "dim_customer" DROP COLUMN IF EXISTS "note"`), sql)
}

func TestSQLRenderer_CreateIndexNameFromBareTable(t *testing.T) {
	renderer := NewSQLRenderer()

	action := concreteAction(models.IntentCreateIndex, "main.fact_loans")
	action.Column = "customer_id"

	sql, ok := renderer.Render(action)
	require.True(t, ok)
	assert.Equal(t, models.TrustedSQL(
		`CREATE INDEX IF NOT EXISTS "idx_fact_loans_customer_id" ON "main"."fact_loans" ("customer_id")`), sql)
}

func TestSQLRenderer_ListTables(t *testing.T) {
	renderer := NewSQLRenderer()

	sql, ok := renderer.Render(concreteAction(models.IntentListTables, ""))
	require.True(t, ok)
	assert.Contains(t, string(sql), "information_schema.tables")
	assert.Contains(t, string(sql), "column_count")
	assert.Contains(t, string(sql), "table_type = 'BASE TABLE'")
}

func TestSQLRenderer_DiagnosticsNotRendered(t *testing.T) {
	renderer := NewSQLRenderer()

	for _, intent := range []models.IntentTag{
		models.IntentStarOverview,
		models.IntentFactHealth,
		models.IntentOrphanCheck,
		models.IntentNullDensity,
		models.IntentTopDistribution,
	} {
		_, ok := renderer.Render(concreteAction(intent, "fact_loans"))
		assert.False(t, ok, "diagnostic intent %s must not render", intent)
	}
}

func TestSQLRenderer_NonConcreteNotRendered(t *testing.T) {
	renderer := NewSQLRenderer()

	_, ok := renderer.Render(models.Unknown("gibberish"))
	assert.False(t, ok)

	_, ok = renderer.Render(models.Clarification("create table x", "which columns?"))
	assert.False(t, ok)
}

func TestSQLRenderer_Deterministic(t *testing.T) {
	renderer := NewSQLRenderer()

	action := concreteAction(models.IntentCreateTable, "staging.pay")
	action.Options = map[string]string{"columns": "id bigint, name varchar(40)"}

	first, ok := renderer.Render(action)
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, ok := renderer.Render(action)
		require.True(t, ok)
		require.Equal(t, first, again)
	}
}

func TestParseColumnList(t *testing.T) {
	tests := []struct {
		name    string
		columns string
		want    []models.ColumnSpec
	}{
		{
			name:    "simple pair",
			columns: "id int, name varchar",
			want: []models.ColumnSpec{
				{Name: "id", Type: "INT"},
				{Name: "name", Type: "VARCHAR"},
			},
		},
		{
			name:    "precision suffix stays glued",
			columns: "amount decimal(18,2)",
			want:    []models.ColumnSpec{{Name: "amount", Type: "DECIMAL(18,2)"}},
		},
		{
			name:    "unknown type falls back",
			columns: "payload jsonb",
			want:    []models.ColumnSpec{{Name: "payload", Type: "VARCHAR(255)"}},
		},
		{
			name:    "missing type falls back",
			columns: "note",
			want:    []models.ColumnSpec{{Name: "note", Type: "VARCHAR(255)"}},
		},
		{
			name:    "empty segments skipped",
			columns: " , id int, ",
			want:    []models.ColumnSpec{{Name: "id", Type: "INT"}},
		},
		{
			name:    "quoted name unquoted",
			columns: `"order" int`,
			want:    []models.ColumnSpec{{Name: "order", Type: "INT"}},
		},
		{
			name:    "blank input",
			columns: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseColumnList(tt.columns))
		})
	}
}
