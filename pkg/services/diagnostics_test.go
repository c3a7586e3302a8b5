package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletalk/tabletalk/pkg/infrastructure/metrics"
	"github.com/tabletalk/tabletalk/pkg/models"
)

// scriptedExecutor answers queries by first matching substring.
type scriptedExecutor struct {
	responses []scriptedResponse
	executed  []string
}

type scriptedResponse struct {
	contains string
	rows     *models.RowSet
	err      error
}

func (s *scriptedExecutor) ExecuteSQLQuery(ctx context.Context, sql string) (*models.RowSet, error) {
	s.executed = append(s.executed, sql)
	for _, r := range s.responses {
		if strings.Contains(sql, r.contains) {
			return r.rows, r.err
		}
	}
	return nil, fmt.Errorf("unexpected query: %s", sql)
}

func singleRow(row map[string]interface{}) *models.RowSet {
	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	return &models.RowSet{Columns: columns, Rows: []map[string]interface{}{row}}
}

func newTestDiagnostics(executor QueryExecutor) *DiagnosticsService {
	return NewDiagnosticsService(executor, zerolog.Nop(), metrics.NewNoOpCollector())
}

func diagnosticAction(intent models.IntentTag, table models.TableRef) models.Action {
	return models.Action{Kind: models.ActionConcrete, Intent: intent, Table: table}
}

func TestDiagnostics_RejectsNonDiagnosticIntent(t *testing.T) {
	svc := newTestDiagnostics(&scriptedExecutor{})

	_, err := svc.Report(context.Background(), diagnosticAction(models.IntentRowCount, "t"))
	require.Error(t, err)
}

func TestDiagnostics_StarOverview(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: "CASE WHEN", rows: &models.RowSet{
			Columns: []string{"table_name", "role", "column_count"},
			Rows: []map[string]interface{}{
				{"table_name": "main.dim_customer", "role": "dimension", "column_count": int64(5)},
				{"table_name": "main.fact_loans", "role": "fact", "column_count": int64(9)},
			},
		}},
	}}
	svc := newTestDiagnostics(executor)

	report, err := svc.Report(context.Background(), diagnosticAction(models.IntentStarOverview, ""))
	require.NoError(t, err)
	assert.Contains(t, report, "Star schema overview")
	assert.Contains(t, report, "main.fact_loans")
	assert.Contains(t, report, "dimension")
}

func TestDiagnostics_FactHealthNamedTable(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: `COUNT(*) AS row_count FROM "fact_loans"`, rows: singleRow(map[string]interface{}{"row_count": int64(120000)})},
	}}
	svc := newTestDiagnostics(executor)

	report, err := svc.Report(context.Background(), diagnosticAction(models.IntentFactHealth, "fact_loans"))
	require.NoError(t, err)
	assert.Contains(t, report, "fact_loans: 120000 rows")
}

func TestDiagnostics_FactHealthDiscoversFactTables(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: "LIKE 'fact_%'", rows: &models.RowSet{
			Columns: []string{"table_name"},
			Rows: []map[string]interface{}{
				{"table_name": "main.fact_loans"},
				{"table_name": "main.fact_payments"},
			},
		}},
		{contains: `FROM "main"."fact_loans"`, rows: singleRow(map[string]interface{}{"row_count": int64(10)})},
		{contains: `FROM "main"."fact_payments"`, rows: singleRow(map[string]interface{}{"row_count": int64(20)})},
	}}
	svc := newTestDiagnostics(executor)

	report, err := svc.Report(context.Background(), diagnosticAction(models.IntentFactHealth, ""))
	require.NoError(t, err)
	assert.Contains(t, report, "main.fact_loans: 10 rows")
	assert.Contains(t, report, "main.fact_payments: 20 rows")
}

func TestDiagnostics_FactHealthNoFactTables(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: "LIKE 'fact_%'", rows: &models.RowSet{Columns: []string{"table_name"}}},
	}}
	svc := newTestDiagnostics(executor)

	report, err := svc.Report(context.Background(), diagnosticAction(models.IntentFactHealth, ""))
	require.NoError(t, err)
	assert.Contains(t, report, "no fact tables found")
}

func TestDiagnostics_OrphanCheck(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: "LIKE 'dim_%'", rows: &models.RowSet{
			Columns: []string{"table_name"},
			Rows:    []map[string]interface{}{{"table_name": "main.dim_customer"}},
		}},
		{contains: "column_name", rows: &models.RowSet{
			Columns: []string{"column_name"},
			Rows: []map[string]interface{}{
				{"column_name": "loan_nr"},
				{"column_name": "customer_id"},
				{"column_name": "amount"},
			},
		}},
		{contains: "AS orphans", rows: singleRow(map[string]interface{}{"orphans": int64(3)})},
	}}
	svc := newTestDiagnostics(executor)

	report, err := svc.Report(context.Background(), diagnosticAction(models.IntentOrphanCheck, "fact_loans"))
	require.NoError(t, err)
	assert.Contains(t, report, "fact_loans.customer_id -> main.dim_customer: 3 orphans")
	// loan_nr has no matching dimension and amount has no key suffix.
	assert.NotContains(t, report, "loan_nr")
	assert.NotContains(t, report, "amount")
}

func TestDiagnostics_OrphanCheckNoPairs(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: "LIKE 'dim_%'", rows: &models.RowSet{Columns: []string{"table_name"}}},
		{contains: "column_name", rows: &models.RowSet{
			Columns: []string{"column_name"},
			Rows:    []map[string]interface{}{{"column_name": "amount"}},
		}},
	}}
	svc := newTestDiagnostics(executor)

	report, err := svc.Report(context.Background(), diagnosticAction(models.IntentOrphanCheck, "fact_loans"))
	require.NoError(t, err)
	assert.Contains(t, report, "no fact-to-dimension key pairs found")
}

func TestDiagnostics_NullDensity(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: "column_name", rows: &models.RowSet{
			Columns: []string{"column_name"},
			Rows: []map[string]interface{}{
				{"column_name": "city"},
				{"column_name": "segment"},
			},
		}},
		{contains: "total_rows", rows: singleRow(map[string]interface{}{
			"total_rows": int64(100),
			"city":       int64(100),
			"segment":    int64(25),
		})},
	}}
	svc := newTestDiagnostics(executor)

	report, err := svc.Report(context.Background(), diagnosticAction(models.IntentNullDensity, "dim_customer"))
	require.NoError(t, err)
	assert.Contains(t, report, "Null density for dim_customer (100 rows)")
	assert.Contains(t, report, "city: 0.0% null")
	assert.Contains(t, report, "segment: 75.0% null")
}

func TestDiagnostics_NullDensityUnknownTable(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: "column_name", rows: &models.RowSet{Columns: []string{"column_name"}}},
	}}
	svc := newTestDiagnostics(executor)

	_, err := svc.Report(context.Background(), diagnosticAction(models.IntentNullDensity, "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")
}

func TestDiagnostics_TopDistribution(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: "GROUP BY 1", rows: &models.RowSet{
			Columns: []string{"value", "occurrences"},
			Rows: []map[string]interface{}{
				{"value": "Vienna", "occurrences": int64(40)},
				{"value": "Graz", "occurrences": int64(12)},
			},
		}},
	}}
	svc := newTestDiagnostics(executor)

	action := diagnosticAction(models.IntentTopDistribution, "dim_customer")
	action.Column = "city"
	report, err := svc.Report(context.Background(), action)
	require.NoError(t, err)
	assert.Contains(t, report, "Top 10 values of dim_customer.city")
	assert.Contains(t, report, "Vienna")

	require.NotEmpty(t, executor.executed)
	assert.Contains(t, executor.executed[len(executor.executed)-1], "LIMIT 10")
}

func TestDiagnostics_TopDistributionCustomLimit(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: "GROUP BY 1", rows: &models.RowSet{Columns: []string{"value", "occurrences"}}},
	}}
	svc := newTestDiagnostics(executor)

	action := diagnosticAction(models.IntentTopDistribution, "dim_customer")
	action.Column = "city"
	action.Options = map[string]string{"limit": "5"}
	report, err := svc.Report(context.Background(), action)
	require.NoError(t, err)
	assert.Contains(t, report, "Top 5 values")
	assert.Contains(t, executor.executed[0], "LIMIT 5")
}

func TestDiagnostics_ExecutionErrorPropagates(t *testing.T) {
	executor := &scriptedExecutor{responses: []scriptedResponse{
		{contains: "CASE WHEN", err: errors.New("catalog offline")},
	}}
	svc := newTestDiagnostics(executor)

	_, err := svc.Report(context.Background(), diagnosticAction(models.IntentStarOverview, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "star overview query failed")
}
