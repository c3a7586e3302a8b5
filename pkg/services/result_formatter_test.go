package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tabletalk/tabletalk/pkg/models"
)

func TestFormatRowSet_Empty(t *testing.T) {
	assert.Equal(t, NoResultsMarker, FormatRowSet(nil))
	assert.Equal(t, NoResultsMarker, FormatRowSet(&models.RowSet{Columns: []string{"a"}}))
	assert.Equal(t, NoResultsMarker, FormatRowSet(&models.RowSet{
		Rows: []map[string]interface{}{{"a": 1}},
	}))
}

func TestFormatRowSet_Table(t *testing.T) {
	rs := &models.RowSet{
		Columns: []string{"table_name", "row_count"},
		Rows: []map[string]interface{}{
			{"table_name": "dim_customer", "row_count": int64(42)},
			{"table_name": "fact_loans", "row_count": int64(120000)},
		},
	}

	got := FormatRowSet(rs)
	want := strings.Join([]string{
		"table_name    row_count",
		"------------  ---------",
		"dim_customer  42",
		"fact_loans    120000",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatRowSet_ColumnOrderFollowsResult(t *testing.T) {
	rs := &models.RowSet{
		Columns: []string{"b", "a"},
		Rows:    []map[string]interface{}{{"a": 1, "b": 2}},
	}

	lines := strings.Split(FormatRowSet(rs), "\n")
	assert.Equal(t, "b  a", lines[0])
	assert.Equal(t, "2  1", lines[2])
}

func TestFormatRowSet_NullCell(t *testing.T) {
	rs := &models.RowSet{
		Columns: []string{"name"},
		Rows:    []map[string]interface{}{{"name": nil}},
	}

	got := FormatRowSet(rs)
	assert.Contains(t, got, "NULL")
}

func TestFormatRowSet_WidthFromWidestCell(t *testing.T) {
	rs := &models.RowSet{
		Columns: []string{"x", "y"},
		Rows: []map[string]interface{}{
			{"x": "a-rather-long-value", "y": 1},
			{"x": "s", "y": 2},
		},
	}

	lines := strings.Split(FormatRowSet(rs), "\n")
	// Every y column starts at the same offset: width of the widest x cell
	// plus the two-space gutter.
	offset := len("a-rather-long-value") + 2
	assert.Equal(t, "1", strings.TrimSpace(lines[2][offset:]))
	assert.Equal(t, "2", strings.TrimSpace(lines[3][offset:]))
}

func TestFormatRowSet_NoTrailingNewline(t *testing.T) {
	rs := &models.RowSet{
		Columns: []string{"a"},
		Rows:    []map[string]interface{}{{"a": 1}},
	}
	assert.False(t, strings.HasSuffix(FormatRowSet(rs), "\n"))
}
