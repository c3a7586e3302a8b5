package services

import (
	"fmt"
	"strings"

	"github.com/tabletalk/tabletalk/pkg/models"
)

// NoResultsMarker is rendered in place of an empty table.
const NoResultsMarker = "no results"

// FormatRowSet renders rows as a fixed-width textual table. Column
// widths are the maximum of the header length and every cell's string
// length in that column. Empty row sets render the literal no-results
// marker.
func FormatRowSet(rs *models.RowSet) string {
	if rs == nil || len(rs.Rows) == 0 || len(rs.Columns) == 0 {
		return NoResultsMarker
	}

	widths := make([]int, len(rs.Columns))
	for i, col := range rs.Columns {
		widths[i] = len(col)
	}

	cells := make([][]string, len(rs.Rows))
	for ri, row := range rs.Rows {
		cells[ri] = make([]string, len(rs.Columns))
		for ci, col := range rs.Columns {
			cell := formatCell(row[col])
			cells[ri][ci] = cell
			if len(cell) > widths[ci] {
				widths[ci] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow(&b, rs.Columns, widths)
	dashes := make([]string, len(rs.Columns))
	for i, w := range widths {
		dashes[i] = strings.Repeat("-", w)
	}
	writeRow(&b, dashes, widths)
	for _, row := range cells {
		writeRow(&b, row, widths)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(cell)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-len(cell)))
		}
	}
	b.WriteString("\n")
}

func formatCell(value interface{}) string {
	if value == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", value)
}
