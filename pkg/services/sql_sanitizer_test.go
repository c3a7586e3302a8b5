package services

import (
	"strings"
	"testing"

	"github.com/tabletalk/tabletalk/pkg/models"
)

func TestSQLSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewSQLSanitizer()

	tests := []struct {
		name     string
		raw      string
		expected models.SanitizedSQL
	}{
		// Extraction ladder
		{"plain select", "SELECT 1", "SELECT 1"},
		{"sql fence", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"sql fence with prose", "Here you go:\n```sql\nSELECT 1\n```\nLet me know!", "SELECT 1"},
		{"untagged fence", "```\nSELECT 2\n```", "SELECT 2"},
		{"select after prose", "Sure, try SELECT id FROM t", "SELECT id FROM t"},
		{"with clause after prose", "Use this: WITH x AS (SELECT 1) SELECT * FROM x", "WITH x AS (SELECT 1) SELECT * FROM x"},
		{"verbatim fallback", "PRAGMA table_info(t)", "PRAGMA table_info(t)"},
		{"smart quotes normalized", "SELECT * FROM t WHERE name = ‘bob’", "SELECT * FROM t WHERE name = 'bob'"},

		// Fail-closed denylist
		{"insert rejected", "INSERT INTO t VALUES (1)", ""},
		{"update rejected", "UPDATE t SET x = 1", ""},
		{"delete rejected", "DELETE FROM t", ""},
		{"drop rejected", "DROP TABLE x", ""},
		{"create rejected", "CREATE TABLE x (id INT)", ""},
		{"alter rejected", "ALTER TABLE t ADD COLUMN x INT", ""},
		{"truncate rejected", "TRUNCATE TABLE t", ""},
		{"merge rejected", "MERGE INTO t USING s ON t.id = s.id", ""},
		{"grant rejected", "GRANT SELECT ON t TO admin", ""},
		{"lowercase drop rejected", "drop table x", ""},
		{"keyword inside select rejected", "SELECT 1; DROP TABLE t", ""},
		{"keyword inside fence rejected", "```sql\nDELETE FROM t\n```", ""},

		// Substrings of denied words are fine, the match is word-bounded
		{"dropped as identifier", "SELECT dropped_at FROM audit", "SELECT dropped_at FROM audit"},
		{"updates as identifier", "SELECT updates FROM metrics", "SELECT updates FROM metrics"},

		// Nothing executable
		{"empty input", "", ""},
		{"whitespace only", "   \n  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.raw)
			if got != tt.expected {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestSQLSanitizer_FencedSelectRoundTrip(t *testing.T) {
	sanitizer := NewSQLSanitizer()

	got := sanitizer.Sanitize("```sql\nSELECT 1\n```")
	if got != "SELECT 1" {
		t.Fatalf("Sanitize = %q, want exactly %q", got, "SELECT 1")
	}
}

func TestSQLSanitizer_AggregateOverSubqueryWarns(t *testing.T) {
	sanitizer := NewSQLSanitizer()

	raw := "SELECT SUM((SELECT COUNT(*) FROM t2)) FROM t1"
	got := sanitizer.Sanitize(raw)
	if got == "" {
		t.Fatal("Sanitize rejected the statement, want warning marker instead")
	}
	if !HasWarning(got) {
		t.Errorf("Sanitize(%q) = %q, want warning marker appended", raw, got)
	}
	if !strings.HasPrefix(string(got), raw) {
		t.Errorf("warning must be appended, not replace the statement: %q", got)
	}
}

func TestSQLSanitizer_PlainAggregateNoWarning(t *testing.T) {
	sanitizer := NewSQLSanitizer()

	got := sanitizer.Sanitize("SELECT SUM(amount) FROM fact_loans")
	if HasWarning(got) {
		t.Errorf("plain aggregate got a warning: %q", got)
	}
}

func TestHasWarning(t *testing.T) {
	if HasWarning("SELECT 1") {
		t.Error("HasWarning(plain) = true")
	}
	if !HasWarning(models.SanitizedSQL("SELECT 1\n" + WarningMarker)) {
		t.Error("HasWarning(marked) = false")
	}
}
