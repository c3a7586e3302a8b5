package services

import (
	"regexp"
	"strings"

	"github.com/tabletalk/tabletalk/pkg/models"
)

// WarningMarker is appended to sanitized text when a nested aggregate
// over a subquery is detected. The pattern is executed anyway; the
// orchestrator surfaces the marker as a soft error.
const WarningMarker = "-- WARNING: nested aggregate over subquery"

var (
	// Extraction ladder, in decreasing order of confidence that the
	// substring is exactly the statement and nothing else.
	sqlFencePattern = regexp.MustCompile("(?is)```sql\\s*(.*?)```")
	anyFencePattern = regexp.MustCompile("(?s)```\\s*(.*?)```")
	withPattern     = regexp.MustCompile(`(?is)\bWITH\s+[A-Za-z_]\w*\s+AS\s*\(.*$`)
	selectPattern   = regexp.MustCompile(`(?is)\bSELECT\b.*$`)

	// Mutating or structural keywords. A single top-level occurrence
	// discards the entire extracted text: sanitization fails closed.
	denyPattern = regexp.MustCompile(
		`(?i)\b(INSERT|UPDATE|DELETE|MERGE|CREATE|ALTER|DROP|TRUNCATE|EXEC|GRANT|REVOKE|DENY)\b`)

	// Aggregate directly wrapping a parenthesized SELECT. Rejecting this
	// outright would be too strict; it gets a warning instead.
	aggOverSubqueryPattern = regexp.MustCompile(
		`(?is)\b(SUM|AVG|MIN|MAX|COUNT)\s*\(\s*\(\s*SELECT\b`)

	// Smart quotes from rich-text model output are not valid statement
	// syntax.
	smartQuoteReplacer = strings.NewReplacer(
		"‘", "'", "’", "'",
		"“", `"`, "”", `"`,
	)
)

// SQLSanitizer extracts executable statement text from raw generator
// output and gates it behind a keyword denylist.
type SQLSanitizer struct{}

// NewSQLSanitizer creates a new sanitizer.
func NewSQLSanitizer() *SQLSanitizer {
	return &SQLSanitizer{}
}

// Sanitize extracts SQL from raw text that may contain prose, code
// fences, or commentary. It returns empty text when nothing executable
// survives the safety gate; rejection is an expected outcome, not an
// error.
func (s *SQLSanitizer) Sanitize(raw string) models.SanitizedSQL {
	text := smartQuoteReplacer.Replace(raw)
	text = strings.TrimSpace(extractStatement(text))
	if text == "" {
		return ""
	}

	if denyPattern.MatchString(text) {
		return ""
	}

	if aggOverSubqueryPattern.MatchString(text) {
		text = text + "\n" + WarningMarker
	}

	return models.SanitizedSQL(text)
}

// HasWarning reports whether sanitized text carries the soft warning
// marker.
func HasWarning(sql models.SanitizedSQL) bool {
	return strings.Contains(string(sql), WarningMarker)
}

// extractStatement walks the extraction ladder: a fenced block tagged as
// SQL, any fenced block, a WITH clause, a SELECT keyword, and finally
// the trimmed input verbatim.
func extractStatement(text string) string {
	if m := sqlFencePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := anyFencePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := withPattern.FindString(text); m != "" {
		return m
	}
	if m := selectPattern.FindString(text); m != "" {
		return m
	}
	return strings.TrimSpace(text)
}
