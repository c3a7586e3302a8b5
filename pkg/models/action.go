// Package models provides data structures used throughout the pipeline.
package models

import (
	"strings"
)

// IntentTag identifies the category a natural-language request is
// classified into. The set is closed; every tag implies a fixed arity of
// captured parameters.
type IntentTag int

const (
	IntentListTables IntentTag = iota
	IntentDescribeTable
	IntentRowCount
	IntentDropTable
	IntentCreateTable
	IntentAddColumn
	IntentDropColumn
	IntentCreateIndex
	IntentStarOverview
	IntentFactHealth
	IntentOrphanCheck
	IntentNullDensity
	IntentTopDistribution
)

// String returns the string representation of the intent tag.
func (t IntentTag) String() string {
	switch t {
	case IntentListTables:
		return "list_tables"
	case IntentDescribeTable:
		return "describe_table"
	case IntentRowCount:
		return "row_count"
	case IntentDropTable:
		return "drop_table"
	case IntentCreateTable:
		return "create_table"
	case IntentAddColumn:
		return "add_column"
	case IntentDropColumn:
		return "drop_column"
	case IntentCreateIndex:
		return "create_index"
	case IntentStarOverview:
		return "star_overview"
	case IntentFactHealth:
		return "fact_health"
	case IntentOrphanCheck:
		return "orphan_check"
	case IntentNullDensity:
		return "null_density"
	case IntentTopDistribution:
		return "top_distribution"
	default:
		return "unknown"
	}
}

// IsDiagnostic reports whether the intent belongs to the star-schema
// diagnostic family. Diagnostic intents never render to SQL; they are
// dispatched to the reporting service instead.
func (t IntentTag) IsDiagnostic() bool {
	switch t {
	case IntentStarOverview, IntentFactHealth, IntentOrphanCheck,
		IntentNullDensity, IntentTopDistribution:
		return true
	default:
		return false
	}
}

// RiskLevel is advisory severity metadata attached to an action at
// classification time, consumed by an external confirmation gate.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
)

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// TableRef is a dotted identifier, either schema-qualified or bare.
type TableRef string

// Qualified returns the full dotted form, used in statement bodies.
func (t TableRef) Qualified() string {
	return string(t)
}

// Bare returns the final segment after the last dot. Catalog lookup
// predicates match on the bare name only.
func (t TableRef) Bare() string {
	s := string(t)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

// IsEmpty reports whether the reference is unset.
func (t TableRef) IsEmpty() bool {
	return t == ""
}

// ColumnSpec is a single column definition parsed from free text.
// An unrecognized or missing type token falls back to a fixed-width
// text type; the permissiveness is deliberate.
type ColumnSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ActionKind discriminates the Action variants.
type ActionKind int

const (
	// ActionConcrete carries a recognized intent and its parameters.
	ActionConcrete ActionKind = iota
	// ActionUnknown means no rule matched; callers must never execute on it.
	ActionUnknown
	// ActionClarification means a rule matched the shape of the request
	// but a required option body was empty; callers re-prompt.
	ActionClarification
)

// Action is the structured result of classification.
type Action struct {
	Kind     ActionKind        `json:"kind"`
	Intent   IntentTag         `json:"intent,omitempty"`
	Table    TableRef          `json:"table,omitempty"`
	Column   string            `json:"column,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
	Risk     RiskLevel         `json:"risk"`
	Note     string            `json:"note,omitempty"`
	Raw      string            `json:"raw"`
	Question string            `json:"question,omitempty"`
}

// Unknown builds the no-rule-matched variant.
func Unknown(raw string) Action {
	return Action{Kind: ActionUnknown, Raw: raw}
}

// Clarification builds the missing-detail variant.
func Clarification(raw, question string) Action {
	return Action{Kind: ActionClarification, Raw: raw, Question: question}
}

// Option returns a captured option value, or "" when absent.
func (a Action) Option(key string) string {
	if a.Options == nil {
		return ""
	}
	return a.Options[key]
}

// IsExecutable reports whether a caller may proceed toward rendering and
// execution on this action.
func (a Action) IsExecutable() bool {
	return a.Kind == ActionConcrete
}
