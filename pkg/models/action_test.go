package models

import (
	"testing"
)

func TestTableRef(t *testing.T) {
	tests := []struct {
		ref       TableRef
		qualified string
		bare      string
	}{
		{"fact_loans", "fact_loans", "fact_loans"},
		{"staging.tmp_loads", "staging.tmp_loads", "tmp_loads"},
		{"cat.staging.pay", "cat.staging.pay", "pay"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := tt.ref.Qualified(); got != tt.qualified {
			t.Errorf("%q.Qualified() = %q", tt.ref, got)
		}
		if got := tt.ref.Bare(); got != tt.bare {
			t.Errorf("%q.Bare() = %q", tt.ref, got)
		}
	}
	if !TableRef("").IsEmpty() {
		t.Error("empty ref IsEmpty() = false")
	}
	if TableRef("t").IsEmpty() {
		t.Error("non-empty ref IsEmpty() = true")
	}
}

func TestIntentTag_IsDiagnostic(t *testing.T) {
	diagnostics := []IntentTag{
		IntentStarOverview, IntentFactHealth, IntentOrphanCheck,
		IntentNullDensity, IntentTopDistribution,
	}
	for _, tag := range diagnostics {
		if !tag.IsDiagnostic() {
			t.Errorf("%s.IsDiagnostic() = false", tag)
		}
	}
	admin := []IntentTag{
		IntentListTables, IntentDescribeTable, IntentRowCount,
		IntentDropTable, IntentCreateTable, IntentAddColumn,
		IntentDropColumn, IntentCreateIndex,
	}
	for _, tag := range admin {
		if tag.IsDiagnostic() {
			t.Errorf("%s.IsDiagnostic() = true", tag)
		}
	}
}

func TestAction_IsExecutable(t *testing.T) {
	if Unknown("x").IsExecutable() {
		t.Error("unknown action is executable")
	}
	if Clarification("x", "which columns?").IsExecutable() {
		t.Error("clarification action is executable")
	}
	concrete := Action{Kind: ActionConcrete, Intent: IntentListTables}
	if !concrete.IsExecutable() {
		t.Error("concrete action is not executable")
	}
}

func TestAction_Option(t *testing.T) {
	a := Action{Options: map[string]string{"limit": "5"}}
	if got := a.Option("limit"); got != "5" {
		t.Errorf("Option(limit) = %q", got)
	}
	if got := a.Option("missing"); got != "" {
		t.Errorf("Option(missing) = %q", got)
	}
	var empty Action
	if got := empty.Option("limit"); got != "" {
		t.Errorf("Option on nil map = %q", got)
	}
}

func TestRiskLevelOrdering(t *testing.T) {
	if !(RiskLow < RiskMedium && RiskMedium < RiskHigh) {
		t.Error("risk levels are not ordered low < medium < high")
	}
}
