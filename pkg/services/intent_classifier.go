package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tabletalk/tabletalk/pkg/models"
)

// RuleSet selects which rule tables a classifier instance searches.
type RuleSet int

const (
	// RuleSetGeneric covers administrative intents: listing, describing,
	// counting, and guarded DDL.
	RuleSetGeneric RuleSet = iota
	// RuleSetAnalytic covers the star-schema diagnostic intents.
	RuleSetAnalytic
)

// rule pairs a pattern with a builder. Rules are evaluated in order and
// the first successful build wins; a build that cannot bind its required
// captures falls through to the next rule.
type rule struct {
	pattern *regexp.Regexp
	build   func(raw string, m []string) (models.Action, bool)
}

// IntentClassifier matches normalized free text against an ordered rule
// set. It is a pure function of its input and the static rule tables.
type IntentClassifier struct {
	rules []rule
}

// NewIntentClassifier creates a classifier searching the given rule sets
// in the given order. With no arguments it searches the generic table
// first, then the analytic table; generic rules always keep precedence
// when both sets are requested.
func NewIntentClassifier(sets ...RuleSet) *IntentClassifier {
	if len(sets) == 0 {
		sets = []RuleSet{RuleSetGeneric, RuleSetAnalytic}
	}

	c := &IntentClassifier{}
	seen := make(map[RuleSet]bool, len(sets))
	for _, s := range sets {
		if seen[s] {
			continue
		}
		seen[s] = true
		switch s {
		case RuleSetGeneric:
			c.rules = append(c.rules, genericRules...)
		case RuleSetAnalytic:
			c.rules = append(c.rules, analyticRules...)
		}
	}
	return c
}

// Classify normalizes the input and evaluates the rule tables in order.
// Absence of any match yields the Unknown variant; callers must never
// execute on Unknown.
func (c *IntentClassifier) Classify(text string) models.Action {
	norm := normalizeRequest(text)
	for _, r := range c.rules {
		m := r.pattern.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		if action, ok := r.build(text, m); ok {
			return action
		}
	}
	return models.Unknown(text)
}

// normalizeRequest trims, case-folds, collapses runs of whitespace, and
// strips trailing punctuation.
func normalizeRequest(text string) string {
	norm := strings.ToLower(strings.TrimSpace(text))
	norm = strings.Join(strings.Fields(norm), " ")
	return strings.TrimRight(norm, "?!. ")
}

// concrete builds a ConcreteAction skeleton for a matched rule.
func concrete(raw string, intent models.IntentTag, risk models.RiskLevel, note string) models.Action {
	return models.Action{
		Kind:   models.ActionConcrete,
		Intent: intent,
		Risk:   risk,
		Note:   note,
		Raw:    raw,
	}
}

// genericRules is the ordered admin rule table. Ordering is a designed
// tie-break: narrow phrasings sit above broader ones that share a prefix.
var genericRules = []rule{
	{
		pattern: regexp.MustCompile(`^(?:list|show)(?: all)? tables$`),
		build: func(raw string, m []string) (models.Action, bool) {
			return concrete(raw, models.IntentListTables, models.RiskLow,
				"enumerate base tables with column counts"), true
		},
	},
	{
		pattern: regexp.MustCompile(`^(?:describe|desc)(?: table)? ([a-z_][\w.]*)$`),
		build: func(raw string, m []string) (models.Action, bool) {
			a := concrete(raw, models.IntentDescribeTable, models.RiskLow,
				"show column definitions")
			a.Table = models.TableRef(m[1])
			return a, true
		},
	},
	{
		pattern: regexp.MustCompile(`^(?:row count|count rows?) (?:for|of|in) ([\w.]+)$`),
		build:   buildRowCount,
	},
	{
		pattern: regexp.MustCompile(`^how many rows (?:are )?in ([\w.]+)$`),
		build:   buildRowCount,
	},
	{
		pattern: regexp.MustCompile(`^drop table ([\w.]+)$`),
		build: func(raw string, m []string) (models.Action, bool) {
			a := concrete(raw, models.IntentDropTable, models.RiskHigh,
				"drop table, guarded by existence check")
			a.Table = models.TableRef(m[1])
			return a, true
		},
	},
	{
		// "create table t" with no column body is a clarification, not a
		// rejection: the shape matched but the options were empty.
		pattern: regexp.MustCompile(`^create table ([\w.]+?)(?: with columns?(?: (.+))?)?$`),
		build: func(raw string, m []string) (models.Action, bool) {
			table := m[1]
			columns := strings.TrimSpace(m[2])
			if columns == "" {
				q := fmt.Sprintf("Which columns should %s have? For example: "+
					"\"create table %s with columns id int, name varchar\".", table, table)
				return models.Clarification(raw, q), true
			}
			a := concrete(raw, models.IntentCreateTable, models.RiskMedium,
				"create table, guarded by existence check")
			a.Table = models.TableRef(table)
			a.Options = map[string]string{"columns": columns}
			return a, true
		},
	},
	{
		pattern: regexp.MustCompile(`^add column (\w+)(?: (?:of type |type )?([\w(),]+))? to ([\w.]+)$`),
		build: func(raw string, m []string) (models.Action, bool) {
			a := concrete(raw, models.IntentAddColumn, models.RiskMedium,
				"add column, guarded by column-existence check")
			a.Column = m[1]
			a.Table = models.TableRef(m[3])
			if m[2] != "" {
				a.Options = map[string]string{"type": m[2]}
			}
			return a, true
		},
	},
	{
		pattern: regexp.MustCompile(`^drop column (\w+) from ([\w.]+)$`),
		build: func(raw string, m []string) (models.Action, bool) {
			a := concrete(raw, models.IntentDropColumn, models.RiskHigh,
				"drop column, guarded by column-existence check")
			a.Column = m[1]
			a.Table = models.TableRef(m[2])
			return a, true
		},
	},
	{
		pattern: regexp.MustCompile(`^create index on ([\w.]+)\s*\(\s*(\w+)\s*\)$`),
		build:   buildCreateIndex,
	},
	{
		pattern: regexp.MustCompile(`^(?:create )?index ([\w.]+) on (\w+)$`),
		build:   buildCreateIndex,
	},
}

// analyticRules is the ordered star-schema diagnostic rule table.
var analyticRules = []rule{
	{
		pattern: regexp.MustCompile(`^(?:list |show )?star(?: schema)? overview$`),
		build: func(raw string, m []string) (models.Action, bool) {
			return concrete(raw, models.IntentStarOverview, models.RiskLow,
				"classify tables into fact and dimension roles"), true
		},
	},
	{
		pattern: regexp.MustCompile(`^fact health(?: (?:for|of) ([\w.]+))?$`),
		build: func(raw string, m []string) (models.Action, bool) {
			a := concrete(raw, models.IntentFactHealth, models.RiskLow,
				"row counts across fact tables")
			a.Table = models.TableRef(m[1])
			return a, true
		},
	},
	{
		pattern: regexp.MustCompile(`^orphan check(?: (?:for|of|on) ([\w.]+))?$`),
		build: func(raw string, m []string) (models.Action, bool) {
			a := concrete(raw, models.IntentOrphanCheck, models.RiskLow,
				"fact keys without a matching dimension row")
			a.Table = models.TableRef(m[1])
			return a, true
		},
	},
	{
		pattern: regexp.MustCompile(`^null density (?:for|of|in) ([\w.]+)$`),
		build: func(raw string, m []string) (models.Action, bool) {
			a := concrete(raw, models.IntentNullDensity, models.RiskLow,
				"per-column null ratios")
			a.Table = models.TableRef(m[1])
			return a, true
		},
	},
	{
		pattern: regexp.MustCompile(`^top distribution (?:for|of) ([\w.]+)\.(\w+)$`),
		build: func(raw string, m []string) (models.Action, bool) {
			a := concrete(raw, models.IntentTopDistribution, models.RiskLow,
				"most frequent values of a column")
			a.Table = models.TableRef(m[1])
			a.Column = m[2]
			return a, true
		},
	},
	{
		pattern: regexp.MustCompile(`^top (?:(\d+) )?(\w+) in ([\w.]+)$`),
		build: func(raw string, m []string) (models.Action, bool) {
			a := concrete(raw, models.IntentTopDistribution, models.RiskLow,
				"most frequent values of a column")
			a.Column = m[2]
			a.Table = models.TableRef(m[3])
			if m[1] != "" {
				a.Options = map[string]string{"limit": m[1]}
			}
			return a, true
		},
	},
}

func buildRowCount(raw string, m []string) (models.Action, bool) {
	a := concrete(raw, models.IntentRowCount, models.RiskLow, "aggregate row count")
	a.Table = models.TableRef(m[1])
	return a, true
}

func buildCreateIndex(raw string, m []string) (models.Action, bool) {
	a := concrete(raw, models.IntentCreateIndex, models.RiskMedium,
		"create index, guarded by existence check")
	a.Table = models.TableRef(m[1])
	a.Column = m[2]
	return a, true
}
