package domain

import (
	"github.com/c360studio/specintel/template"
)

// Severity classifies how serious a rule violation is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

var severities = []string{string(SeverityError), string(SeverityWarning), string(SeverityInfo)}

// Valid reports whether s is one of the three legal severities.
func (s Severity) Valid() bool {
	return s == SeverityError || s == SeverityWarning || s == SeverityInfo
}

// Rank orders severities for sorting: error > warning > info. Lower rank
// sorts first. Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Presentation maps the engine's three-level severity onto the four-level
// scale some exporters use. The engine itself never consumes these values.
func (s Severity) Presentation() string {
	switch s {
	case SeverityError:
		return "critical"
	case SeverityWarning:
		return "medium"
	case SeverityInfo:
		return "low"
	default:
		return "low"
	}
}

// ConflictRule is a named predicate definition evaluated by the conflict
// detector. The condition is a statement interpreted by an external
// evaluator, not executable code.
type ConflictRule struct {
	// RuleID uniquely identifies the rule within a rule set.
	RuleID string `yaml:"rule_id" json:"rule_id"`

	// Name is the human-readable rule name.
	Name string `yaml:"name" json:"name"`

	// Description explains what the rule guards against.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Condition states what must hold over the current specification
	// snapshot (e.g. "no two current specs in category 'performance'
	// may set contradictory numeric targets").
	Condition string `yaml:"condition" json:"condition"`

	// Severity of a violation: error, warning, or info.
	Severity Severity `yaml:"severity" json:"severity"`

	// Message is the violation explanation template.
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// ConflictRuleKind describes conflict rules to the template engine.
func ConflictRuleKind() template.Kind[ConflictRule] {
	return template.Kind[ConflictRule]{
		Name:     "conflict_rule",
		KeyField: "rule_id",
		Key:      func(r ConflictRule) string { return r.RuleID },
		Check: func(r ConflictRule) []template.ValidationIssue {
			var issues []template.ValidationIssue
			if r.RuleID == "" {
				issues = append(issues, template.MissingField(r.RuleID, "rule_id"))
			}
			if r.Name == "" {
				issues = append(issues, template.MissingField(r.RuleID, "name"))
			}
			if r.Condition == "" {
				issues = append(issues, template.MissingField(r.RuleID, "condition"))
			}
			switch {
			case r.Severity == "":
				issues = append(issues, template.MissingField(r.RuleID, "severity"))
			case !r.Severity.Valid():
				issues = append(issues, template.IllegalValue(r.RuleID, "severity", string(r.Severity), severities))
			}
			return issues
		},
		Fields: map[string]func(ConflictRule) []string{
			"rule_id":  func(r ConflictRule) []string { return []string{r.RuleID} },
			"severity": func(r ConflictRule) []string { return []string{string(r.Severity)} },
		},
	}
}

// NewConflictRuleEngine creates a template engine for conflict rules.
func NewConflictRuleEngine() *template.Engine[ConflictRule] {
	return template.NewEngine(ConflictRuleKind())
}
