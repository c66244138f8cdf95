package conflict

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/c360studio/specintel/domain"
	"github.com/c360studio/specintel/specification"
)

// Condition parsing patterns.
var (
	// categoryRe extracts the quoted category a condition scopes itself
	// to, e.g. "... in category 'performance' ...".
	categoryRe = regexp.MustCompile(`category\s+['"]([^'"]+)['"]`)

	// numberRe extracts the first numeric magnitude and unit from a
	// specification value, e.g. "100ms", "latency under 2 s".
	numberRe = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*([a-zA-Z%]*)`)
)

// ConditionEvaluator is the built-in reference Evaluator. It interprets
// the two condition families the stock rule sets use:
//
//   - contradiction conditions ("no two current specs in category 'X'
//     may set contradictory numeric targets"): flags the category's
//     specs when they carry conflicting numeric magnitudes;
//   - approval conditions ("specs in category 'X' must be approved"):
//     flags each spec in the category still in draft.
//
// Anything else is an evaluation error, which the detector converts into
// a skip-and-warn. External evaluators with richer condition languages
// plug into the detector through the same Evaluator interface.
type ConditionEvaluator struct{}

// NewConditionEvaluator creates the built-in evaluator.
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{}
}

// Evaluate implements Evaluator.
func (e *ConditionEvaluator) Evaluate(_ context.Context, rule domain.ConflictRule, snapshot []specification.Specification) ([]Violation, error) {
	category, err := conditionCategory(rule.Condition)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.RuleID, err)
	}

	// Deprecated facts cannot conflict; the snapshot is current-only
	// but may still contain deprecated records.
	var specs []specification.Specification
	for _, spec := range snapshot {
		if spec.Category == category && spec.Status != specification.StatusDeprecated {
			specs = append(specs, spec)
		}
	}

	condition := strings.ToLower(rule.Condition)
	switch {
	case strings.Contains(condition, "contradict"):
		return contradictionViolations(category, specs), nil
	case strings.Contains(condition, "approved"):
		return approvalViolations(category, specs), nil
	default:
		return nil, fmt.Errorf("rule %s: unsupported condition %q", rule.RuleID, rule.Condition)
	}
}

// conditionCategory extracts the category a condition is scoped to.
func conditionCategory(condition string) (string, error) {
	m := categoryRe.FindStringSubmatch(condition)
	if m == nil {
		return "", fmt.Errorf("condition references no category: %q", condition)
	}
	return m[1], nil
}

// contradictionViolations flags a category whose specs set conflicting
// numeric magnitudes. All implicated specs land in one violation: the
// contradiction is a property of the set, not of any single record.
func contradictionViolations(category string, specs []specification.Specification) []Violation {
	type measured struct {
		spec  specification.Specification
		value float64
	}

	var measures []measured
	for _, spec := range specs {
		value, ok := numericValue(spec.Value)
		if !ok {
			continue
		}
		measures = append(measures, measured{spec: spec, value: value})
	}
	if len(measures) < 2 {
		return nil
	}

	distinct := make(map[float64]bool)
	for _, m := range measures {
		distinct[m.value] = true
	}
	if len(distinct) < 2 {
		return nil
	}

	ids := make([]string, 0, len(measures))
	values := make([]string, 0, len(measures))
	for _, m := range measures {
		ids = append(ids, m.spec.ID)
		values = append(values, fmt.Sprintf("%s=%q", m.spec.Key, m.spec.Value))
	}
	sort.Strings(values)

	return []Violation{{
		SpecIDs: ids,
		Message: fmt.Sprintf("category %q sets contradictory numeric targets: %s",
			category, strings.Join(values, ", ")),
	}}
}

// approvalViolations flags each spec in the category still in draft.
func approvalViolations(category string, specs []specification.Specification) []Violation {
	var violations []Violation
	for _, spec := range specs {
		if spec.Status == specification.StatusDraft {
			violations = append(violations, Violation{
				SpecIDs: []string{spec.ID},
				Message: fmt.Sprintf("spec %q in category %q is still in draft", spec.Key, category),
			})
		}
	}
	return violations
}

// timeUnitMillis normalizes common duration units to milliseconds so
// "2s" and "2000ms" compare equal.
var timeUnitMillis = map[string]float64{
	"ms":  1,
	"s":   1000,
	"sec": 1000,
	"m":   60000,
	"min": 60000,
	"h":   3600000,
}

// numericValue extracts a comparable magnitude from a specification
// value. Values without a number are not comparable.
func numericValue(value string) (float64, bool) {
	m := numberRe.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if factor, ok := timeUnitMillis[strings.ToLower(m[2])]; ok {
		return n * factor, true
	}
	return n, true
}
