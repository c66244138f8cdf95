package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/specintel/domain"
	"github.com/c360studio/specintel/metrics"
	"github.com/c360studio/specintel/specification"
	"github.com/google/uuid"
)

// Violation is one condition failure reported by an evaluator.
type Violation struct {
	// SpecIDs are the specification records implicated in the violation.
	SpecIDs []string

	// Message explains the violation. When empty, the detector falls
	// back to the rule's message, then its description.
	Message string
}

// Evaluator executes one rule's condition against a specification
// snapshot. Implementations are opaque to the detector; it only handles
// their success and failure outcomes. Callers delegating to an evaluator
// that can block are responsible for imposing a timeout through ctx and
// returning the deadline error, which the detector treats like any other
// evaluation failure.
type Evaluator interface {
	Evaluate(ctx context.Context, rule domain.ConflictRule, snapshot []specification.Specification) ([]Violation, error)
}

// RuleEvaluationWarning reports a rule that was skipped because its
// condition could not be evaluated. Non-fatal: one bad rule never blocks
// detection of the others.
type RuleEvaluationWarning struct {
	RuleID string `json:"rule_id"`
	Reason string `json:"reason"`
}

// Result is the outcome of one detection run.
type Result struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`

	// DomainID and ProjectID identify what was evaluated.
	DomainID  string `json:"domain_id"`
	ProjectID string `json:"project_id"`

	// Conflicts are the findings, sorted by severity then rule order.
	Conflicts []Conflict `json:"conflicts"`

	// Warnings lists rules skipped due to evaluation failures.
	Warnings []RuleEvaluationWarning `json:"warnings,omitempty"`

	// StartedAt and CompletedAt bound the run.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Detector evaluates a domain's conflict rules against a current-only
// specification snapshot. It is stateless; each Detect call is an
// independent run that appends to history rather than reconciling with it.
type Detector struct {
	evaluator Evaluator
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithLogger sets the detector's logger.
func WithLogger(logger *slog.Logger) DetectorOption {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus instrumentation. A nil Metrics is
// accepted and disables collection.
func WithMetrics(m *metrics.Metrics) DetectorOption {
	return func(d *Detector) { d.metrics = m }
}

// WithClock sets a custom clock, for tests.
func WithClock(now func() time.Time) DetectorOption {
	return func(d *Detector) { d.now = now }
}

// NewDetector creates a detector delegating condition execution to the
// given evaluator.
func NewDetector(evaluator Evaluator, opts ...DetectorOption) (*Detector, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	d := &Detector{
		evaluator: evaluator,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Detect evaluates every conflict rule of the domain against the snapshot
// and returns the run result. Each violation yields exactly one open
// Conflict carrying the rule's severity; multiple rules flagging the same
// specification produce independent findings. A rule whose condition
// cannot be evaluated is skipped and reported as a warning. Conflicts are
// sorted by severity (error > warning > info), then rule evaluation
// order.
func (d *Detector) Detect(ctx context.Context, dom *domain.Domain, projectID string, snapshot []specification.Specification) (*Result, error) {
	if dom == nil {
		return nil, fmt.Errorf("domain is required")
	}
	if projectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	started := d.now().UTC()
	result := &Result{
		RunID:     fmt.Sprintf("run-%s", uuid.New().String()),
		DomainID:  dom.ID(),
		ProjectID: projectID,
		Conflicts: []Conflict{},
		StartedAt: started,
	}

	rules := dom.ConflictRules()
	ruleOrder := make(map[string]int, len(rules))

	for i, rule := range rules {
		ruleOrder[rule.RuleID] = i

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("detection cancelled: %w", err)
		}

		violations, err := d.evaluator.Evaluate(ctx, rule, snapshot)
		if err != nil {
			d.logger.Warn("Skipping rule: condition evaluation failed",
				"rule_id", rule.RuleID,
				"error", err)
			d.metrics.RuleWarning(rule.RuleID)
			result.Warnings = append(result.Warnings, RuleEvaluationWarning{
				RuleID: rule.RuleID,
				Reason: err.Error(),
			})
			continue
		}

		for _, v := range violations {
			message := v.Message
			if message == "" {
				message = rule.Message
			}
			if message == "" {
				message = rule.Description
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				ID:        newConflictID(),
				RuleID:    rule.RuleID,
				ProjectID: projectID,
				RunID:     result.RunID,
				SpecIDs:   append([]string(nil), v.SpecIDs...),
				Severity:  rule.Severity,
				Status:    StatusOpen,
				Message:   message,
				CreatedAt: started,
			})
			d.metrics.ConflictFound(string(rule.Severity))
		}
	}

	sortConflicts(result.Conflicts, ruleOrder)
	result.CompletedAt = d.now().UTC()
	d.metrics.DetectionRun(dom.ID(), result.CompletedAt.Sub(started).Seconds())

	d.logger.Info("Detection run complete",
		"run_id", result.RunID,
		"domain_id", dom.ID(),
		"project_id", projectID,
		"rules", len(rules),
		"conflicts", len(result.Conflicts),
		"warnings", len(result.Warnings))
	return result, nil
}
