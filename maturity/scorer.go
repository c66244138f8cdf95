// Package maturity scores how mature a project's specification set is:
// per-category coverage normalized to 0-100, reduced by open
// error-severity conflicts, with quality issues aggregated from whatever
// analyzer implementations the caller registers. The analyzers' logic is
// external; this package only orchestrates which enabled analyzers run
// and collects their output.
package maturity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/specintel/domain"
	"github.com/c360studio/specintel/metrics"
	"github.com/c360studio/specintel/specification"
)

// ErrorConflictPenalty is subtracted from the coverage score per open
// error-severity conflict, with a floor of zero.
const ErrorConflictPenalty = 5.0

// QualityIssue is one finding returned by an analyzer. The tuple is
// opaque to the scorer.
type QualityIssue struct {
	AnalyzerID string `json:"analyzer_id"`
	SpecID     string `json:"spec_id,omitempty"`
	Message    string `json:"message"`
}

// AnalyzerFunc is one externally-implemented quality analyzer.
type AnalyzerFunc func(ctx context.Context, snapshot []specification.Specification) ([]QualityIssue, error)

// CategoryCoverage details one category's contribution to the score.
type CategoryCoverage struct {
	Category  string  `json:"category"`
	SpecCount int     `json:"spec_count"`
	Covered   bool    `json:"covered"`
	Weight    float64 `json:"weight"`
}

// Report is the outcome of one scoring run.
type Report struct {
	ProjectID string `json:"project_id"`
	DomainID  string `json:"domain_id"`

	// Score is the final 0-100 maturity score: coverage minus the open
	// error-conflict penalty, floored at zero.
	Score float64 `json:"score"`

	// CoverageScore is the 0-100 coverage component before penalties.
	CoverageScore float64 `json:"coverage_score"`

	// Penalty is the deduction applied for open error conflicts.
	Penalty float64 `json:"penalty"`

	// Incomplete is true when a required analyzer was disabled: the
	// score was still computed but is not authoritative.
	Incomplete bool `json:"incomplete"`

	// Categories breaks coverage down per category.
	Categories []CategoryCoverage `json:"categories"`

	// Issues aggregates every analyzer finding.
	Issues []QualityIssue `json:"issues,omitempty"`

	// SkippedAnalyzers lists enabled analyzers with no registered
	// implementation or whose run failed.
	SkippedAnalyzers []string `json:"skipped_analyzers,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Scorer computes maturity reports. Analyzer implementations are
// registered by ID; enabled analyzer declarations without a registered
// implementation are skipped and reported, never fatal.
type Scorer struct {
	mu        sync.RWMutex
	analyzers map[string]AnalyzerFunc
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithLogger sets the scorer's logger.
func WithLogger(logger *slog.Logger) ScorerOption {
	return func(s *Scorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) ScorerOption {
	return func(s *Scorer) { s.metrics = m }
}

// WithClock sets a custom clock, for tests.
func WithClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) { s.now = now }
}

// NewScorer creates a scorer with no analyzer implementations registered.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		analyzers: make(map[string]AnalyzerFunc),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterAnalyzer binds an implementation to an analyzer ID.
func (s *Scorer) RegisterAnalyzer(analyzerID string, fn AnalyzerFunc) error {
	if analyzerID == "" || fn == nil {
		return fmt.Errorf("analyzer ID and implementation are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.analyzers[analyzerID]; exists {
		return fmt.Errorf("analyzer %q already registered", analyzerID)
	}
	s.analyzers[analyzerID] = fn
	return nil
}

// Input bundles everything one scoring run consumes.
type Input struct {
	// ProjectID identifies the scored project.
	ProjectID string

	// Snapshot is the current-only specification snapshot.
	Snapshot []specification.Specification

	// OpenErrorConflicts is the number of open error-severity conflicts
	// (see conflict.Log.OpenErrorCount). Each costs ErrorConflictPenalty
	// points.
	OpenErrorConflicts int

	// Weights optionally overrides the default equal category weighting.
	// Values are relative; they are normalized so the full set sums to
	// 100. Categories absent from the map get weight zero.
	Weights map[string]float64
}

// Score computes the maturity report for a project under a domain.
func (s *Scorer) Score(ctx context.Context, dom *domain.Domain, input Input) (*Report, error) {
	if dom == nil {
		return nil, fmt.Errorf("domain is required")
	}
	if input.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}
	categories := dom.Categories()
	if len(categories) == 0 {
		return nil, fmt.Errorf("domain %q has no categories to score", dom.ID())
	}

	report := &Report{
		ProjectID:   input.ProjectID,
		DomainID:    dom.ID(),
		GeneratedAt: s.now().UTC(),
	}

	// Coverage: a category counts when it holds at least one current,
	// non-deprecated specification.
	specCounts := make(map[string]int)
	for _, spec := range input.Snapshot {
		if spec.IsCurrent && spec.Status != specification.StatusDeprecated {
			specCounts[spec.Category]++
		}
	}

	weights, err := categoryWeights(categories, input.Weights)
	if err != nil {
		return nil, err
	}

	for _, category := range categories {
		count := specCounts[category]
		coverage := CategoryCoverage{
			Category:  category,
			SpecCount: count,
			Covered:   count > 0,
			Weight:    weights[category],
		}
		if coverage.Covered {
			report.CoverageScore += coverage.Weight
		}
		report.Categories = append(report.Categories, coverage)
	}

	// Required-analyzer gate: score still computed, but flagged.
	for _, a := range dom.Analyzers() {
		if a.Required && !a.Enabled {
			report.Incomplete = true
			s.logger.Warn("Required analyzer disabled; score is not authoritative",
				"domain_id", dom.ID(),
				"analyzer_id", a.AnalyzerID)
		}
	}

	report.Penalty = ErrorConflictPenalty * float64(input.OpenErrorConflicts)
	report.Score = report.CoverageScore - report.Penalty
	if report.Score < 0 {
		report.Score = 0
	}

	s.runAnalyzers(ctx, dom, input.Snapshot, report)

	s.metrics.MaturityScore(dom.ID(), report.Score)
	s.logger.Info("Scored project",
		"project_id", input.ProjectID,
		"domain_id", dom.ID(),
		"score", report.Score,
		"incomplete", report.Incomplete,
		"issues", len(report.Issues))
	return report, nil
}

// runAnalyzers executes every enabled analyzer with a registered
// implementation and aggregates their findings. Failures skip the
// analyzer, never the run.
func (s *Scorer) runAnalyzers(ctx context.Context, dom *domain.Domain, snapshot []specification.Specification, report *Report) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range dom.EnabledAnalyzers() {
		fn, ok := s.analyzers[a.AnalyzerID]
		if !ok {
			report.SkippedAnalyzers = append(report.SkippedAnalyzers, a.AnalyzerID)
			s.logger.Debug("No implementation registered for analyzer",
				"analyzer_id", a.AnalyzerID)
			continue
		}
		issues, err := fn(ctx, snapshot)
		if err != nil {
			report.SkippedAnalyzers = append(report.SkippedAnalyzers, a.AnalyzerID)
			s.logger.Warn("Analyzer failed",
				"analyzer_id", a.AnalyzerID,
				"error", err)
			continue
		}
		for _, issue := range issues {
			if issue.AnalyzerID == "" {
				issue.AnalyzerID = a.AnalyzerID
			}
			report.Issues = append(report.Issues, issue)
		}
	}
}

// categoryWeights resolves per-category weights: equal shares of 100 by
// default, or the caller's relative weights normalized to sum to 100.
func categoryWeights(categories []string, override map[string]float64) (map[string]float64, error) {
	weights := make(map[string]float64, len(categories))
	if len(override) == 0 {
		share := 100.0 / float64(len(categories))
		for _, c := range categories {
			weights[c] = share
		}
		return weights, nil
	}

	total := 0.0
	for _, c := range categories {
		w := override[c]
		if w < 0 {
			return nil, fmt.Errorf("category %q has negative weight %v", c, w)
		}
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("category weights sum to zero")
	}
	for _, c := range categories {
		weights[c] = override[c] / total * 100
	}
	return weights, nil
}
