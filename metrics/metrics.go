// Package metrics provides Prometheus instrumentation for the engine.
// A nil *Metrics disables collection everywhere it is accepted, so
// callers that do not run a metrics endpoint pay nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	domainBuilds      *prometheus.CounterVec
	detectionRuns     *prometheus.CounterVec
	conflictsFound    *prometheus.CounterVec
	ruleWarnings      *prometheus.CounterVec
	detectionDuration prometheus.Histogram
	maturityScore     *prometheus.HistogramVec
}

// New creates and registers the engine metrics. Returns nil when no
// registerer is provided (nil input = nil feature pattern).
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return nil
	}

	m := &Metrics{
		domainBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specintel",
			Subsystem: "domain",
			Name:      "builds_total",
			Help:      "Domain constructions by result",
		}, []string{"domain_id", "result"}),

		detectionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specintel",
			Subsystem: "conflict",
			Name:      "detection_runs_total",
			Help:      "Conflict detection runs performed",
		}, []string{"domain_id"}),

		conflictsFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specintel",
			Subsystem: "conflict",
			Name:      "conflicts_found_total",
			Help:      "Conflicts produced by detection runs, by severity",
		}, []string{"severity"}),

		ruleWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specintel",
			Subsystem: "conflict",
			Name:      "rule_evaluation_warnings_total",
			Help:      "Rules skipped because their condition could not be evaluated",
		}, []string{"rule_id"}),

		detectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "specintel",
			Subsystem: "conflict",
			Name:      "detection_duration_seconds",
			Help:      "Time spent in one detection run",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),

		maturityScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "specintel",
			Subsystem: "maturity",
			Name:      "score",
			Help:      "Maturity scores produced by the scorer",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"domain_id"}),
	}

	registerer.MustRegister(
		m.domainBuilds,
		m.detectionRuns,
		m.conflictsFound,
		m.ruleWarnings,
		m.detectionDuration,
		m.maturityScore,
	)
	return m
}

// DomainBuild records one domain construction attempt.
func (m *Metrics) DomainBuild(domainID, result string) {
	if m == nil {
		return
	}
	m.domainBuilds.WithLabelValues(domainID, result).Inc()
}

// DetectionRun records one detection run and its duration in seconds.
func (m *Metrics) DetectionRun(domainID string, seconds float64) {
	if m == nil {
		return
	}
	m.detectionRuns.WithLabelValues(domainID).Inc()
	m.detectionDuration.Observe(seconds)
}

// ConflictFound records one conflict by severity.
func (m *Metrics) ConflictFound(severity string) {
	if m == nil {
		return
	}
	m.conflictsFound.WithLabelValues(severity).Inc()
}

// RuleWarning records one skipped rule.
func (m *Metrics) RuleWarning(ruleID string) {
	if m == nil {
		return
	}
	m.ruleWarnings.WithLabelValues(ruleID).Inc()
}

// MaturityScore records one computed score.
func (m *Metrics) MaturityScore(domainID string, score float64) {
	if m == nil {
		return
	}
	m.maturityScore.WithLabelValues(domainID).Observe(score)
}
