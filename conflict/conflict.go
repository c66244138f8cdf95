// Package conflict detects and records violations of a domain's conflict
// rules against a project's current specification snapshot. The detector
// owns orchestration, ordering, and failure recovery; executing a rule's
// condition is delegated to an Evaluator, which may be the built-in
// ConditionEvaluator or any external engine.
package conflict

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/c360studio/specintel/domain"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a conflict. Conflicts move open →
// resolved exactly once and are never re-opened; a later detection run
// appends new findings instead of reviving old ones.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Conflict is one recorded rule violation.
type Conflict struct {
	// ID uniquely identifies this conflict (format: conf-{uuid}).
	ID string `json:"conflict_id"`

	// RuleID names the violated rule.
	RuleID string `json:"rule_id"`

	// ProjectID scopes the conflict to a project.
	ProjectID string `json:"project_id"`

	// RunID groups conflicts found in the same detection run.
	RunID string `json:"run_id"`

	// SpecIDs are the implicated specification records.
	SpecIDs []string `json:"spec_ids"`

	// Severity is copied from the rule at detection time.
	Severity domain.Severity `json:"severity"`

	// Status is open or resolved.
	Status Status `json:"status"`

	// Message explains the violation.
	Message string `json:"message,omitempty"`

	// Resolution is the text supplied when the conflict was resolved.
	Resolution string `json:"resolution,omitempty"`

	// CreatedAt is when the detection run recorded the conflict.
	CreatedAt time.Time `json:"created_at"`

	// ResolvedAt is when the conflict was resolved, if it was.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Common conflict log errors.
var (
	// ErrConflictNotFound is returned when a conflict ID is unknown.
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrAlreadyResolved is returned when resolving a resolved conflict.
	ErrAlreadyResolved = errors.New("conflict already resolved")
)

// Log is an append-only record of detected conflicts. Detection runs
// append; the only sanctioned mutation is Resolve, which moves a conflict
// open → resolved. Stale conflicts referencing superseded specification
// versions remain as historical record.
type Log struct {
	mu        sync.RWMutex
	conflicts []*Conflict
	byID      map[string]int
	now       func() time.Time
}

// NewLog creates an empty conflict log.
func NewLog() *Log {
	return &Log{
		byID: make(map[string]int),
		now:  time.Now,
	}
}

// Append records the conflicts from a detection run. Already-logged
// conflicts are never touched.
func (l *Log) Append(conflicts []Conflict) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, c := range conflicts {
		stored := c
		l.byID[stored.ID] = len(l.conflicts)
		l.conflicts = append(l.conflicts, &stored)
	}
}

// Resolve moves an open conflict to resolved with the given resolution
// text. Resolving an unknown conflict returns ErrConflictNotFound;
// resolving twice returns ErrAlreadyResolved.
func (l *Log) Resolve(conflictID, resolution string) (*Conflict, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byID[conflictID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConflictNotFound, conflictID)
	}
	c := l.conflicts[idx]
	if c.Status == StatusResolved {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyResolved, conflictID)
	}
	now := l.now().UTC()
	c.Status = StatusResolved
	c.Resolution = resolution
	c.ResolvedAt = &now

	out := *c
	return &out, nil
}

// Get returns one conflict by ID.
func (l *Log) Get(conflictID string) (*Conflict, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx, ok := l.byID[conflictID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConflictNotFound, conflictID)
	}
	out := *l.conflicts[idx]
	return &out, nil
}

// ForProject returns every logged conflict for a project in append order.
func (l *Log) ForProject(projectID string) []Conflict {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Conflict
	for _, c := range l.conflicts {
		if c.ProjectID == projectID {
			out = append(out, *c)
		}
	}
	return out
}

// Open returns every open conflict for a project in append order.
func (l *Log) Open(projectID string) []Conflict {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Conflict
	for _, c := range l.conflicts {
		if c.ProjectID == projectID && c.Status == StatusOpen {
			out = append(out, *c)
		}
	}
	return out
}

// OpenErrorCount returns the number of open error-severity conflicts for
// a project. The maturity scorer uses this for its penalty.
func (l *Log) OpenErrorCount(projectID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, c := range l.conflicts {
		if c.ProjectID == projectID && c.Status == StatusOpen && c.Severity == domain.SeverityError {
			count++
		}
	}
	return count
}

// sortConflicts orders conflicts by severity (error > warning > info),
// then by rule evaluation order, for deterministic display.
func sortConflicts(conflicts []Conflict, ruleOrder map[string]int) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		ri, rj := conflicts[i].Severity.Rank(), conflicts[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return ruleOrder[conflicts[i].RuleID] < ruleOrder[conflicts[j].RuleID]
	})
}

func newConflictID() string {
	return fmt.Sprintf("conf-%s", uuid.New().String())
}
