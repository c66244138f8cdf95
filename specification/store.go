package specification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// recordKey addresses one version history.
type recordKey struct {
	projectID string
	key       string
}

// Store is an in-memory specification store: a monotonically growing
// record log with current/history indexes maintained separately from the
// log itself. Records in the log are never removed or rewritten beyond
// the two sanctioned mutations (currency flip on supersede, status
// transition).
type Store struct {
	mu      sync.RWMutex
	log     []*Specification
	byID    map[string]int
	current map[recordKey]int
	history map[recordKey][]int
	now     func() time.Time
}

var _ SnapshotProvider = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		byID:    make(map[string]int),
		current: make(map[recordKey]int),
		history: make(map[recordKey][]int),
		now:     time.Now,
	}
}

// NewStoreWithClock creates a store with a custom clock, for tests.
func NewStoreWithClock(now func() time.Time) *Store {
	s := NewStore()
	s.now = now
	return s
}

// Create creates version 1 of a specification in draft status. If the
// (projectID, key) pair already has a current version the call fails
// with *DuplicateKeyError; superseding requires CreateVersion.
func (s *Store) Create(projectID, category, key, value string) (*Specification, error) {
	if projectID == "" || key == "" {
		return nil, fmt.Errorf("project ID and key are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rk := recordKey{projectID: projectID, key: key}
	if _, exists := s.current[rk]; exists {
		return nil, &DuplicateKeyError{ProjectID: projectID, Key: key}
	}

	now := s.now().UTC()
	spec := &Specification{
		ID:        newSpecID(),
		ProjectID: projectID,
		Category:  category,
		Key:       key,
		Value:     value,
		Status:    StatusDraft,
		Version:   1,
		IsCurrent: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.append(rk, spec)
	return clone(spec), nil
}

// CreateVersion supersedes the current version of (projectID, key): the
// previous record's IsCurrent flips to false, and a new draft record with
// version previous+1 becomes current. Prior versions are retained
// unchanged. Fails with *NotFoundError when no current version exists.
func (s *Store) CreateVersion(projectID, key, value string) (*Specification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rk := recordKey{projectID: projectID, key: key}
	idx, exists := s.current[rk]
	if !exists {
		return nil, &NotFoundError{ProjectID: projectID, Key: key}
	}

	prev := s.log[idx]
	now := s.now().UTC()
	prev.IsCurrent = false
	prev.UpdatedAt = now

	spec := &Specification{
		ID:        newSpecID(),
		ProjectID: projectID,
		Category:  prev.Category,
		Key:       key,
		Value:     value,
		Status:    StatusDraft,
		Version:   prev.Version + 1,
		IsCurrent: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.append(rk, spec)
	return clone(spec), nil
}

// TransitionStatus moves a record through the one-directional lifecycle.
// Illegal moves fail with *InvalidTransitionError; lifecycle violations
// are always reported, never silently corrected.
func (s *Store) TransitionStatus(specID string, target Status) (*Specification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.byID[specID]
	if !exists {
		return nil, &NotFoundError{SpecID: specID}
	}

	spec := s.log[idx]
	if !spec.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{SpecID: specID, From: spec.Status, To: target}
	}
	spec.Status = target
	spec.UpdatedAt = s.now().UTC()
	return clone(spec), nil
}

// Get returns one record by ID.
func (s *Store) Get(specID string) (*Specification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.byID[specID]
	if !exists {
		return nil, &NotFoundError{SpecID: specID}
	}
	return clone(s.log[idx]), nil
}

// Current returns the current version for (projectID, key).
func (s *Store) Current(projectID, key string) (*Specification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.current[recordKey{projectID: projectID, key: key}]
	if !exists {
		return nil, &NotFoundError{ProjectID: projectID, Key: key}
	}
	return clone(s.log[idx]), nil
}

// History returns every version of (projectID, key) in ascending version
// order.
func (s *Store) History(projectID, key string) ([]Specification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indexes, exists := s.history[recordKey{projectID: projectID, key: key}]
	if !exists {
		return nil, &NotFoundError{ProjectID: projectID, Key: key}
	}
	versions := make([]Specification, 0, len(indexes))
	for _, idx := range indexes {
		versions = append(versions, *s.log[idx])
	}
	return versions, nil
}

// GetCurrentSpecifications returns every current record for a project, in
// creation order. Implements SnapshotProvider.
func (s *Store) GetCurrentSpecifications(_ context.Context, projectID string) ([]Specification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var specs []Specification
	for _, spec := range s.log {
		if spec.ProjectID == projectID && spec.IsCurrent {
			specs = append(specs, *spec)
		}
	}
	return specs, nil
}

// append adds a record to the log and indexes. Caller holds the lock.
func (s *Store) append(rk recordKey, spec *Specification) {
	idx := len(s.log)
	s.log = append(s.log, spec)
	s.byID[spec.ID] = idx
	s.current[rk] = idx
	s.history[rk] = append(s.history[rk], idx)
}

func newSpecID() string {
	return fmt.Sprintf("spec-%s", uuid.New().String())
}

func clone(spec *Specification) *Specification {
	c := *spec
	return &c
}
