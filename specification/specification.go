// Package specification defines the versioned, key-addressed project
// facts the engine operates on, plus their lifecycle rules and an
// in-memory append-only store. Persistence engines implementing the same
// invariants (see the storage package) are drop-in replacements behind
// SnapshotProvider.
package specification

import (
	"context"
	"time"
)

// Status is the lifecycle state of a specification.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusApproved    Status = "approved"
	StatusImplemented Status = "implemented"
	StatusDeprecated  Status = "deprecated"
)

// Valid reports whether s is one of the four legal statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusImplemented, StatusDeprecated:
		return true
	}
	return false
}

// CanTransitionTo reports whether the one-directional lifecycle permits
// moving from s to target: draft→approved→implemented, with deprecated
// reachable from any state and terminal.
func (s Status) CanTransitionTo(target Status) bool {
	if !s.Valid() || !target.Valid() {
		return false
	}
	if s == StatusDeprecated {
		return false
	}
	if target == StatusDeprecated {
		return true
	}
	switch s {
	case StatusDraft:
		return target == StatusApproved
	case StatusApproved:
		return target == StatusImplemented
	default:
		return false
	}
}

// Specification is one versioned fact about a project. Records are
// append-only: creating a new version flips the previous current record's
// IsCurrent flag and never touches its other fields.
type Specification struct {
	// ID uniquely identifies this record (format: spec-{uuid}).
	ID string `json:"id" yaml:"id"`

	// ProjectID scopes the specification to a project.
	ProjectID string `json:"project_id" yaml:"project_id"`

	// Category is a free-text classification (e.g. "security").
	Category string `json:"category" yaml:"category"`

	// Key is the short identifier; (ProjectID, Key) addresses the
	// version history.
	Key string `json:"key" yaml:"key"`

	// Value is the fact itself.
	Value string `json:"value" yaml:"value"`

	// Status is the lifecycle state.
	Status Status `json:"status" yaml:"status"`

	// Version strictly increases within one (ProjectID, Key) history.
	Version int `json:"version" yaml:"version"`

	// IsCurrent is true for exactly one record per (ProjectID, Key).
	IsCurrent bool `json:"is_current" yaml:"is_current"`

	// CreatedAt is when this record was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at,omitempty"`

	// UpdatedAt is when this record last changed status or currency.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at,omitempty"`
}

// SnapshotProvider supplies the current-only specification snapshot the
// detector and scorer consume. The in-memory Store and the NATS KV store
// both implement it.
type SnapshotProvider interface {
	// GetCurrentSpecifications returns every IsCurrent=true record for
	// a project.
	GetCurrentSpecifications(ctx context.Context, projectID string) ([]Specification, error)
}
