// Package storage provides specification persistence for specintel using
// NATS JetStream KV. Each (project, key) version history is one KV entry,
// updated with optimistic concurrency so the append-only and
// single-current invariants survive concurrent writers.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/c360studio/specintel/specification"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// BucketSpecifications is the KV bucket name for specification histories.
const BucketSpecifications = "SPECINTEL_SPECS"

// kvTokenRe restricts project IDs and keys to characters legal inside a
// NATS KV key token.
var kvTokenRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// history is the stored form of one (project, key) version chain. The
// last entry is always the current version.
type history struct {
	ProjectID string                        `json:"project_id"`
	Key       string                        `json:"key"`
	Versions  []specification.Specification `json:"versions"`
}

func (h *history) current() *specification.Specification {
	if len(h.Versions) == 0 {
		return nil
	}
	return &h.Versions[len(h.Versions)-1]
}

// KVStore is a specification store backed by a NATS JetStream KV bucket.
// It implements the same lifecycle operations and invariants as the
// in-memory specification.Store, including specification.SnapshotProvider.
type KVStore struct {
	bucket jetstream.KeyValue
	now    func() time.Time
}

var _ specification.SnapshotProvider = (*KVStore)(nil)

// NewKVStore creates or binds the specification bucket.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	// CreateOrUpdateKeyValue is idempotent and handles race conditions
	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      BucketSpecifications,
		Description: "Versioned project specifications",
	})
	if err != nil {
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}
	return &KVStore{bucket: bucket, now: time.Now}, nil
}

// Create creates version 1 of a specification in draft status. An
// existing current version fails with *specification.DuplicateKeyError.
func (s *KVStore) Create(ctx context.Context, projectID, category, key, value string) (*specification.Specification, error) {
	kvKey, err := entryKey(projectID, key)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	h := history{
		ProjectID: projectID,
		Key:       key,
		Versions: []specification.Specification{{
			ID:        newSpecID(),
			ProjectID: projectID,
			Category:  category,
			Key:       key,
			Value:     value,
			Status:    specification.StatusDraft,
			Version:   1,
			IsCurrent: true,
			CreatedAt: now,
			UpdatedAt: now,
		}},
	}
	data, err := json.Marshal(&h)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}

	if _, err := s.bucket.Create(ctx, kvKey, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return nil, &specification.DuplicateKeyError{ProjectID: projectID, Key: key}
		}
		return nil, fmt.Errorf("store specification: %w", err)
	}
	spec := h.Versions[0]
	return &spec, nil
}

// CreateVersion supersedes the current version: the stored current
// record's IsCurrent flips to false and a new draft version appends. The
// write uses the entry's revision, so a concurrent supersede fails rather
// than silently losing a version.
func (s *KVStore) CreateVersion(ctx context.Context, projectID, key, value string) (*specification.Specification, error) {
	kvKey, err := entryKey(projectID, key)
	if err != nil {
		return nil, err
	}

	entry, err := s.bucket.Get(ctx, kvKey)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, &specification.NotFoundError{ProjectID: projectID, Key: key}
		}
		return nil, fmt.Errorf("load specification history: %w", err)
	}

	var h history
	if err := json.Unmarshal(entry.Value(), &h); err != nil {
		return nil, fmt.Errorf("unmarshal history for %s: %w", kvKey, err)
	}
	prev := h.current()
	if prev == nil {
		return nil, &specification.NotFoundError{ProjectID: projectID, Key: key}
	}

	now := s.now().UTC()
	prev.IsCurrent = false
	prev.UpdatedAt = now
	h.Versions = append(h.Versions, specification.Specification{
		ID:        newSpecID(),
		ProjectID: projectID,
		Category:  prev.Category,
		Key:       key,
		Value:     value,
		Status:    specification.StatusDraft,
		Version:   prev.Version + 1,
		IsCurrent: true,
		CreatedAt: now,
		UpdatedAt: now,
	})

	data, err := json.Marshal(&h)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	if _, err := s.bucket.Update(ctx, kvKey, data, entry.Revision()); err != nil {
		return nil, fmt.Errorf("store new version: %w", err)
	}
	spec := h.Versions[len(h.Versions)-1]
	return &spec, nil
}

// TransitionStatus moves the current version of (projectID, key) through
// the lifecycle, with the same rules as the in-memory store.
func (s *KVStore) TransitionStatus(ctx context.Context, projectID, key string, target specification.Status) (*specification.Specification, error) {
	kvKey, err := entryKey(projectID, key)
	if err != nil {
		return nil, err
	}

	entry, err := s.bucket.Get(ctx, kvKey)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, &specification.NotFoundError{ProjectID: projectID, Key: key}
		}
		return nil, fmt.Errorf("load specification history: %w", err)
	}

	var h history
	if err := json.Unmarshal(entry.Value(), &h); err != nil {
		return nil, fmt.Errorf("unmarshal history for %s: %w", kvKey, err)
	}
	current := h.current()
	if current == nil {
		return nil, &specification.NotFoundError{ProjectID: projectID, Key: key}
	}
	if !current.Status.CanTransitionTo(target) {
		return nil, &specification.InvalidTransitionError{
			SpecID: current.ID,
			From:   current.Status,
			To:     target,
		}
	}
	current.Status = target
	current.UpdatedAt = s.now().UTC()

	data, err := json.Marshal(&h)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	if _, err := s.bucket.Update(ctx, kvKey, data, entry.Revision()); err != nil {
		return nil, fmt.Errorf("store status transition: %w", err)
	}
	spec := *current
	return &spec, nil
}

// History returns every version of (projectID, key) in ascending version
// order.
func (s *KVStore) History(ctx context.Context, projectID, key string) ([]specification.Specification, error) {
	kvKey, err := entryKey(projectID, key)
	if err != nil {
		return nil, err
	}

	entry, err := s.bucket.Get(ctx, kvKey)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, &specification.NotFoundError{ProjectID: projectID, Key: key}
		}
		return nil, fmt.Errorf("load specification history: %w", err)
	}
	var h history
	if err := json.Unmarshal(entry.Value(), &h); err != nil {
		return nil, fmt.Errorf("unmarshal history for %s: %w", kvKey, err)
	}
	return h.Versions, nil
}

// GetCurrentSpecifications returns every current record for a project.
// Implements specification.SnapshotProvider.
func (s *KVStore) GetCurrentSpecifications(ctx context.Context, projectID string) ([]specification.Specification, error) {
	if !kvTokenRe.MatchString(projectID) {
		return nil, fmt.Errorf("invalid project ID: %q", projectID)
	}

	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list specification keys: %w", err)
	}

	prefix := projectID + "."
	var specs []specification.Specification
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		entry, err := s.bucket.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		var h history
		if err := json.Unmarshal(entry.Value(), &h); err != nil {
			return nil, fmt.Errorf("unmarshal history for %s: %w", key, err)
		}
		if current := h.current(); current != nil {
			specs = append(specs, *current)
		}
	}
	return specs, nil
}

// entryKey builds the KV key for a (project, key) history.
func entryKey(projectID, key string) (string, error) {
	if !kvTokenRe.MatchString(projectID) {
		return "", fmt.Errorf("invalid project ID: %q", projectID)
	}
	if !kvTokenRe.MatchString(key) {
		return "", fmt.Errorf("invalid specification key: %q", key)
	}
	return fmt.Sprintf("%s.%s", projectID, key), nil
}

func newSpecID() string {
	return fmt.Sprintf("spec-%s", uuid.New().String())
}
