// Package template provides the generic record engine shared by the
// question, export-format, conflict-rule, and quality-analyzer sets.
//
// Each record kind is described by a Kind descriptor (unique key,
// per-record checks, indexed fields) and interpreted by one Engine.
// The four kinds therefore share identical load, validation, filter,
// grouping, and serialization semantics.
package template

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind describes one record kind to the engine.
type Kind[T any] struct {
	// Name identifies the kind in issues and errors (e.g. "conflict_rule").
	Name string

	// KeyField is the name of the unique-key field (e.g. "rule_id").
	KeyField string

	// Key extracts the unique key from a record. Empty means missing.
	Key func(T) string

	// Check runs per-record structural checks (required fields, enum
	// legality) and returns one issue per problem.
	Check func(T) []ValidationIssue

	// Fields maps indexed field names to accessors for FilterBy and
	// GroupBy. Collection-valued fields (e.g. tags) return multiple
	// values; a record then matches or groups under each value.
	Fields map[string]func(T) []string

	// Extra runs cross-record checks beyond key uniqueness (e.g. the
	// export-format template_id uniqueness rule). Optional.
	Extra func([]T) []ValidationIssue
}

// Engine loads, validates, filters, groups, and serializes one record kind.
type Engine[T any] struct {
	kind Kind[T]
}

// NewEngine creates an engine for the given kind descriptor.
func NewEngine[T any](kind Kind[T]) *Engine[T] {
	return &Engine[T]{kind: kind}
}

// KindName returns the record kind this engine interprets.
func (e *Engine[T]) KindName() string {
	return e.kind.Name
}

// LoadFromYAML parses a YAML sequence of records and validates the set.
// Any validation issue fails the whole load: partial sets are never
// returned. Parse failures and validation failures are both reported as
// a *ConfigError; they are distinguished by ConfigError.Parse.
func (e *Engine[T]) LoadFromYAML(data []byte) ([]T, error) {
	var records []T
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, &ConfigError{
			Kind:  e.kind.Name,
			Parse: true,
			Err:   fmt.Errorf("parse %s document: %w", e.kind.Name, err),
		}
	}
	if issues := e.Validate(records); len(issues) > 0 {
		return nil, &ConfigError{Kind: e.kind.Name, Issues: issues}
	}
	return records, nil
}

// LoadFromDocument reads a YAML document from disk and delegates to
// LoadFromYAML. The returned *ConfigError carries the document path.
func (e *Engine[T]) LoadFromDocument(path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Kind:  e.kind.Name,
			Path:  path,
			Parse: true,
			Err:   fmt.Errorf("read %s document: %w", e.kind.Name, err),
		}
	}
	records, err := e.LoadFromYAML(data)
	if err != nil {
		var cfgErr *ConfigError
		if AsConfigError(err, &cfgErr) {
			cfgErr.Path = path
		}
		return nil, err
	}
	return records, nil
}

// Validate checks a record set and returns every issue found: duplicate
// unique keys, per-record structural problems, and any kind-specific
// cross-record problems. It never fails; an empty slice means valid.
func (e *Engine[T]) Validate(records []T) []ValidationIssue {
	var issues []ValidationIssue

	seen := make(map[string]int) // key → first index
	for i, rec := range records {
		for _, issue := range e.kind.Check(rec) {
			issue.Kind = e.kind.Name
			issues = append(issues, issue)
		}

		key := e.kind.Key(rec)
		if key == "" {
			// Missing key is reported by Check as a missing-field issue.
			continue
		}
		if first, dup := seen[key]; dup {
			issues = append(issues, ValidationIssue{
				Kind:     e.kind.Name,
				Code:     IssueDuplicateID,
				RecordID: key,
				Field:    e.kind.KeyField,
				Message: fmt.Sprintf("duplicate %s %q: records %d and %d share the same %s",
					e.kind.Name, key, first, i, e.kind.KeyField),
			})
			continue
		}
		seen[key] = i
	}

	if e.kind.Extra != nil {
		for _, issue := range e.kind.Extra(records) {
			issue.Kind = e.kind.Name
			issues = append(issues, issue)
		}
	}
	return issues
}

// FilterBy returns the records whose indexed field exactly matches value,
// preserving source order. Matching is case-sensitive. No matches yields
// an empty slice, not an error; an unindexed field is an error.
func (e *Engine[T]) FilterBy(records []T, field, value string) ([]T, error) {
	accessor, ok := e.kind.Fields[field]
	if !ok {
		return nil, &UnknownFieldError{Kind: e.kind.Name, Field: field, Known: e.fieldNames()}
	}

	matched := []T{}
	for _, rec := range records {
		for _, v := range accessor(rec) {
			if v == value {
				matched = append(matched, rec)
				break
			}
		}
	}
	return matched, nil
}

// GroupBy partitions records by an indexed field, preserving source order
// within each group. A record whose field is collection-valued appears
// under every value in the collection.
func (e *Engine[T]) GroupBy(records []T, field string) (map[string][]T, error) {
	accessor, ok := e.kind.Fields[field]
	if !ok {
		return nil, &UnknownFieldError{Kind: e.kind.Name, Field: field, Known: e.fieldNames()}
	}

	groups := make(map[string][]T)
	for _, rec := range records {
		for _, v := range accessor(rec) {
			groups[v] = append(groups[v], rec)
		}
	}
	return groups, nil
}

// ToYAML serializes records as a YAML sequence. It is the exact inverse
// of LoadFromYAML for any valid record set: loading the output yields an
// equal slice in the same order.
func (e *Engine[T]) ToYAML(records []T) ([]byte, error) {
	data, err := yaml.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("serialize %s records: %w", e.kind.Name, err)
	}
	return data, nil
}

// fieldNames returns the indexed field names in sorted order for error
// messages.
func (e *Engine[T]) fieldNames() []string {
	names := make([]string, 0, len(e.kind.Fields))
	for name := range e.kind.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
