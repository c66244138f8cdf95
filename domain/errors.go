package domain

import (
	"fmt"
	"strings"

	"github.com/c360studio/specintel/template"
)

// DuplicateDomainError reports a Register call for an already-registered
// domain ID. Silent overwrites would invalidate cached references held by
// other callers, so re-registration is always an error; use Replace to
// swap a domain after a configuration change.
type DuplicateDomainError struct {
	DomainID string
}

// Error implements the error interface.
func (e *DuplicateDomainError) Error() string {
	return fmt.Sprintf("domain %q is already registered", e.DomainID)
}

// NotRegisteredError reports a lookup for a domain ID with no registered
// constructor.
type NotRegisteredError struct {
	DomainID string
}

// Error implements the error interface.
func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("domain %q is not registered", e.DomainID)
}

// DomainConfigError reports that a domain failed to construct because its
// configuration produced validation issues. It carries the full issue
// list, not just the first. A domain that fails this way is not cached;
// a later Get can succeed after the configuration is fixed.
type DomainConfigError struct {
	DomainID string
	Issues   []template.ValidationIssue
}

// Error implements the error interface.
func (e *DomainConfigError) Error() string {
	lines := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		lines = append(lines, issue.String())
	}
	return fmt.Sprintf("domain %q configuration invalid: %d issue(s): %s",
		e.DomainID, len(e.Issues), strings.Join(lines, "; "))
}
