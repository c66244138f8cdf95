package template

import (
	"errors"
	"fmt"
	"strings"
)

// IssueCode categorizes validation issues.
type IssueCode string

const (
	// IssueDuplicateID indicates two records share a unique key.
	IssueDuplicateID IssueCode = "duplicate_id"

	// IssueMissingField indicates a required field is empty.
	IssueMissingField IssueCode = "missing_field"

	// IssueIllegalValue indicates a field holds an out-of-enum or
	// malformed value.
	IssueIllegalValue IssueCode = "illegal_value"
)

// ValidationIssue is one non-fatal finding from Validate. Issues are
// collected, never raised; Load* turns a non-empty issue list into a
// *ConfigError.
type ValidationIssue struct {
	// Kind is the record kind the issue belongs to. Set by the engine.
	Kind string `json:"kind"`

	// Code categorizes the issue.
	Code IssueCode `json:"code"`

	// RecordID is the unique key of the offending record, when known.
	RecordID string `json:"record_id,omitempty"`

	// Field is the offending field name.
	Field string `json:"field,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// String returns a one-line rendering of the issue.
func (i ValidationIssue) String() string {
	if i.RecordID != "" {
		return fmt.Sprintf("%s[%s] %s: %s", i.Kind, i.RecordID, i.Code, i.Message)
	}
	return fmt.Sprintf("%s %s: %s", i.Kind, i.Code, i.Message)
}

// MissingField builds a missing-required-field issue for a record.
func MissingField(recordID, field string) ValidationIssue {
	return ValidationIssue{
		Code:     IssueMissingField,
		RecordID: recordID,
		Field:    field,
		Message:  fmt.Sprintf("required field %q is empty", field),
	}
}

// IllegalValue builds an out-of-enum issue for a record field.
func IllegalValue(recordID, field, value string, legal []string) ValidationIssue {
	return ValidationIssue{
		Code:     IssueIllegalValue,
		RecordID: recordID,
		Field:    field,
		Message:  fmt.Sprintf("field %q has illegal value %q (legal: %s)", field, value, strings.Join(legal, ", ")),
	}
}

// ConfigError reports that a document could not be loaded: either the
// document itself was malformed (Parse=true) or the parsed records failed
// validation (Issues non-empty).
type ConfigError struct {
	// Kind is the record kind being loaded.
	Kind string

	// Path is the document path, empty for in-memory loads.
	Path string

	// Parse is true when the document could not be read or parsed at
	// all, as opposed to failing record validation.
	Parse bool

	// Issues holds every validation issue when Parse is false.
	Issues []ValidationIssue

	// Err is the underlying parse or read error, if any.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	loc := e.Kind
	if e.Path != "" {
		loc = fmt.Sprintf("%s (%s)", e.Kind, e.Path)
	}
	if e.Parse {
		return fmt.Sprintf("malformed %s configuration: %v", loc, e.Err)
	}
	lines := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		lines = append(lines, issue.String())
	}
	return fmt.Sprintf("invalid %s configuration: %d issue(s): %s", loc, len(e.Issues), strings.Join(lines, "; "))
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// AsConfigError reports whether err is (or wraps) a *ConfigError,
// assigning it to target when so.
func AsConfigError(err error, target **ConfigError) bool {
	return errors.As(err, target)
}

// UnknownFieldError reports a FilterBy/GroupBy call naming a field the
// kind does not index.
type UnknownFieldError struct {
	Kind  string
	Field string
	Known []string
}

// Error implements the error interface.
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s has no indexed field %q (indexed: %s)", e.Kind, e.Field, strings.Join(e.Known, ", "))
}
