package specification

import "fmt"

// DuplicateKeyError reports a Create call for a (project, key) pair that
// already has a current version. Callers must use CreateVersion to
// supersede.
type DuplicateKeyError struct {
	ProjectID string
	Key       string
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("specification %q already exists in project %q: use a new version to supersede it", e.Key, e.ProjectID)
}

// NotFoundError reports a lookup that matched nothing. Either SpecID or
// (ProjectID, Key) is set, depending on how the lookup was addressed.
type NotFoundError struct {
	SpecID    string
	ProjectID string
	Key       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.SpecID != "" {
		return fmt.Sprintf("specification %s not found", e.SpecID)
	}
	return fmt.Sprintf("specification %q not found in project %q", e.Key, e.ProjectID)
}

// InvalidTransitionError reports a status transition the lifecycle does
// not permit.
type InvalidTransitionError struct {
	SpecID string
	From   Status
	To     Status
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("specification %s cannot transition from %s to %s", e.SpecID, e.From, e.To)
}
