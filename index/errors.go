// Package index provides sentinel errors for component index operations.
// All errors can be checked using errors.Is() for programmatic handling.
package index

import (
	"errors"
	"fmt"
)

// ErrDuplicateName is returned when registering a component whose name
// already exists (case-insensitive) among non-tombstoned components.
var ErrDuplicateName = errors.New("component name already exists")

// ErrComponentNotFound is returned when a component id is unknown or the
// component has been tombstoned.
var ErrComponentNotFound = errors.New("component not found")

// ErrVersionNotFound is returned when a version id is unknown.
var ErrVersionNotFound = errors.New("version not found")

// ErrVersionNotMonotonic is returned when a submission would violate the
// strictly-increasing semantic-version ordering of a component.
var ErrVersionNotMonotonic = errors.New("version is not strictly greater than the current highest")

// ErrInvalidVersion is returned when a version string is not valid strict
// semantic versioning.
var ErrInvalidVersion = errors.New("invalid semantic version")

// ErrInvalidConstraint is returned when a dependency constraint expression
// cannot be parsed.
var ErrInvalidConstraint = errors.New("invalid version constraint")

// ErrInvalidTransition is returned for any illegal version status transition.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrAlreadyValidating is returned when validation is requested for a
// version whose pipeline run is already in flight.
var ErrAlreadyValidating = errors.New("validation already in progress")

// ErrNoSatisfyingVersion is returned when no validated or published version
// matches a dependency constraint.
var ErrNoSatisfyingVersion = errors.New("no version satisfies the constraint")

// ErrDependencyCycle is returned when resolving the transitive dependency
// closure detects a cycle.
var ErrDependencyCycle = errors.New("dependency cycle detected")

// ErrInvalidInput is returned when an operation's input fails validation.
var ErrInvalidInput = errors.New("invalid input")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
