// Package errors provides the structured error code surface for Component
// Vault. It extends Go's standard error handling with string-based codes for
// API serialization and a retryability classification, so the transport layer
// can translate each error kind to a distinct status without inspecting
// package-level sentinels itself.
package errors

// ErrorCode identifies a specific error condition at the API boundary.
// Codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Repository errors.

	// CodeRepositoryUnavailable indicates the git remote is unreachable and
	// no usable local copy exists. Retryable.
	CodeRepositoryUnavailable ErrorCode = "REPOSITORY_UNAVAILABLE"

	// CodeDirtyWorkingTree indicates the working tree was mutated outside the
	// service. Invariant violation; never silently retried.
	CodeDirtyWorkingTree ErrorCode = "DIRTY_WORKING_TREE"

	// CodeSyncConflict indicates local history diverged from the remote.
	CodeSyncConflict ErrorCode = "SYNC_CONFLICT"

	// Index errors.

	// CodeDuplicateName indicates a component name collision.
	CodeDuplicateName ErrorCode = "DUPLICATE_NAME"

	// CodeComponentNotFound indicates an unknown or tombstoned component.
	CodeComponentNotFound ErrorCode = "COMPONENT_NOT_FOUND"

	// CodeVersionNotFound indicates an unknown component version.
	CodeVersionNotFound ErrorCode = "VERSION_NOT_FOUND"

	// CodeVersionNotMonotonic indicates a submission that would violate the
	// strictly-increasing version ordering.
	CodeVersionNotMonotonic ErrorCode = "VERSION_NOT_MONOTONIC"

	// CodeInvalidTransition indicates an illegal version status transition.
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// CodeNoSatisfyingVersion indicates no eligible version matches a
	// dependency constraint.
	CodeNoSatisfyingVersion ErrorCode = "NO_SATISFYING_VERSION"

	// CodeDependencyCycle indicates a cycle in the resolved dependency graph.
	CodeDependencyCycle ErrorCode = "DEPENDENCY_CYCLE"

	// Validation errors.

	// CodeAlreadyValidating indicates a concurrent validation request for a
	// version whose pipeline run is already in flight.
	CodeAlreadyValidating ErrorCode = "ALREADY_VALIDATING"

	// CodeValidationAborted indicates a hard-gate stage failed. This is a
	// legitimate terminal outcome recorded in the report, not a system error.
	CodeValidationAborted ErrorCode = "VALIDATION_ABORTED"

	// Generic errors.

	// CodeInvalidInput indicates malformed input.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeTimeout indicates an operation exceeded its time limit. Retryable.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unclassified error.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Retryable reports whether the caller may safely retry the failed operation
// without re-fetching state first. Invariant violations are deliberately not
// retryable: retrying them could compound corruption.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeRepositoryUnavailable, CodeTimeout:
		return true
	default:
		return false
	}
}

// String returns the string representation of the ErrorCode.
func (c ErrorCode) String() string {
	return string(c)
}
