package errors

import (
	"context"
	stderrors "errors"

	"github.com/forgeworks/componentvault/catalog"
	"github.com/forgeworks/componentvault/index"
	"github.com/forgeworks/componentvault/repository"
	"github.com/forgeworks/componentvault/validation"
)

// Classify maps an error from any layer to its API error code. Unrecognized
// errors map to CodeInternal; nil maps to CodeUnknown so callers notice a
// misuse instead of reporting success.
func Classify(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeUnknown

	case stderrors.Is(err, context.DeadlineExceeded):
		return CodeTimeout

	case stderrors.Is(err, repository.ErrRepositoryUnavailable),
		stderrors.Is(err, repository.ErrLockUnavailable):
		return CodeRepositoryUnavailable
	case stderrors.Is(err, repository.ErrDirtyWorkingTree):
		return CodeDirtyWorkingTree
	case stderrors.Is(err, repository.ErrSyncConflict),
		stderrors.Is(err, repository.ErrRemoteMismatch):
		return CodeSyncConflict
	case stderrors.Is(err, repository.ErrCommitNotFound),
		stderrors.Is(err, repository.ErrFileNotFound):
		return CodeVersionNotFound

	case stderrors.Is(err, index.ErrDuplicateName):
		return CodeDuplicateName
	case stderrors.Is(err, index.ErrComponentNotFound):
		return CodeComponentNotFound
	case stderrors.Is(err, index.ErrVersionNotFound),
		stderrors.Is(err, catalog.ErrEntityNotFound):
		return CodeVersionNotFound
	case stderrors.Is(err, index.ErrVersionNotMonotonic):
		return CodeVersionNotMonotonic
	case stderrors.Is(err, index.ErrInvalidTransition):
		return CodeInvalidTransition
	case stderrors.Is(err, index.ErrAlreadyValidating):
		return CodeAlreadyValidating
	case stderrors.Is(err, index.ErrNoSatisfyingVersion):
		return CodeNoSatisfyingVersion
	case stderrors.Is(err, index.ErrDependencyCycle):
		return CodeDependencyCycle

	case stderrors.Is(err, validation.ErrValidationAborted):
		return CodeValidationAborted

	case stderrors.Is(err, repository.ErrInvalidInput),
		stderrors.Is(err, repository.ErrEmptyCommit),
		stderrors.Is(err, index.ErrInvalidInput),
		stderrors.Is(err, index.ErrInvalidVersion),
		stderrors.Is(err, index.ErrInvalidConstraint),
		stderrors.Is(err, validation.ErrInvalidInput),
		stderrors.Is(err, catalog.ErrInvalidInput):
		return CodeInvalidInput

	default:
		return CodeInternal
	}
}

// Retryable reports whether the caller may retry the operation that produced
// err without re-fetching state first.
func Retryable(err error) bool {
	return Classify(err).Retryable()
}
