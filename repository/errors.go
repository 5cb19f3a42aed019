// Package repository provides sentinel errors for working-tree operations.
// All errors can be checked using errors.Is() for programmatic handling.
package repository

import (
	"errors"
	"fmt"
)

// ErrRepositoryUnavailable is returned when the remote is unreachable (or a
// network operation timed out) and no usable local copy exists. Callers may
// retry the operation.
var ErrRepositoryUnavailable = errors.New("repository unavailable")

// ErrDirtyWorkingTree is returned when uncommitted changes are detected in
// the working tree before a write. The working tree must only ever be mutated
// through the Manager, so this signals an invariant violation rather than a
// recoverable condition.
var ErrDirtyWorkingTree = errors.New("dirty working tree")

// ErrSyncConflict is returned when local history has diverged from the remote
// and a fast-forward is impossible. The Manager never attempts an automatic
// merge.
var ErrSyncConflict = errors.New("sync conflict: local history diverged")

// ErrRemoteMismatch is returned when the repository at the local path tracks
// a different remote than the one requested.
var ErrRemoteMismatch = errors.New("local repository tracks a different remote")

// ErrCommitNotFound is returned when a commit id cannot be resolved in the
// local object store.
var ErrCommitNotFound = errors.New("commit not found")

// ErrFileNotFound is returned when a path does not exist at the requested commit.
var ErrFileNotFound = errors.New("file not found at commit")

// ErrEmptyCommit is returned when a commit would record no changes.
var ErrEmptyCommit = errors.New("no changes to commit")

// ErrInvalidInput is returned when an argument is malformed (empty commit
// message, missing author, bad commit hash syntax).
var ErrInvalidInput = errors.New("invalid input")

// ErrLockUnavailable is returned when the exclusive write lock cannot be
// acquired before the caller's context expires.
var ErrLockUnavailable = errors.New("write lock unavailable")

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
