package validation

import "fmt"

// Sentinel errors returned by the validation pipeline.
var (
	// ErrValidationAborted indicates a hard gate failed and the pipeline
	// stopped early. This is a legitimate terminal outcome, recorded in the
	// report, not a system error.
	ErrValidationAborted = fmt.Errorf("validation aborted by hard gate")

	// ErrSnapshotRead indicates the pipeline could not read pinned content.
	// The run produced no usable report and the version should return to
	// draft.
	ErrSnapshotRead = fmt.Errorf("failed to read pinned snapshot")

	// ErrInvalidInput indicates a malformed pipeline invocation.
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// WrapError wraps an error with additional context while preserving the
// original error for errors.Is checks.
func WrapError(err error, msg string) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted context while preserving the
// original error for errors.Is checks.
func WrapErrorf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}
