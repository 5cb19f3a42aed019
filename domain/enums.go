// Package domain provides canonical type definitions for Component Vault entities.
package domain

// VersionStatus represents the lifecycle status of a ComponentVersion.
// A version moves draft → validating → {validated, rejected} → published →
// archived; rejected and archived are terminal for that version.
type VersionStatus string

const (
	// StatusDraft indicates a submitted version that has not been validated yet.
	StatusDraft VersionStatus = "draft"

	// StatusValidating indicates the validation pipeline is currently running.
	// The status doubles as a single-flight marker: a version already
	// validating cannot enter the pipeline a second time.
	StatusValidating VersionStatus = "validating"

	// StatusValidated indicates the pipeline completed with a passing verdict.
	StatusValidated VersionStatus = "validated"

	// StatusRejected indicates the pipeline completed with a failing verdict.
	// Terminal; a new version must be submitted to retry.
	StatusRejected VersionStatus = "rejected"

	// StatusPublished indicates the version was explicitly promoted and is
	// eligible for dependency resolution alongside validated versions.
	StatusPublished VersionStatus = "published"

	// StatusArchived indicates the version was superseded or withdrawn.
	// Terminal.
	StatusArchived VersionStatus = "archived"
)

// String returns the string representation of the VersionStatus.
func (s VersionStatus) String() string {
	return string(s)
}

// versionTransitions is the closed set of legal status transitions.
// validating → draft is the cancellation path: an interrupted pipeline run
// discards partial results and makes the version resubmittable.
var versionTransitions = map[VersionStatus][]VersionStatus{
	StatusDraft:      {StatusValidating, StatusArchived},
	StatusValidating: {StatusValidated, StatusRejected, StatusDraft},
	StatusValidated:  {StatusPublished, StatusArchived},
	StatusRejected:   {StatusArchived},
	StatusPublished:  {StatusArchived},
	StatusArchived:   {},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s VersionStatus) CanTransition(next VersionStatus) bool {
	for _, allowed := range versionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s VersionStatus) Terminal() bool {
	return len(versionTransitions[s]) == 0
}

// Severity classifies a validation finding.
type Severity string

const (
	// SeverityInfo is an informational finding with no effect on the verdict.
	SeverityInfo Severity = "info"

	// SeverityWarning is a quality concern that does not block publication.
	SeverityWarning Severity = "warning"

	// SeverityError is a finding that fails its stage.
	SeverityError Severity = "error"
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	return string(s)
}

// StageOutcome summarizes a single validation stage.
type StageOutcome string

const (
	// OutcomePass indicates the stage produced no warnings or errors.
	OutcomePass StageOutcome = "pass"

	// OutcomeWarn indicates the stage produced warnings only.
	OutcomeWarn StageOutcome = "warn"

	// OutcomeFail indicates the stage produced at least one error finding.
	OutcomeFail StageOutcome = "fail"
)

// Verdict is the overall result of a validation run.
type Verdict string

const (
	// VerdictValidated indicates the version passed every gate.
	VerdictValidated Verdict = "validated"

	// VerdictRejected indicates a hard gate failed or a hard-severity
	// finding was recorded.
	VerdictRejected Verdict = "rejected"
)
