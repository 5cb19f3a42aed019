// Package domain provides canonical type definitions for Component Vault entities.
package domain

import "time"

// Component represents a logical, named reusable artifact with a version history.
// Components are soft-deleted (tombstoned) so historical versions keep a valid
// owner reference.
type Component struct {
	// ID is the unique identifier for this component (UUID).
	ID string `json:"id"`

	// Name is the component name, unique (case-insensitive) among live components.
	Name string `json:"name" validate:"required"`

	// Description is a human-readable summary of what the component does.
	Description string `json:"description"`

	// Category groups components in the working tree (components/<category>/<name>).
	Category string `json:"category" validate:"required"`

	// Owner is the identity that registered the component. Authentication
	// happens upstream; the core trusts this value.
	Owner string `json:"owner" validate:"required"`

	// Tags label the component for search.
	Tags []string `json:"tags,omitempty"`

	// Tombstoned marks the component as deleted without purging its versions.
	Tombstoned bool `json:"tombstoned"`

	// CreatedAt is when the component was first registered.
	CreatedAt time.Time `json:"created_at"`
}

// TreePath returns the component's directory inside the repository working tree.
func (c *Component) TreePath() string {
	return "components/" + c.Category + "/" + c.Name
}

// ManifestEntry is one path → content-hash pair in a version's file manifest.
// The hash is the git blob hash, so identical content maps to identical hashes.
type ManifestEntry struct {
	// Path is the file path relative to the repository root.
	Path string `json:"path"`

	// Hash is the content-addressed blob hash of the file at the pinned commit.
	Hash string `json:"hash"`
}

// Dependency is a directed edge from a ComponentVersion to a required
// component plus a semantic-version constraint expression.
type Dependency struct {
	// Requires is the name of the required component. Names, not ids, are
	// what descriptors declare and what resolution looks up.
	Requires string `json:"requires" validate:"required"`

	// Constraint is a semantic-version range, e.g. ">=1.0.0, <2.0.0".
	Constraint string `json:"constraint" validate:"required"`
}

// ComponentVersion is one immutable point in a component's history, pinned to
// a commit in the repository. The pinned commit and manifest never change
// after creation; corrections require a new version.
type ComponentVersion struct {
	// ID is the unique identifier for this version (UUID).
	ID string `json:"id"`

	// ComponentID references the owning Component.
	ComponentID string `json:"component_id" validate:"required"`

	// Version is the semantic-version identifier, strictly ordered per component.
	Version string `json:"version" validate:"required"`

	// CommitID is the pinned commit hash in the repository.
	CommitID string `json:"commit_id" validate:"required"`

	// Manifest lists the files that make up this version.
	Manifest []ManifestEntry `json:"manifest"`

	// Dependencies are the declared requirements of this version.
	Dependencies []Dependency `json:"dependencies,omitempty"`

	// Status is the current lifecycle status.
	Status VersionStatus `json:"status"`

	// ReportID references the latest ValidationReport, if any.
	ReportID string `json:"report_id,omitempty"`

	// CreatedAt is when the version was submitted.
	CreatedAt time.Time `json:"created_at"`
}

// Finding is a single observation produced by a validation stage.
type Finding struct {
	// Stage is the name of the stage that produced the finding.
	Stage string `json:"stage"`

	// Severity classifies the finding.
	Severity Severity `json:"severity"`

	// Message describes the finding.
	Message string `json:"message"`

	// Path is the file the finding refers to, if any.
	Path string `json:"path,omitempty"`

	// Line is the 1-based line number the finding refers to, if any.
	Line int `json:"line,omitempty"`

	// Hard marks a finding that forces rejection even inside a soft stage.
	Hard bool `json:"hard,omitempty"`
}

// StageResult records the outcome of one validation stage.
type StageResult struct {
	// Stage is the stage name.
	Stage string `json:"stage"`

	// Outcome summarizes the stage.
	Outcome StageOutcome `json:"outcome"`

	// Findings is the ordered list of observations from this stage.
	Findings []Finding `json:"findings,omitempty"`
}

// ValidationReport is the immutable record of one validation run. Re-running
// validation creates a new report that supersedes the prior one.
type ValidationReport struct {
	// ID is the unique identifier for this report (UUID).
	ID string `json:"id"`

	// VersionID references the ComponentVersion the report belongs to.
	VersionID string `json:"version_id"`

	// Stages holds per-stage results in execution order. Stages that never
	// ran because a hard gate aborted the pipeline are absent.
	Stages []StageResult `json:"stages"`

	// Verdict is the overall result.
	Verdict Verdict `json:"verdict"`

	// CreatedAt is when the run completed.
	CreatedAt time.Time `json:"created_at"`
}

// Findings returns all findings across stages in execution order.
func (r *ValidationReport) Findings() []Finding {
	var out []Finding
	for _, s := range r.Stages {
		out = append(out, s.Findings...)
	}
	return out
}

// Controlled metadata vocabulary. Required keys must be present and non-empty
// before a version can leave draft; free-form extension keys use "ext.".
const (
	// MetaName is the controlled key for the component display name.
	MetaName = "meta.name"

	// MetaDescription is the controlled key for the component description.
	MetaDescription = "meta.description"

	// MetaTags is the controlled key for the tag set.
	MetaTags = "meta.tags"

	// ExtPrefix prefixes free-form extension keys.
	ExtPrefix = "ext."
)

// RequiredMetadataKeys lists the controlled keys that must be present and
// non-empty on every version.
var RequiredMetadataKeys = []string{MetaName, MetaDescription, MetaTags}
