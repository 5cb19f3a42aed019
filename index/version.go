// Package index maintains the relational view over components and versions.
// This file contains version submission and the status state machine.
package index

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"github.com/forgeworks/componentvault/domain"
	"github.com/forgeworks/componentvault/storage"
)

// SubmitInput is the payload for SubmitVersion. The commit id comes from the
// repository Manager, which has already committed the version's files.
type SubmitInput struct {
	// ComponentID references the owning component.
	ComponentID string `validate:"required"`

	// Version is the strict semantic-version identifier.
	Version string `validate:"required"`

	// CommitID is the pinned commit hash.
	CommitID string `validate:"required,len=40,hexadecimal"`

	// Manifest lists the version's files.
	Manifest []domain.ManifestEntry `validate:"required,min=1"`

	// Dependencies declares required components with constraints.
	Dependencies []domain.Dependency `validate:"dive"`
}

// componentLock returns the per-component critical section used to serialize
// submissions for one component id.
func (ix *Index) componentLock(componentID string) *sync.Mutex {
	ix.submitMu.Lock()
	defer ix.submitMu.Unlock()
	mu, ok := ix.submitLocks[componentID]
	if !ok {
		mu = &sync.Mutex{}
		ix.submitLocks[componentID] = mu
	}
	return mu
}

// SubmitVersion records a new draft version pinned to a commit id.
//
// The version string must be strictly greater than the component's current
// highest version under semantic-version comparison. The check runs inside
// the per-component critical section, so two concurrent submissions cannot
// both observe the same "current highest" and collide.
func (ix *Index) SubmitVersion(ctx context.Context, in SubmitInput) (*domain.ComponentVersion, error) {
	if err := ix.validate.Struct(in); err != nil {
		return nil, WrapError(ErrInvalidInput, err.Error())
	}

	submitted, err := semver.StrictNewVersion(in.Version)
	if err != nil {
		return nil, WrapErrorf(ErrInvalidVersion, "%q", in.Version)
	}

	mu := ix.componentLock(in.ComponentID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := ix.GetComponent(ctx, in.ComponentID); err != nil {
		return nil, err
	}

	version := &domain.ComponentVersion{
		ID:           uuid.NewString(),
		ComponentID:  in.ComponentID,
		Version:      in.Version,
		CommitID:     in.CommitID,
		Manifest:     in.Manifest,
		Dependencies: in.Dependencies,
		Status:       domain.StatusDraft,
		CreatedAt:    time.Now().UTC(),
	}

	err = ix.store.Update(func(tx *storage.Tx) error {
		// Re-check the ordering invariant inside the transaction; the
		// critical section makes the read-check-insert step atomic per
		// component.
		existing, err := versionsOf(tx, in.ComponentID)
		if err != nil {
			return err
		}
		if highest := highestVersion(existing); highest != nil && !submitted.GreaterThan(highest) {
			return WrapErrorf(ErrVersionNotMonotonic,
				"%q is not greater than current highest %q", in.Version, highest.Original())
		}
		if err := tx.Put(keyVersion+version.ID, version); err != nil {
			return err
		}
		return tx.Put(keyByComp+in.ComponentID+"/"+version.ID, struct{}{})
	})
	if err != nil {
		return nil, err
	}

	ix.logger.Info("submitted component version",
		"component", in.ComponentID, "version", in.Version, "commit", in.CommitID)
	return version, nil
}

// highestVersion returns the greatest semantic version among rows, or nil.
// Rows with unparsable versions cannot exist past SubmitVersion and are
// skipped.
func highestVersion(versions []*domain.ComponentVersion) *semver.Version {
	var highest *semver.Version
	for _, row := range versions {
		parsed, err := semver.StrictNewVersion(row.Version)
		if err != nil {
			continue
		}
		if highest == nil || parsed.GreaterThan(highest) {
			highest = parsed
		}
	}
	return highest
}

// sortVersionsDescending orders rows newest semantic version first.
// Pre-release segments sort before their release per semver.
func sortVersionsDescending(versions []*domain.ComponentVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, erri := semver.StrictNewVersion(versions[i].Version)
		vj, errj := semver.StrictNewVersion(versions[j].Version)
		if erri != nil || errj != nil {
			return versions[i].Version > versions[j].Version
		}
		return vi.GreaterThan(vj)
	})
}

// transition moves a version from exactly one status to another inside a
// single transaction, enforcing the state machine. mutate, when non-nil,
// applies additional row changes under the same transaction.
func (ix *Index) transition(versionID string, from, to domain.VersionStatus, mutate func(*domain.ComponentVersion)) (*domain.ComponentVersion, error) {
	var version domain.ComponentVersion
	err := ix.store.Update(func(tx *storage.Tx) error {
		if err := tx.Get(keyVersion+versionID, &version); err != nil {
			if storageNotFound(err) {
				return WrapErrorf(ErrVersionNotFound, "%q", versionID)
			}
			return err
		}
		if version.Status != from {
			return WrapErrorf(ErrInvalidTransition,
				"version %q is %q, expected %q", versionID, version.Status, from)
		}
		if !version.Status.CanTransition(to) {
			return WrapErrorf(ErrInvalidTransition, "%q → %q", from, to)
		}
		version.Status = to
		if mutate != nil {
			mutate(&version)
		}
		return tx.Put(keyVersion+versionID, &version)
	})
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// StartValidation flips a draft version to validating. The validating status
// acts as a single-flight marker: a second concurrent request for the same
// version fails with ErrAlreadyValidating instead of re-running the pipeline.
func (ix *Index) StartValidation(ctx context.Context, versionID string) (*domain.ComponentVersion, error) {
	version, err := ix.transition(versionID, domain.StatusDraft, domain.StatusValidating, nil)
	if err == nil {
		return version, nil
	}

	// Distinguish the in-flight case from a genuinely illegal transition.
	current, getErr := ix.GetVersion(ctx, versionID)
	if getErr == nil && current.Status == domain.StatusValidating {
		return nil, WrapErrorf(ErrAlreadyValidating, "version %q", versionID)
	}
	return nil, err
}

// FinishValidation records the pipeline outcome: validated or rejected, with
// the report attached.
func (ix *Index) FinishValidation(ctx context.Context, versionID string, verdict domain.Verdict, reportID string) (*domain.ComponentVersion, error) {
	to := domain.StatusValidated
	if verdict == domain.VerdictRejected {
		to = domain.StatusRejected
	}
	return ix.transition(versionID, domain.StatusValidating, to, func(v *domain.ComponentVersion) {
		v.ReportID = reportID
	})
}

// RevertValidation returns an interrupted validating version to draft so it
// can be resubmitted without penalty. Partial pipeline results are discarded.
func (ix *Index) RevertValidation(ctx context.Context, versionID string) error {
	_, err := ix.transition(versionID, domain.StatusValidating, domain.StatusDraft, nil)
	return err
}

// Promote transitions a validated version to published. Any other source
// status fails with ErrInvalidTransition. Promotion archives the component's
// rejected lower versions: they are superseded and would only clutter search.
func (ix *Index) Promote(ctx context.Context, versionID string) (*domain.ComponentVersion, error) {
	version, err := ix.transition(versionID, domain.StatusValidated, domain.StatusPublished, nil)
	if err != nil {
		return nil, err
	}

	if err := ix.archiveSupersededRejected(version); err != nil {
		// The promotion itself already committed; log and keep going.
		ix.logger.Error("failed to archive superseded rejected versions",
			"component", version.ComponentID, "error", err)
	}

	ix.logger.Info("promoted component version",
		"component", version.ComponentID, "version", version.Version)
	return version, nil
}

// archiveSupersededRejected archives rejected versions older than the newly
// published one.
func (ix *Index) archiveSupersededRejected(published *domain.ComponentVersion) error {
	publishedSemver, err := semver.StrictNewVersion(published.Version)
	if err != nil {
		return WrapErrorf(ErrInvalidVersion, "%q", published.Version)
	}

	return ix.store.Update(func(tx *storage.Tx) error {
		versions, err := versionsOf(tx, published.ComponentID)
		if err != nil {
			return err
		}
		for _, row := range versions {
			if row.Status != domain.StatusRejected {
				continue
			}
			rowSemver, err := semver.StrictNewVersion(row.Version)
			if err != nil || !rowSemver.LessThan(publishedSemver) {
				continue
			}
			row.Status = domain.StatusArchived
			if err := tx.Put(keyVersion+row.ID, row); err != nil {
				return err
			}
		}
		return nil
	})
}

// Archive explicitly archives a version that is draft, validated, rejected
// or published. Archived is terminal.
func (ix *Index) Archive(ctx context.Context, versionID string) (*domain.ComponentVersion, error) {
	var version domain.ComponentVersion
	err := ix.store.Update(func(tx *storage.Tx) error {
		if err := tx.Get(keyVersion+versionID, &version); err != nil {
			if storageNotFound(err) {
				return WrapErrorf(ErrVersionNotFound, "%q", versionID)
			}
			return err
		}
		if !version.Status.CanTransition(domain.StatusArchived) {
			return WrapErrorf(ErrInvalidTransition, "%q → %q", version.Status, domain.StatusArchived)
		}
		version.Status = domain.StatusArchived
		return tx.Put(keyVersion+versionID, &version)
	})
	if err != nil {
		return nil, err
	}
	return &version, nil
}
