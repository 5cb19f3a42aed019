package service

import (
	"context"
	"errors"

	"github.com/forgeworks/componentvault/domain"
	"github.com/forgeworks/componentvault/validation"
)

// Validate runs the validation pipeline for a draft version and records the
// outcome: status becomes validated or rejected and the report is attached.
//
// The validating status is the single-flight marker; a concurrent second
// call fails with index.ErrAlreadyValidating. If the run is cancelled or a
// stage hits an infrastructure failure, the version reverts to draft, no
// report is kept and the error is returned.
func (s *Service) Validate(ctx context.Context, versionID string) (*domain.ValidationReport, error) {
	version, err := s.index.StartValidation(ctx, versionID)
	if err != nil {
		return nil, err
	}

	component, err := s.index.GetComponent(ctx, version.ComponentID)
	if err != nil {
		s.revertToDraft(versionID)
		return nil, err
	}

	snapshot := validation.NewSnapshot(
		s.repo,
		version.CommitID,
		component.TreePath(),
		version.Manifest,
		versionMetadata(component, s.extensionMetadata(ctx, versionID)),
	)

	report, err := s.pipeline.Run(ctx, versionID, snapshot)
	if err != nil {
		s.revertToDraft(versionID)
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, validation.WrapError(err, "validation run failed")
	}

	if err := s.index.PutReport(ctx, report); err != nil {
		s.revertToDraft(versionID)
		return nil, err
	}

	verdict := report.Verdict
	if _, err := s.index.FinishValidation(ctx, versionID, verdict, report.ID); err != nil {
		return nil, err
	}

	s.logger.Info("validated version",
		"version", versionID, "verdict", verdict, "report", report.ID)
	return report, nil
}

// revertToDraft returns an interrupted validating version to draft. Failures
// here are logged, not returned: the caller already has a primary error.
func (s *Service) revertToDraft(versionID string) {
	if err := s.index.RevertValidation(context.Background(), versionID); err != nil {
		s.logger.Error("failed to revert version to draft",
			"version", versionID, "error", err)
	}
}

// extensionMetadata loads the version's extension entries from the catalog
// as strings. Missing entries are not an error; the pipeline treats absent
// keys as absent metadata.
func (s *Service) extensionMetadata(ctx context.Context, versionID string) map[string]string {
	entries, err := s.catalog.Entries(ctx, versionID)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		if value, ok := entry.Value.(string); ok {
			out[entry.Key] = value
		}
	}
	return out
}

// Promote transitions a validated version to published.
func (s *Service) Promote(ctx context.Context, versionID string) (*domain.ComponentVersion, error) {
	return s.index.Promote(ctx, versionID)
}

// Archive archives a version explicitly.
func (s *Service) Archive(ctx context.Context, versionID string) (*domain.ComponentVersion, error) {
	return s.index.Archive(ctx, versionID)
}
