package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeworks/componentvault/domain"
)

func TestStartValidation(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()
	component := registerTestComponent(t, ix, "matrix-utils")
	version := submitTestVersion(t, ix, component.ID, "1.0.0")

	started, err := ix.StartValidation(ctx, version.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidating, started.Status)

	_, err = ix.StartValidation(ctx, version.ID)
	require.ErrorIs(t, err, ErrAlreadyValidating,
		"validating acts as the single-flight marker")
}

func TestStartValidation_UnknownVersion(t *testing.T) {
	ix := setupTestIndex(t)

	_, err := ix.StartValidation(context.Background(), "no-such-version")
	require.ErrorIs(t, err, ErrVersionNotFound)
}

func TestFinishValidation(t *testing.T) {
	tests := []struct {
		name       string
		verdict    domain.Verdict
		wantStatus domain.VersionStatus
	}{
		{name: "validated verdict", verdict: domain.VerdictValidated, wantStatus: domain.StatusValidated},
		{name: "rejected verdict", verdict: domain.VerdictRejected, wantStatus: domain.StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := setupTestIndex(t)
			ctx := context.Background()
			component := registerTestComponent(t, ix, "matrix-utils")
			version := submitTestVersion(t, ix, component.ID, "1.0.0")

			_, err := ix.StartValidation(ctx, version.ID)
			require.NoError(t, err)

			finished, err := ix.FinishValidation(ctx, version.ID, tt.verdict, "report-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, finished.Status)
			assert.Equal(t, "report-1", finished.ReportID)
		})
	}
}

func TestRevertValidation(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()
	component := registerTestComponent(t, ix, "matrix-utils")
	version := submitTestVersion(t, ix, component.ID, "1.0.0")

	_, err := ix.StartValidation(ctx, version.ID)
	require.NoError(t, err)

	require.NoError(t, ix.RevertValidation(ctx, version.ID))

	row, err := ix.GetVersion(ctx, version.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, row.Status, "interrupted runs return to draft")

	// Draft again, so a fresh validation can start.
	_, err = ix.StartValidation(ctx, version.ID)
	require.NoError(t, err)
}

func TestPromote_OnlyFromValidated(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()
	component := registerTestComponent(t, ix, "matrix-utils")

	advance := func(version string, to domain.VersionStatus) *domain.ComponentVersion {
		row := submitTestVersion(t, ix, component.ID, version)
		switch to {
		case domain.StatusDraft:
		case domain.StatusValidating:
			_, err := ix.StartValidation(ctx, row.ID)
			require.NoError(t, err)
		case domain.StatusValidated:
			_, err := ix.StartValidation(ctx, row.ID)
			require.NoError(t, err)
			_, err = ix.FinishValidation(ctx, row.ID, domain.VerdictValidated, "r")
			require.NoError(t, err)
		case domain.StatusRejected:
			_, err := ix.StartValidation(ctx, row.ID)
			require.NoError(t, err)
			_, err = ix.FinishValidation(ctx, row.ID, domain.VerdictRejected, "r")
			require.NoError(t, err)
		}
		return row
	}

	draft := advance("1.0.0", domain.StatusDraft)
	_, err := ix.Promote(ctx, draft.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	validating := advance("1.1.0", domain.StatusValidating)
	_, err = ix.Promote(ctx, validating.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	rejected := advance("1.2.0", domain.StatusRejected)
	_, err = ix.Promote(ctx, rejected.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	validated := advance("1.3.0", domain.StatusValidated)
	published, err := ix.Promote(ctx, validated.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, published.Status)
}

func TestPromote_ArchivesSupersededRejected(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()
	component := registerTestComponent(t, ix, "matrix-utils")

	// 1.0.0 rejected, 1.1.0 published, 2.0.0 validated then promoted.
	rejected := submitTestVersion(t, ix, component.ID, "1.0.0")
	_, err := ix.StartValidation(ctx, rejected.ID)
	require.NoError(t, err)
	_, err = ix.FinishValidation(ctx, rejected.ID, domain.VerdictRejected, "r1")
	require.NoError(t, err)

	earlier := submitTestVersion(t, ix, component.ID, "1.1.0")
	_, err = ix.StartValidation(ctx, earlier.ID)
	require.NoError(t, err)
	_, err = ix.FinishValidation(ctx, earlier.ID, domain.VerdictValidated, "r2")
	require.NoError(t, err)
	_, err = ix.Promote(ctx, earlier.ID)
	require.NoError(t, err)

	later := submitTestVersion(t, ix, component.ID, "2.0.0")
	_, err = ix.StartValidation(ctx, later.ID)
	require.NoError(t, err)
	_, err = ix.FinishValidation(ctx, later.ID, domain.VerdictValidated, "r3")
	require.NoError(t, err)
	_, err = ix.Promote(ctx, later.ID)
	require.NoError(t, err)

	gotRejected, err := ix.GetVersion(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, gotRejected.Status,
		"superseded rejected versions are archived on promotion")

	gotEarlier, err := ix.GetVersion(ctx, earlier.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, gotEarlier.Status,
		"published versions are never archived by a later promotion")
}

func TestArchive(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()
	component := registerTestComponent(t, ix, "matrix-utils")
	version := submitTestVersion(t, ix, component.ID, "1.0.0")

	archived, err := ix.Archive(ctx, version.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, archived.Status)

	_, err = ix.Archive(ctx, version.ID)
	require.ErrorIs(t, err, ErrInvalidTransition, "archived is terminal")
}
