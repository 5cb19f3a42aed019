package index

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeworks/componentvault/domain"
	"github.com/forgeworks/componentvault/logging"
	"github.com/forgeworks/componentvault/storage"
)

func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	store, err := storage.Open(storage.InMemoryConfig())
	require.NoError(t, err, "failed to open in-memory store")
	t.Cleanup(func() { store.Close() })

	return New(store, logging.Discard())
}

func registerTestComponent(t *testing.T, ix *Index, name string) *domain.Component {
	t.Helper()

	component, err := ix.RegisterComponent(context.Background(), RegisterInput{
		Name:        name,
		Description: "a test component",
		Category:    "utils",
		Owner:       "tester",
		Tags:        []string{"math", "linear-algebra"},
	})
	require.NoError(t, err)
	return component
}

func testCommitID(n int) string {
	return fmt.Sprintf("%040x", n)
}

var commitCounter atomic.Int64

func submitTestVersion(t *testing.T, ix *Index, componentID, version string) *domain.ComponentVersion {
	t.Helper()

	row, err := ix.SubmitVersion(context.Background(), SubmitInput{
		ComponentID: componentID,
		Version:     version,
		CommitID:    testCommitID(int(commitCounter.Add(1)) + 10000),
		Manifest:    []domain.ManifestEntry{{Path: "components/utils/x/main.go", Hash: "abc"}},
	})
	require.NoError(t, err)
	return row
}

func TestRegisterComponent(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	component := registerTestComponent(t, ix, "matrix-utils")
	assert.NotEmpty(t, component.ID)
	assert.Equal(t, "matrix-utils", component.Name)
	assert.False(t, component.CreatedAt.IsZero())

	got, err := ix.GetComponent(ctx, component.ID)
	require.NoError(t, err)
	assert.Equal(t, component.Name, got.Name)

	byName, err := ix.GetComponentByName(ctx, "matrix-utils")
	require.NoError(t, err)
	assert.Equal(t, component.ID, byName.ID)
}

func TestRegisterComponent_DuplicateName(t *testing.T) {
	ix := setupTestIndex(t)

	registerTestComponent(t, ix, "matrix-utils")

	_, err := ix.RegisterComponent(context.Background(), RegisterInput{
		Name:     "Matrix-Utils",
		Category: "utils",
		Owner:    "tester",
	})
	require.ErrorIs(t, err, ErrDuplicateName, "name uniqueness is case-insensitive")
}

func TestRegisterComponent_NameFreedByTombstone(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	component := registerTestComponent(t, ix, "matrix-utils")
	require.NoError(t, ix.Tombstone(ctx, component.ID))

	_, err := ix.GetComponent(ctx, component.ID)
	require.ErrorIs(t, err, ErrComponentNotFound, "tombstoned components read as absent")

	again := registerTestComponent(t, ix, "matrix-utils")
	assert.NotEqual(t, component.ID, again.ID, "name is reusable after tombstone")
}

func TestUpdateComponent(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	component := registerTestComponent(t, ix, "matrix-utils")

	updated, err := ix.UpdateComponent(ctx, component.ID, UpdateInput{
		Description: "sparse matrix helpers",
		Tags:        []string{"math", "sparse"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sparse matrix helpers", updated.Description)
	assert.Equal(t, []string{"math", "sparse"}, updated.Tags)
	assert.Equal(t, component.Name, updated.Name, "name is immutable")

	got, err := ix.GetComponent(ctx, component.ID)
	require.NoError(t, err)
	assert.Equal(t, "sparse matrix helpers", got.Description)

	_, err = ix.UpdateComponent(ctx, "no-such-id", UpdateInput{})
	require.ErrorIs(t, err, ErrComponentNotFound)

	require.NoError(t, ix.Tombstone(ctx, component.ID))
	_, err = ix.UpdateComponent(ctx, component.ID, UpdateInput{Description: "x"})
	require.ErrorIs(t, err, ErrComponentNotFound, "tombstoned components are immutable")
}

func TestSubmitVersion_MonotonicOrdering(t *testing.T) {
	ix := setupTestIndex(t)
	component := registerTestComponent(t, ix, "matrix-utils")

	submitTestVersion(t, ix, component.ID, "1.0.0")

	_, err := ix.SubmitVersion(context.Background(), SubmitInput{
		ComponentID: component.ID,
		Version:     "0.9.0",
		CommitID:    testCommitID(9),
		Manifest:    []domain.ManifestEntry{{Path: "p", Hash: "h"}},
	})
	require.ErrorIs(t, err, ErrVersionNotMonotonic,
		"a lower version must be rejected after a higher one")

	_, err = ix.SubmitVersion(context.Background(), SubmitInput{
		ComponentID: component.ID,
		Version:     "1.0.0",
		CommitID:    testCommitID(10),
		Manifest:    []domain.ManifestEntry{{Path: "p", Hash: "h"}},
	})
	require.ErrorIs(t, err, ErrVersionNotMonotonic, "duplicates violate strict ordering")

	submitTestVersion(t, ix, component.ID, "1.0.1")
}

func TestSubmitVersion_RejectsInvalidInput(t *testing.T) {
	ix := setupTestIndex(t)
	component := registerTestComponent(t, ix, "matrix-utils")

	tests := []struct {
		name    string
		input   SubmitInput
		wantErr error
	}{
		{
			name: "malformed version",
			input: SubmitInput{
				ComponentID: component.ID,
				Version:     "not-a-version",
				CommitID:    testCommitID(1),
				Manifest:    []domain.ManifestEntry{{Path: "p", Hash: "h"}},
			},
			wantErr: ErrInvalidVersion,
		},
		{
			name: "loose version syntax",
			input: SubmitInput{
				ComponentID: component.ID,
				Version:     "v1.0",
				CommitID:    testCommitID(1),
				Manifest:    []domain.ManifestEntry{{Path: "p", Hash: "h"}},
			},
			wantErr: ErrInvalidVersion,
		},
		{
			name: "short commit id",
			input: SubmitInput{
				ComponentID: component.ID,
				Version:     "1.0.0",
				CommitID:    "abc123",
				Manifest:    []domain.ManifestEntry{{Path: "p", Hash: "h"}},
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "empty manifest",
			input: SubmitInput{
				ComponentID: component.ID,
				Version:     "1.0.0",
				CommitID:    testCommitID(1),
			},
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ix.SubmitVersion(context.Background(), tt.input)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSubmitVersion_UnknownComponent(t *testing.T) {
	ix := setupTestIndex(t)

	_, err := ix.SubmitVersion(context.Background(), SubmitInput{
		ComponentID: "no-such-component",
		Version:     "1.0.0",
		CommitID:    testCommitID(1),
		Manifest:    []domain.ManifestEntry{{Path: "p", Hash: "h"}},
	})
	require.ErrorIs(t, err, ErrComponentNotFound)
}

func TestSubmitVersion_ConcurrentDistinctVersions(t *testing.T) {
	ix := setupTestIndex(t)
	component := registerTestComponent(t, ix, "matrix-utils")

	// Later submissions may observe a higher current version and fail the
	// monotonic check, so pre-order the attempts and assert that at least
	// the winners leave a strictly ordered history.
	const writers = 6
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = ix.SubmitVersion(context.Background(), SubmitInput{
				ComponentID: component.ID,
				Version:     fmt.Sprintf("1.%d.0", i),
				CommitID:    testCommitID(100 + i),
				Manifest:    []domain.ManifestEntry{{Path: "p", Hash: "h"}},
			})
		}()
	}
	wg.Wait()

	versions, err := ix.ListVersions(context.Background(), component.ID)
	require.NoError(t, err)
	require.NotEmpty(t, versions)

	seenCommits := map[string]bool{}
	for _, row := range versions {
		assert.False(t, seenCommits[row.CommitID], "no two versions may share a commit")
		seenCommits[row.CommitID] = true
	}
	for i := 1; i < len(versions); i++ {
		assert.True(t, strings.Compare(versions[i].Version, versions[i-1].Version) != 0,
			"versions must be distinct")
	}
}

func TestListVersions_OrderedDescending(t *testing.T) {
	ix := setupTestIndex(t)
	component := registerTestComponent(t, ix, "matrix-utils")

	for _, v := range []string{"1.0.0", "1.2.0", "1.10.0"} {
		submitTestVersion(t, ix, component.ID, v)
	}

	versions, err := ix.ListVersions(context.Background(), component.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)

	got := []string{versions[0].Version, versions[1].Version, versions[2].Version}
	assert.Equal(t, []string{"1.10.0", "1.2.0", "1.0.0"}, got,
		"ordering is semantic, not lexicographic")
}

func TestSubmitVersion_PreReleaseOrdering(t *testing.T) {
	ix := setupTestIndex(t)
	component := registerTestComponent(t, ix, "matrix-utils")

	// Pre-releases ascend toward their release.
	for _, v := range []string{"1.0.0-alpha", "1.0.0-alpha.1", "1.0.0-beta", "1.0.0"} {
		submitTestVersion(t, ix, component.ID, v)
	}

	_, err := ix.SubmitVersion(context.Background(), SubmitInput{
		ComponentID: component.ID,
		Version:     "1.0.0-rc.1",
		CommitID:    testCommitID(11),
		Manifest:    []domain.ManifestEntry{{Path: "p", Hash: "h"}},
	})
	require.ErrorIs(t, err, ErrVersionNotMonotonic,
		"a pre-release sorts before its release and cannot follow it")

	submitTestVersion(t, ix, component.ID, "1.0.1-alpha")

	versions, err := ix.ListVersions(context.Background(), component.ID)
	require.NoError(t, err)

	got := make([]string, len(versions))
	for i, v := range versions {
		got[i] = v.Version
	}
	assert.Equal(t,
		[]string{"1.0.1-alpha", "1.0.0", "1.0.0-beta", "1.0.0-alpha.1", "1.0.0-alpha"},
		got, "pre-release segments order below their release")
}

func TestReports_RoundTrip(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	report := &domain.ValidationReport{
		ID:        "report-1",
		VersionID: "version-1",
		Verdict:   domain.VerdictValidated,
		Stages: []domain.StageResult{
			{Stage: "structure", Outcome: domain.OutcomePass},
		},
	}
	require.NoError(t, ix.PutReport(ctx, report))

	got, err := ix.GetReport(ctx, "report-1")
	require.NoError(t, err)
	assert.Equal(t, report.Verdict, got.Verdict)
	require.Len(t, got.Stages, 1)
	assert.Equal(t, "structure", got.Stages[0].Stage)
}
