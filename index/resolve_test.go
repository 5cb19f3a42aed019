package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeworks/componentvault/domain"
)

// publishTestVersion submits a version and pushes it through to published.
func publishTestVersion(t *testing.T, ix *Index, componentID, version string, deps ...domain.Dependency) *domain.ComponentVersion {
	t.Helper()
	ctx := context.Background()

	row, err := ix.SubmitVersion(ctx, SubmitInput{
		ComponentID:  componentID,
		Version:      version,
		CommitID:     testCommitID(int(commitCounter.Add(1)) + 20000),
		Manifest:     []domain.ManifestEntry{{Path: "p", Hash: "h"}},
		Dependencies: deps,
	})
	require.NoError(t, err)

	_, err = ix.StartValidation(ctx, row.ID)
	require.NoError(t, err)
	_, err = ix.FinishValidation(ctx, row.ID, domain.VerdictValidated, "r")
	require.NoError(t, err)
	published, err := ix.Promote(ctx, row.ID)
	require.NoError(t, err)
	return published
}

func TestResolveDependency_HighestSatisfying(t *testing.T) {
	ix := setupTestIndex(t)
	component := registerTestComponent(t, ix, "component-b")

	publishTestVersion(t, ix, component.ID, "1.0.0")
	publishTestVersion(t, ix, component.ID, "1.5.0")
	publishTestVersion(t, ix, component.ID, "2.0.0")

	resolved, err := ix.ResolveDependency(context.Background(), "component-b", ">=1.0.0 <2.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", resolved.Version,
		"must pick the highest version inside the range, not the overall highest")
}

func TestResolveDependency_EligibleStatusesOnly(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()
	component := registerTestComponent(t, ix, "component-b")

	// 1.0.0 published, 2.0.0 left as draft.
	publishTestVersion(t, ix, component.ID, "1.0.0")
	submitTestVersion(t, ix, component.ID, "2.0.0")

	resolved, err := ix.ResolveDependency(ctx, "component-b", ">=1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", resolved.Version, "drafts never satisfy a constraint")
}

func TestResolveDependency_NoSatisfyingVersion(t *testing.T) {
	ix := setupTestIndex(t)
	component := registerTestComponent(t, ix, "component-b")

	publishTestVersion(t, ix, component.ID, "1.0.0")

	_, err := ix.ResolveDependency(context.Background(), "component-b", ">=3.0.0")
	require.ErrorIs(t, err, ErrNoSatisfyingVersion)
}

func TestResolveDependency_InvalidConstraint(t *testing.T) {
	ix := setupTestIndex(t)
	registerTestComponent(t, ix, "component-b")

	_, err := ix.ResolveDependency(context.Background(), "component-b", "not a constraint")
	require.ErrorIs(t, err, ErrInvalidConstraint)
}

func TestCheckDependencyCycle_DetectsCycle(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	a := registerTestComponent(t, ix, "component-a")
	b := registerTestComponent(t, ix, "component-b")

	// a → b and b → a through published versions.
	publishTestVersion(t, ix, b.ID, "1.0.0",
		domain.Dependency{Requires: "component-a", Constraint: ">=1.0.0"})
	publishTestVersion(t, ix, a.ID, "1.0.0",
		domain.Dependency{Requires: "component-b", Constraint: ">=1.0.0"})

	err := ix.CheckDependencyCycle(ctx, "component-a",
		[]domain.Dependency{{Requires: "component-b", Constraint: ">=1.0.0"}})
	require.ErrorIs(t, err, ErrDependencyCycle)
}

func TestCheckDependencyCycle_AcyclicChain(t *testing.T) {
	ix := setupTestIndex(t)
	ctx := context.Background()

	b := registerTestComponent(t, ix, "component-b")
	c := registerTestComponent(t, ix, "component-c")

	publishTestVersion(t, ix, c.ID, "1.0.0")
	publishTestVersion(t, ix, b.ID, "1.0.0",
		domain.Dependency{Requires: "component-c", Constraint: ">=1.0.0"})

	err := ix.CheckDependencyCycle(ctx, "component-a",
		[]domain.Dependency{{Requires: "component-b", Constraint: ">=1.0.0"}})
	require.NoError(t, err)
}

func TestCheckDependencyCycle_UnknownDependency(t *testing.T) {
	ix := setupTestIndex(t)

	err := ix.CheckDependencyCycle(context.Background(), "component-a",
		[]domain.Dependency{{Requires: "missing", Constraint: ">=1.0.0"}})
	require.NoError(t, err, "unknown components are a resolution error, not a cycle")
}
