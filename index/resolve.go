package index

import (
	"context"
	"errors"

	"github.com/Masterminds/semver/v3"

	"github.com/forgeworks/componentvault/domain"
)

// eligibleForResolution reports whether a version may satisfy a dependency
// constraint. Only validated and published versions participate; drafts,
// rejected and archived versions never do.
func eligibleForResolution(status domain.VersionStatus) bool {
	return status == domain.StatusValidated || status == domain.StatusPublished
}

// ResolveDependency returns the highest eligible version of the named
// component that satisfies the constraint expression. The constraint syntax
// follows semver ranges ("^1.2.0", ">=1.0.0 <2.0.0", "~1.4").
func (ix *Index) ResolveDependency(ctx context.Context, componentName, constraint string) (*domain.ComponentVersion, error) {
	parsed, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, WrapErrorf(ErrInvalidConstraint, "%q: %v", constraint, err)
	}

	component, err := ix.GetComponentByName(ctx, componentName)
	if err != nil {
		return nil, err
	}

	versions, err := ix.ListVersions(ctx, component.ID)
	if err != nil {
		return nil, err
	}

	var best *domain.ComponentVersion
	var bestSemver *semver.Version
	for _, row := range versions {
		if !eligibleForResolution(row.Status) {
			continue
		}
		candidate, err := semver.StrictNewVersion(row.Version)
		if err != nil {
			continue
		}
		if !parsed.Check(candidate) {
			continue
		}
		if bestSemver == nil || candidate.GreaterThan(bestSemver) {
			best = row
			bestSemver = candidate
		}
	}
	if best == nil {
		return nil, WrapErrorf(ErrNoSatisfyingVersion,
			"component %q has no validated or published version matching %q", componentName, constraint)
	}
	return best, nil
}

// CheckDependencyCycle walks the transitive dependency closure starting from
// the declared dependencies and fails with ErrDependencyCycle if the
// component would depend, directly or transitively, on itself.
//
// Edges follow declared component names, not resolved versions: a cycle in
// the declaration graph is rejected regardless of which concrete versions a
// resolver would pick.
func (ix *Index) CheckDependencyCycle(ctx context.Context, componentName string, deps []domain.Dependency) error {
	// visiting holds the names on the current walk path; a revisit is a cycle.
	visiting := map[string]bool{componentName: true}
	visited := map[string]bool{}

	var walk func(deps []domain.Dependency) error
	walk = func(deps []domain.Dependency) error {
		for _, dep := range deps {
			if visiting[dep.Requires] {
				return WrapErrorf(ErrDependencyCycle,
					"component %q participates in a dependency cycle", dep.Requires)
			}
			if visited[dep.Requires] {
				continue
			}

			component, err := ix.GetComponentByName(ctx, dep.Requires)
			if err != nil {
				// A dependency on an unknown component is not a cycle;
				// resolution reports it separately.
				if errors.Is(err, ErrComponentNotFound) {
					continue
				}
				return err
			}

			versions, err := ix.ListVersions(ctx, component.ID)
			if err != nil {
				return err
			}

			visiting[dep.Requires] = true
			for _, row := range versions {
				if !eligibleForResolution(row.Status) {
					continue
				}
				if err := walk(row.Dependencies); err != nil {
					return err
				}
			}
			delete(visiting, dep.Requires)
			visited[dep.Requires] = true
		}
		return nil
	}

	return walk(deps)
}
