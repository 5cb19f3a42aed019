package service

import (
	"context"

	"github.com/forgeworks/componentvault/catalog"
	"github.com/forgeworks/componentvault/domain"
	"github.com/forgeworks/componentvault/index"
	"github.com/forgeworks/componentvault/repository"
)

// ComponentView aggregates a component with its versions and catalog
// entries.
type ComponentView struct {
	Component *domain.Component
	Versions  []*domain.ComponentVersion
	Metadata  []catalog.Entry
}

// ComponentMetadata returns the aggregated view of a component: the row,
// every version ordered newest first, and the live catalog entries.
func (s *Service) ComponentMetadata(ctx context.Context, componentID string) (*ComponentView, error) {
	component, err := s.index.GetComponent(ctx, componentID)
	if err != nil {
		return nil, err
	}
	versions, err := s.index.ListVersions(ctx, componentID)
	if err != nil {
		return nil, err
	}

	entries, err := s.catalog.Entries(ctx, componentID)
	if err != nil {
		// A component can predate its catalog entries; the view is still
		// complete without them.
		entries = nil
	}

	return &ComponentView{
		Component: component,
		Versions:  versions,
		Metadata:  entries,
	}, nil
}

// FileContent returns the bytes of a component-relative path as pinned by a
// version's commit. Repeated reads always return identical content.
func (s *Service) FileContent(ctx context.Context, versionID, relPath string) ([]byte, error) {
	version, err := s.index.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	component, err := s.index.GetComponent(ctx, version.ComponentID)
	if err != nil {
		return nil, err
	}
	return s.repo.ReadFile(ctx, version.CommitID, component.TreePath()+"/"+relPath)
}

// FileHistory lists commits touching a component-relative path, walking
// backward from the repository head, newest first.
func (s *Service) FileHistory(ctx context.Context, componentID, relPath string, limit int) ([]*repository.HistoryEntry, error) {
	component, err := s.index.GetComponent(ctx, componentID)
	if err != nil {
		return nil, err
	}
	head, err := s.repo.Head()
	if err != nil {
		return nil, err
	}

	iter, err := s.repo.ListHistory(ctx, component.TreePath()+"/"+relPath, head, limit)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []*repository.HistoryEntry
	err = iter.ForEach(func(entry *repository.HistoryEntry) error {
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Search returns component/version pairs matching structured filters.
func (s *Service) Search(ctx context.Context, filters index.SearchFilters) ([]index.SearchResult, error) {
	return s.index.Search(ctx, filters)
}

// SearchMetadata runs a free-form catalog query and returns ranked entity
// ids.
func (s *Service) SearchMetadata(ctx context.Context, query catalog.Query) ([]catalog.Match, error) {
	return s.catalog.Search(ctx, query)
}

// Resolve returns the highest validated or published version of the named
// component satisfying the constraint, after checking the transitive
// dependency closure for cycles.
func (s *Service) Resolve(ctx context.Context, componentName, constraint string) (*domain.ComponentVersion, error) {
	resolved, err := s.index.ResolveDependency(ctx, componentName, constraint)
	if err != nil {
		return nil, err
	}
	if err := s.index.CheckDependencyCycle(ctx, componentName, resolved.Dependencies); err != nil {
		return nil, err
	}
	return resolved, nil
}

// Sync fast-forwards the local branch from the remote and pushes local
// commits. Pull failures surface; push is best effort.
func (s *Service) Sync(ctx context.Context) error {
	if err := s.repo.Pull(ctx); err != nil {
		return err
	}
	return s.repo.Push(ctx)
}

// Reindex rebuilds the metadata catalog from the index.
func (s *Service) Reindex(ctx context.Context) error {
	results, err := s.index.Search(ctx, index.SearchFilters{})
	if err != nil {
		return err
	}

	entities := make(map[string][]catalog.Entry)
	for _, result := range results {
		if _, done := entities[result.Component.ID]; !done {
			entities[result.Component.ID] = componentEntries(result.Component)
		}
		entities[result.Version.ID] = versionEntries(result.Component, result.Version, nil)
	}
	return s.catalog.Reindex(ctx, entities)
}
