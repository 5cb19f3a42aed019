package index

import (
	"context"
	"sort"
	"strings"

	"github.com/forgeworks/componentvault/domain"
	"github.com/forgeworks/componentvault/storage"
)

// SearchFilters narrows a component/version search. Zero-valued fields do
// not filter. Tags require every listed tag to be present on the component.
type SearchFilters struct {
	Category string
	Owner    string
	Tags     []string
	Status   domain.VersionStatus

	// Offset and Limit page through results. Limit <= 0 means no limit.
	Offset int
	Limit  int
}

// SearchResult pairs a component with one of its versions.
type SearchResult struct {
	Component *domain.Component
	Version   *domain.ComponentVersion
}

// Search returns component/version pairs matching the filters, ordered by
// component name ascending then version descending. The ordering is total,
// so identical queries page consistently while the data is unchanged.
// Tombstoned components and archived versions are excluded unless the status
// filter asks for archived explicitly.
func (ix *Index) Search(ctx context.Context, filters SearchFilters) ([]SearchResult, error) {
	var components []*domain.Component
	err := ix.store.View(func(tx *storage.Tx) error {
		return tx.Scan(keyComponent, func(_ string, value []byte) error {
			var component domain.Component
			if err := storage.Decode(value, &component); err != nil {
				return err
			}
			if component.Tombstoned {
				return nil
			}
			if !matchComponent(&component, filters) {
				return nil
			}
			components = append(components, &component)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(components, func(i, j int) bool {
		return strings.ToLower(components[i].Name) < strings.ToLower(components[j].Name)
	})

	var results []SearchResult
	for _, component := range components {
		versions, err := ix.ListVersions(ctx, component.ID)
		if err != nil {
			return nil, err
		}
		for _, version := range versions {
			if !matchVersion(version, filters) {
				continue
			}
			results = append(results, SearchResult{Component: component, Version: version})
		}
	}

	return page(results, filters.Offset, filters.Limit), nil
}

func matchComponent(component *domain.Component, filters SearchFilters) bool {
	if filters.Category != "" && !strings.EqualFold(component.Category, filters.Category) {
		return false
	}
	if filters.Owner != "" && !strings.EqualFold(component.Owner, filters.Owner) {
		return false
	}
	for _, want := range filters.Tags {
		if !hasTag(component.Tags, want) {
			return false
		}
	}
	return true
}

func matchVersion(version *domain.ComponentVersion, filters SearchFilters) bool {
	if filters.Status != "" {
		return version.Status == filters.Status
	}
	return version.Status != domain.StatusArchived
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, want) {
			return true
		}
	}
	return false
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
