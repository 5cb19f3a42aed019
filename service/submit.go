package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/forgeworks/componentvault/catalog"
	"github.com/forgeworks/componentvault/domain"
	"github.com/forgeworks/componentvault/index"
	"github.com/forgeworks/componentvault/repository"
)

// SubmitRequest carries a new version submission: the component, the version
// string, the file set and optional extension metadata.
type SubmitRequest struct {
	// ComponentID references the owning component.
	ComponentID string

	// Version is the strict semantic version of this submission.
	Version string

	// Files maps component-relative paths to content. The descriptor file
	// is generated by the service and must not be supplied.
	Files map[string][]byte

	// Dependencies declares required components with constraints.
	Dependencies []domain.Dependency

	// Metadata holds extension entries attached to the version.
	Metadata map[string]string
}

// SubmitVersion commits the submitted files under the component's directory,
// pins the resulting commit and records a draft version row. The commit is
// atomic: on any failure before the new commit id is returned the working
// tree is unchanged.
func (s *Service) SubmitVersion(ctx context.Context, req SubmitRequest) (*domain.ComponentVersion, error) {
	if len(req.Files) == 0 {
		return nil, index.WrapError(index.ErrInvalidInput, "no files submitted")
	}
	if _, reserved := req.Files[domain.DescriptorFileName]; reserved {
		return nil, index.WrapErrorf(index.ErrInvalidInput,
			"%s is generated and must not be submitted", domain.DescriptorFileName)
	}

	component, err := s.index.GetComponent(ctx, req.ComponentID)
	if err != nil {
		return nil, err
	}

	descriptor := &domain.Descriptor{
		Name:         component.Name,
		Version:      req.Version,
		Description:  component.Description,
		Category:     component.Category,
		Owner:        component.Owner,
		Tags:         component.Tags,
		Dependencies: dependencyMap(req.Dependencies),
	}
	descriptorBytes, err := domain.MarshalDescriptor(descriptor)
	if err != nil {
		return nil, err
	}

	root := component.TreePath()
	files := make(map[string][]byte, len(req.Files)+1)
	for rel, content := range req.Files {
		files[root+"/"+rel] = content
	}
	files[root+"/"+domain.DescriptorFileName] = descriptorBytes

	message := fmt.Sprintf("Submit %s %s", component.Name, req.Version)
	commitID, err := s.repo.Commit(ctx, files, message, s.author)
	if err != nil {
		return nil, err
	}

	manifest, err := s.repo.ManifestAt(ctx, commitID, root)
	if err != nil {
		return nil, err
	}

	version, err := s.index.SubmitVersion(ctx, index.SubmitInput{
		ComponentID:  req.ComponentID,
		Version:      req.Version,
		CommitID:     commitID,
		Manifest:     toDomainManifest(manifest),
		Dependencies: req.Dependencies,
	})
	if err != nil {
		// The commit stays in history; git is append-only and the row was
		// never created, so nothing dangles in the index.
		return nil, err
	}

	if err := s.catalog.Index(ctx, version.ID, versionEntries(component, version, req.Metadata)); err != nil {
		s.logger.Error("failed to index version metadata",
			"version", version.ID, "error", err)
	}

	s.logger.Info("submitted version",
		"component", component.Name, "version", req.Version, "commit", commitID)
	return version, nil
}

// toDomainManifest converts repository manifest entries to their stored form.
func toDomainManifest(entries []repository.ManifestEntry) []domain.ManifestEntry {
	out := make([]domain.ManifestEntry, len(entries))
	for i, entry := range entries {
		out[i] = domain.ManifestEntry{Path: entry.Path, Hash: entry.Hash}
	}
	return out
}

// dependencyMap converts dependency declarations to the descriptor form.
func dependencyMap(deps []domain.Dependency) map[string]string {
	if len(deps) == 0 {
		return nil
	}
	out := make(map[string]string, len(deps))
	for _, dep := range deps {
		out[dep.Requires] = dep.Constraint
	}
	return out
}

// versionEntries builds the catalog entries for a version.
func versionEntries(component *domain.Component, version *domain.ComponentVersion, extra map[string]string) []catalog.Entry {
	entries := []catalog.Entry{
		{Key: domain.MetaName, Value: component.Name},
		{Key: domain.MetaDescription, Value: component.Description},
		{Key: domain.MetaTags, Value: component.Tags},
		{Key: domain.ExtPrefix + "version", Value: version.Version},
		{Key: domain.ExtPrefix + "commit", Value: version.CommitID},
	}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		entries = append(entries, catalog.Entry{Key: domain.ExtPrefix + key, Value: extra[key]})
	}
	return entries
}
