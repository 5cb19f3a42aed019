// Package service orchestrates the repository manager, component index,
// validation pipeline and metadata catalog behind one API surface. Inputs
// arrive already authenticated; the owner identity is trusted from upstream.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forgeworks/componentvault/catalog"
	"github.com/forgeworks/componentvault/domain"
	"github.com/forgeworks/componentvault/index"
	"github.com/forgeworks/componentvault/repository"
	"github.com/forgeworks/componentvault/validation"
)

// Options configures a Service. Repo, Index and Catalog are required.
type Options struct {
	// Repo is the repository manager owning the working tree.
	Repo *repository.Manager

	// Index is the component index.
	Index *index.Index

	// Catalog is the metadata catalog.
	Catalog *catalog.Catalog

	// Pipeline is the validation pipeline. Nil means the default stages.
	Pipeline *validation.Pipeline

	// Author identifies service-generated commits.
	Author repository.Signature

	// Logger receives orchestration-level log output.
	Logger *slog.Logger
}

// Validate checks that the options are complete.
func (o *Options) Validate() error {
	if o.Repo == nil {
		return fmt.Errorf("repository manager is required")
	}
	if o.Index == nil {
		return fmt.Errorf("component index is required")
	}
	if o.Catalog == nil {
		return fmt.Errorf("metadata catalog is required")
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.Pipeline == nil {
		o.Pipeline = validation.New(validation.Options{Logger: o.Logger})
	}
	if o.Author.Name == "" {
		o.Author = repository.Signature{Name: "componentvault", Email: "componentvault@localhost"}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Service is the orchestration layer. Safe for concurrent use; the
// underlying components provide their own serialization.
type Service struct {
	repo     *repository.Manager
	index    *index.Index
	catalog  *catalog.Catalog
	pipeline *validation.Pipeline
	author   repository.Signature
	logger   *slog.Logger
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()
	return &Service{
		repo:     opts.Repo,
		index:    opts.Index,
		catalog:  opts.Catalog,
		pipeline: opts.Pipeline,
		author:   opts.Author,
		logger:   opts.Logger,
	}, nil
}

// RegisterComponent creates a component and indexes its metadata for search.
func (s *Service) RegisterComponent(ctx context.Context, in index.RegisterInput) (*domain.Component, error) {
	component, err := s.index.RegisterComponent(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.Index(ctx, component.ID, componentEntries(component)); err != nil {
		s.logger.Error("failed to index component metadata",
			"component", component.ID, "error", err)
	}
	return component, nil
}

// UpdateComponent replaces a component's description and tags and refreshes
// its catalog entries. Versions already submitted keep the descriptor they
// were committed with; the new values flow into descriptors of subsequent
// submissions.
func (s *Service) UpdateComponent(ctx context.Context, componentID string, in index.UpdateInput) (*domain.Component, error) {
	component, err := s.index.UpdateComponent(ctx, componentID, in)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.Index(ctx, component.ID, componentEntries(component)); err != nil {
		s.logger.Error("failed to reindex component metadata",
			"component", component.ID, "error", err)
	}

	s.logger.Info("updated component", "component", componentID, "name", component.Name)
	return component, nil
}

// RemoveComponent tombstones a component, removes it from the catalog and
// commits the deletion of its files from the working tree. History stays
// intact; prior pinned commits remain readable.
func (s *Service) RemoveComponent(ctx context.Context, componentID string) error {
	component, err := s.index.GetComponent(ctx, componentID)
	if err != nil {
		return err
	}

	if err := s.index.Tombstone(ctx, componentID); err != nil {
		return err
	}
	if err := s.catalog.Remove(ctx, componentID); err != nil {
		s.logger.Error("failed to remove component from catalog",
			"component", componentID, "error", err)
	}

	head, err := s.repo.Head()
	if err != nil {
		return err
	}
	manifest, err := s.repo.ManifestAt(ctx, head, component.TreePath())
	if err != nil {
		return err
	}
	if len(manifest) == 0 {
		return nil
	}

	deletions := make(map[string][]byte, len(manifest))
	for _, entry := range manifest {
		deletions[entry.Path] = nil
	}
	message := fmt.Sprintf("Remove component %s", component.Name)
	if _, err := s.repo.Commit(ctx, deletions, message, s.author); err != nil {
		return err
	}

	s.logger.Info("removed component", "component", componentID, "name", component.Name)
	return nil
}

// componentEntries builds the catalog entries for a component.
func componentEntries(component *domain.Component) []catalog.Entry {
	entries := []catalog.Entry{
		{Key: domain.MetaName, Value: component.Name},
		{Key: domain.MetaDescription, Value: component.Description},
		{Key: domain.MetaTags, Value: component.Tags},
		{Key: domain.ExtPrefix + "category", Value: component.Category},
		{Key: domain.ExtPrefix + "owner", Value: component.Owner},
	}
	return entries
}

// versionMetadata builds the metadata map a snapshot exposes to the
// validation pipeline, merging component facts with extra request entries.
func versionMetadata(component *domain.Component, extra map[string]string) map[string]string {
	metadata := map[string]string{
		domain.MetaName:        component.Name,
		domain.MetaDescription: component.Description,
		domain.MetaTags:        strings.Join(component.Tags, ","),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	return metadata
}
