// Package index maintains the relational view over components and their
// versions: registration, version submission, status transitions, dependency
// resolution and search. The index is the single place queried for "current
// state"; the git layer is only ever addressed through commit ids the index
// records.
package index

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/forgeworks/componentvault/domain"
	"github.com/forgeworks/componentvault/storage"
)

// Key prefixes in the backing store.
const (
	keyComponent  = "index/component/"   // + componentID → domain.Component
	keyName       = "index/name/"        // + lower(name) → componentID
	keyVersion    = "index/version/"     // + versionID → domain.ComponentVersion
	keyByComp     = "index/byversion/"   // + componentID + "/" + versionID → marker
	keyReport     = "index/report/"      // + reportID → domain.ValidationReport
)

// Index is the component index. All methods are safe for concurrent use;
// version submission additionally serializes per component id.
type Index struct {
	store    *storage.Store
	validate *validator.Validate
	logger   *slog.Logger

	// submitMu guards submitLocks; each component gets its own critical
	// section so the monotonic-version check and the row insert form one
	// atomic step per component.
	submitMu    sync.Mutex
	submitLocks map[string]*sync.Mutex
}

// New creates an Index over the given store.
func New(store *storage.Store, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		store:       store,
		validate:    validator.New(),
		logger:      logger,
		submitLocks: make(map[string]*sync.Mutex),
	}
}

// RegisterInput is the payload for RegisterComponent.
type RegisterInput struct {
	// Name is the component name, unique case-insensitively among live components.
	Name string `validate:"required,min=1,max=128"`

	// Description is a human-readable summary.
	Description string `validate:"max=4096"`

	// Category places the component in the working tree.
	Category string `validate:"required,min=1,max=64"`

	// Owner is the registering identity, trusted from upstream auth.
	Owner string `validate:"required"`

	// Tags label the component for search.
	Tags []string `validate:"dive,min=1,max=64"`
}

// RegisterComponent creates a new component. Returns ErrDuplicateName if the
// name is already taken (case-insensitive) by a non-tombstoned component.
func (ix *Index) RegisterComponent(ctx context.Context, in RegisterInput) (*domain.Component, error) {
	if err := ix.validate.Struct(in); err != nil {
		return nil, WrapError(ErrInvalidInput, err.Error())
	}

	component := &domain.Component{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Owner:       in.Owner,
		Tags:        in.Tags,
		CreatedAt:   time.Now().UTC(),
	}

	nameKey := keyName + strings.ToLower(in.Name)
	err := ix.store.Update(func(tx *storage.Tx) error {
		taken, err := tx.Exists(nameKey)
		if err != nil {
			return err
		}
		if taken {
			return WrapErrorf(ErrDuplicateName, "%q", in.Name)
		}
		if err := tx.Put(nameKey, component.ID); err != nil {
			return err
		}
		return tx.Put(keyComponent+component.ID, component)
	})
	if err != nil {
		return nil, err
	}

	ix.logger.Info("registered component",
		"component", component.ID, "name", component.Name, "owner", component.Owner)
	return component, nil
}

// UpdateInput is the payload for UpdateComponent. Description and Tags
// replace the stored values wholesale. Name, Category and Owner are
// immutable: they anchor the working-tree path and the commit identity.
type UpdateInput struct {
	// Description is the new human-readable summary.
	Description string `validate:"max=4096"`

	// Tags is the new tag set.
	Tags []string `validate:"dive,min=1,max=64"`
}

// UpdateComponent replaces a live component's mutable fields. Returns
// ErrComponentNotFound for unknown or tombstoned components.
func (ix *Index) UpdateComponent(ctx context.Context, componentID string, in UpdateInput) (*domain.Component, error) {
	if err := ix.validate.Struct(in); err != nil {
		return nil, WrapError(ErrInvalidInput, err.Error())
	}

	var component domain.Component
	err := ix.store.Update(func(tx *storage.Tx) error {
		if err := tx.Get(keyComponent+componentID, &component); err != nil {
			if storageNotFound(err) {
				return WrapErrorf(ErrComponentNotFound, "%q", componentID)
			}
			return err
		}
		if component.Tombstoned {
			return WrapErrorf(ErrComponentNotFound, "%q is tombstoned", componentID)
		}
		component.Description = in.Description
		component.Tags = in.Tags
		return tx.Put(keyComponent+componentID, &component)
	})
	if err != nil {
		return nil, err
	}

	ix.logger.Info("updated component", "component", componentID, "name", component.Name)
	return &component, nil
}

// GetComponent loads a component by id. Tombstoned components are reported
// as not found; use getComponentAny for audit paths.
func (ix *Index) GetComponent(ctx context.Context, componentID string) (*domain.Component, error) {
	component, err := ix.getComponentAny(componentID)
	if err != nil {
		return nil, err
	}
	if component.Tombstoned {
		return nil, WrapErrorf(ErrComponentNotFound, "%q is tombstoned", componentID)
	}
	return component, nil
}

// getComponentAny loads a component regardless of tombstone state.
func (ix *Index) getComponentAny(componentID string) (*domain.Component, error) {
	var component domain.Component
	err := ix.store.Get(keyComponent+componentID, &component)
	if err != nil {
		if storageNotFound(err) {
			return nil, WrapErrorf(ErrComponentNotFound, "%q", componentID)
		}
		return nil, err
	}
	return &component, nil
}

// GetComponentByName resolves a live component by case-insensitive name.
func (ix *Index) GetComponentByName(ctx context.Context, name string) (*domain.Component, error) {
	var componentID string
	err := ix.store.Get(keyName+strings.ToLower(name), &componentID)
	if err != nil {
		if storageNotFound(err) {
			return nil, WrapErrorf(ErrComponentNotFound, "name %q", name)
		}
		return nil, err
	}
	return ix.GetComponent(ctx, componentID)
}

// Tombstone soft-deletes a component: the name becomes available again while
// the component row and its versions remain for referential integrity.
func (ix *Index) Tombstone(ctx context.Context, componentID string) error {
	err := ix.store.Update(func(tx *storage.Tx) error {
		var component domain.Component
		if err := tx.Get(keyComponent+componentID, &component); err != nil {
			if storageNotFound(err) {
				return WrapErrorf(ErrComponentNotFound, "%q", componentID)
			}
			return err
		}
		if component.Tombstoned {
			return nil
		}
		component.Tombstoned = true
		if err := tx.Delete(keyName + strings.ToLower(component.Name)); err != nil {
			return err
		}
		return tx.Put(keyComponent+componentID, &component)
	})
	if err != nil {
		return err
	}

	ix.logger.Info("tombstoned component", "component", componentID)
	return nil
}

// GetVersion loads a version by id.
func (ix *Index) GetVersion(ctx context.Context, versionID string) (*domain.ComponentVersion, error) {
	var version domain.ComponentVersion
	err := ix.store.Get(keyVersion+versionID, &version)
	if err != nil {
		if storageNotFound(err) {
			return nil, WrapErrorf(ErrVersionNotFound, "%q", versionID)
		}
		return nil, err
	}
	return &version, nil
}

// ListVersions returns every version of a component, newest semantic version
// first.
func (ix *Index) ListVersions(ctx context.Context, componentID string) ([]*domain.ComponentVersion, error) {
	if _, err := ix.getComponentAny(componentID); err != nil {
		return nil, err
	}

	var versions []*domain.ComponentVersion
	err := ix.store.View(func(tx *storage.Tx) error {
		var scanErr error
		versions, scanErr = versionsOf(tx, componentID)
		return scanErr
	})
	if err != nil {
		return nil, err
	}

	sortVersionsDescending(versions)
	return versions, nil
}

// versionsOf loads all version rows of a component inside a transaction.
func versionsOf(tx *storage.Tx, componentID string) ([]*domain.ComponentVersion, error) {
	var versions []*domain.ComponentVersion
	prefix := keyByComp + componentID + "/"
	err := tx.Scan(prefix, func(key string, _ []byte) error {
		versionID := strings.TrimPrefix(key, prefix)
		var version domain.ComponentVersion
		if err := tx.Get(keyVersion+versionID, &version); err != nil {
			return err
		}
		versions = append(versions, &version)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// PutReport stores an immutable validation report.
func (ix *Index) PutReport(ctx context.Context, report *domain.ValidationReport) error {
	return ix.store.Put(keyReport+report.ID, report)
}

// GetReport loads a validation report by id.
func (ix *Index) GetReport(ctx context.Context, reportID string) (*domain.ValidationReport, error) {
	var report domain.ValidationReport
	err := ix.store.Get(keyReport+reportID, &report)
	if err != nil {
		if storageNotFound(err) {
			return nil, WrapErrorf(ErrVersionNotFound, "report %q", reportID)
		}
		return nil, err
	}
	return &report, nil
}

func storageNotFound(err error) bool {
	return errors.Is(err, storage.ErrKeyNotFound)
}
