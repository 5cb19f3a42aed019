// Package catalog maintains the searchable metadata attached to components
// and component versions. Entity ids are foreign references owned by the
// index; the catalog only stores and ranks key/value entries for them.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forgeworks/componentvault/storage"
)

// reindexWorkers bounds the parallelism of a bulk rebuild.
const reindexWorkers = 8

// Sentinel errors returned by the catalog.
var (
	// ErrEntityNotFound is returned when an entity has no live entries.
	ErrEntityNotFound = fmt.Errorf("entity not found in catalog")

	// ErrInvalidInput is returned for malformed calls.
	ErrInvalidInput = fmt.Errorf("invalid input")
)

// Key prefixes in the backing store.
const (
	keyEntry     = "catalog/entry/"     // + entityID + "/" + key → Entry
	keyTombstone = "catalog/tombstone/" // + entityID → marker
)

// Entry is one searchable key/value pair. Values are scalars, string sets
// or nested objects; tag-like keys use string-set values.
type Entry struct {
	// Key is the namespaced metadata key.
	Key string `json:"key"`

	// Value is the entry value.
	Value any `json:"value"`

	// UpdatedAt is when the entry was last indexed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Catalog is the metadata search index. Safe for concurrent use.
type Catalog struct {
	store  *storage.Store
	logger *slog.Logger
}

// New creates a Catalog over the given store.
func New(store *storage.Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{store: store, logger: logger}
}

// Index upserts entries for an entity. Re-indexing a key replaces its prior
// value; keys not listed keep their existing entries. Indexing an entity
// clears any tombstone on it.
func (c *Catalog) Index(ctx context.Context, entityID string, entries []Entry) error {
	if entityID == "" {
		return fmt.Errorf("%w: empty entity id", ErrInvalidInput)
	}

	now := time.Now().UTC()
	return c.store.Update(func(tx *storage.Tx) error {
		if err := tx.Delete(keyTombstone + entityID); err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.Key == "" {
				return fmt.Errorf("%w: empty entry key", ErrInvalidInput)
			}
			entry.UpdatedAt = now
			if err := tx.Put(keyEntry+entityID+"/"+entry.Key, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// Entries returns all live entries of an entity.
func (c *Catalog) Entries(ctx context.Context, entityID string) ([]Entry, error) {
	var entries []Entry
	err := c.store.View(func(tx *storage.Tx) error {
		dead, err := tx.Exists(keyTombstone + entityID)
		if err != nil {
			return err
		}
		if dead {
			return fmt.Errorf("%w: %q", ErrEntityNotFound, entityID)
		}
		return tx.Scan(keyEntry+entityID+"/", func(_ string, value []byte) error {
			var entry Entry
			if err := storage.Decode(value, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, entityID)
	}
	return entries, nil
}

// Remove tombstones an entity. Entries stay on disk for audit; searches and
// reads stop returning them.
func (c *Catalog) Remove(ctx context.Context, entityID string) error {
	if entityID == "" {
		return fmt.Errorf("%w: empty entity id", ErrInvalidInput)
	}
	return c.store.Put(keyTombstone+entityID, struct{}{})
}

// Reindex rebuilds the catalog from an authoritative entity → entries map,
// replacing each listed entity's entries wholesale. Entities are processed
// concurrently with bounded parallelism.
func (c *Catalog) Reindex(ctx context.Context, entities map[string][]Entry) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexWorkers)

	for entityID, entries := range entities {
		g.Go(func() error {
			if err := c.clearEntries(entityID); err != nil {
				return err
			}
			return c.Index(gctx, entityID, entries)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.logger.Info("catalog reindexed", "entities", len(entities))
	return nil
}

// clearEntries deletes all entries of an entity.
func (c *Catalog) clearEntries(entityID string) error {
	prefix := keyEntry + entityID + "/"
	var keys []string
	err := c.store.View(func(tx *storage.Tx) error {
		return tx.Scan(prefix, func(key string, _ []byte) error {
			keys = append(keys, key)
			return nil
		})
	})
	if err != nil {
		return err
	}
	return c.store.Update(func(tx *storage.Tx) error {
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// stringSet coerces a stored value into a string set for tag matching.
// JSON decoding yields []any for sets, so both forms are handled.
func stringSet(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// scalarString coerces a stored value into a comparable string.
func scalarString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}
