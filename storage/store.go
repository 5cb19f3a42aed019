// Package storage provides the embedded transactional store backing the
// component index and the metadata catalog.
//
// BadgerDB supplies serializable transactions and prefix iteration over a
// local key space, which covers the row-level isolation the index needs for
// its per-component serialization without an external database.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// ErrKeyNotFound is returned when a requested key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// Config holds configuration for a Store.
type Config struct {
	// Path is the directory for the database files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode with no disk persistence. Used in tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives the store's internal log output. If nil, internal
	// logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable synchronous writes at
// the given path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests: in-memory, no syncing.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store wraps a badger database with JSON value encoding.
type Store struct {
	db *badger.DB
}

// Open creates and opens a Store with the given configuration.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("storage: path is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create directory %q: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&storeLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("storage: close database: %w", err)
	}
	return nil
}

// Get loads the JSON value stored at key into out.
// Returns ErrKeyNotFound if the key does not exist.
func (s *Store) Get(key string, out any) error {
	return s.View(func(tx *Tx) error {
		return tx.Get(key, out)
	})
}

// Put stores v at key as JSON.
func (s *Store) Put(key string, v any) error {
	return s.Update(func(tx *Tx) error {
		return tx.Put(key, v)
	})
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	return s.Update(func(tx *Tx) error {
		return tx.Delete(key)
	})
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(tx *Tx) error) error {
	return s.db.View(func(btx *badger.Txn) error {
		return fn(&Tx{txn: btx})
	})
}

// Update runs fn in a read-write transaction. The transaction commits when fn
// returns nil and discards otherwise.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.db.Update(func(btx *badger.Txn) error {
		return fn(&Tx{txn: btx})
	})
}

// Tx is a single store transaction.
type Tx struct {
	txn *badger.Txn
}

// Get loads the JSON value stored at key into out.
// Returns ErrKeyNotFound if the key does not exist.
func (t *Tx) Get(key string, out any) error {
	item, err := t.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("storage: get %q: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, out); err != nil {
			return fmt.Errorf("storage: decode %q: %w", key, err)
		}
		return nil
	})
}

// Exists reports whether key is present.
func (t *Tx) Exists(key string) (bool, error) {
	_, err := t.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: stat %q: %w", key, err)
	}
	return true, nil
}

// Put stores v at key as JSON.
func (t *Tx) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %q: %w", key, err)
	}
	if err := t.txn.Set([]byte(key), data); err != nil {
		return fmt.Errorf("storage: put %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (t *Tx) Delete(key string) error {
	if err := t.txn.Delete([]byte(key)); err != nil {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

// Scan iterates keys with the given prefix in lexicographic order, invoking
// fn with each key and its raw JSON value. Returning a non-nil error from fn
// stops the scan.
func (t *Tx) Scan(prefix string, fn func(key string, value []byte) error) error {
	it := t.txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   100,
		Prefix:         []byte(prefix),
	})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := string(item.Key())
		err := item.Value(func(val []byte) error {
			return fn(key, append([]byte(nil), val...))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Decode unmarshals a raw value produced by Scan into out.
func Decode(value []byte, out any) error {
	if err := json.Unmarshal(value, out); err != nil {
		return fmt.Errorf("decoding stored value: %w", err)
	}
	return nil
}

// storeLogger adapts slog.Logger to badger's Logger interface.
type storeLogger struct {
	logger *slog.Logger
}

func (l *storeLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *storeLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *storeLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *storeLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
