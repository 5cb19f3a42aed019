// Package repository provides working-tree operations.
// This file contains history queries: a lazy, finite, restartable walk over
// the commits touching a path.
package repository

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// HistoryEntry describes one commit in a history walk.
type HistoryEntry struct {
	// CommitID is the full commit hash.
	CommitID string

	// Author is the commit author in "Name <email>" form.
	Author string

	// Timestamp is the author timestamp.
	Timestamp time.Time

	// Message is the full commit message.
	Message string
}

// HistoryIter iterates backward over commits touching a path. It yields at
// most the configured limit of entries and should be closed when no longer
// needed. The walk is restartable: pass the last yielded commit id as the
// starting point of a new ListHistory call to continue where it stopped.
type HistoryIter struct {
	iter  object.CommitIter
	limit int
	count int
}

// Next returns the next history entry, or nil when the walk is exhausted.
func (hi *HistoryIter) Next() (*HistoryEntry, error) {
	if hi.limit > 0 && hi.count >= hi.limit {
		return nil, nil
	}

	commit, err := hi.iter.Next()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, WrapError(err, "failed to get next commit")
	}

	hi.count++
	return &HistoryEntry{
		CommitID:  commit.Hash.String(),
		Author:    commit.Author.Name + " <" + commit.Author.Email + ">",
		Timestamp: commit.Author.When,
		Message:   commit.Message,
	}, nil
}

// ForEach invokes fn for each remaining entry. Iteration stops when fn
// returns an error.
func (hi *HistoryIter) ForEach(fn func(*HistoryEntry) error) error {
	for {
		entry, err := hi.Next()
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}

// Close releases the underlying iterator.
func (hi *HistoryIter) Close() {
	hi.iter.Close()
}

// ListHistory walks commit history backward from fromCommit (or the branch
// head when empty), yielding commits that touched path ("" matches every
// commit), up to limit entries (0 for unlimited). The walk addresses
// immutable history only and requires no lock.
func (m *Manager) ListHistory(ctx context.Context, path, fromCommit string, limit int) (*HistoryIter, error) {
	logOpts := &git.LogOptions{Order: git.LogOrderCommitterTime}

	if fromCommit != "" {
		commit, err := m.resolveCommit(fromCommit)
		if err != nil {
			return nil, err
		}
		logOpts.From = commit.Hash
	}
	if path != "" {
		logOpts.PathFilter = func(p string) bool { return p == path }
	}

	iter, err := m.repo.Log(logOpts)
	if err != nil {
		return nil, WrapError(err, "failed to create history iterator")
	}
	return &HistoryIter{iter: iter, limit: limit}, nil
}
