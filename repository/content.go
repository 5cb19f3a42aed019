// Package repository provides working-tree operations.
// This file contains lock-free reads against immutable history: file content
// and manifests pinned to a commit id.
package repository

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// ManifestEntry is one path → content-hash pair at a pinned commit. The hash
// is the git blob hash, so identical content always yields identical entries.
type ManifestEntry struct {
	// Path is the file path relative to the repository root.
	Path string

	// Hash is the blob hash of the file content.
	Hash string
}

// ReadFile returns the bytes of path as they existed at commitID. It reads
// the historical object directly without checking out or mutating the
// working tree, so it requires no lock and may run concurrently with an
// in-flight write.
func (m *Manager) ReadFile(ctx context.Context, commitID, path string) ([]byte, error) {
	commit, err := m.resolveCommit(commitID)
	if err != nil {
		return nil, err
	}

	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, WrapErrorf(ErrFileNotFound, "%q at %q", path, commitID)
		}
		return nil, WrapErrorf(err, "failed to load %q at %q", path, commitID)
	}

	reader, err := file.Reader()
	if err != nil {
		return nil, WrapErrorf(err, "failed to open %q at %q", path, commitID)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, WrapErrorf(err, "failed to read %q at %q", path, commitID)
	}
	return data, nil
}

// ManifestAt lists path → content-hash pairs at commitID, restricted to
// paths under prefix ("" for the whole tree). Entries are sorted by path.
// Like ReadFile this addresses immutable history and takes no lock.
func (m *Manager) ManifestAt(ctx context.Context, commitID, prefix string) ([]ManifestEntry, error) {
	commit, err := m.resolveCommit(commitID)
	if err != nil {
		return nil, err
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, WrapErrorf(err, "failed to load tree at %q", commitID)
	}

	prefix = normalizePrefix(prefix)
	var entries []ManifestEntry
	err = tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if prefix != "" && !strings.HasPrefix(f.Name, prefix) {
			return nil
		}
		entries = append(entries, ManifestEntry{Path: f.Name, Hash: f.Hash.String()})
		return nil
	})
	if err != nil {
		return nil, WrapErrorf(err, "failed to walk tree at %q", commitID)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// normalizePrefix ensures a non-empty prefix matches whole directories only.
func normalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimSuffix(prefix, "/") + "/"
}
