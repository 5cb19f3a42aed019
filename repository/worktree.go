// Package repository provides working-tree operations.
// This file contains the mutating operations: Commit and ResetTo.
package repository

import (
	"context"
	"errors"
	"path"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Commit writes files into the working tree, stages them and commits,
// returning the new commit id. A nil byte slice removes the path instead of
// writing it. The whole operation runs under the exclusive write lock, which
// is released on every exit path.
//
// Returns ErrDirtyWorkingTree when uncommitted external changes are detected
// before writing: the tree must only ever be mutated through this method, so
// a dirty tree means something else touched it. On any failure after writing
// begins, the tree is hard-reset to its previous head so a commit either
// fully succeeds or leaves the tree unchanged.
func (m *Manager) Commit(ctx context.Context, files map[string][]byte, message string, author Signature) (string, error) {
	if message == "" {
		return "", WrapError(ErrInvalidInput, "commit message cannot be empty")
	}
	if author.Name == "" || author.Email == "" {
		return "", WrapError(ErrInvalidInput, "author name and email are required")
	}
	if len(files) == 0 {
		return "", ErrEmptyCommit
	}

	release, err := m.beginWrite(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if err := m.ensureClean(); err != nil {
		return "", err
	}

	// Remember the pre-write head for rollback. A fresh repository has none.
	var prevHead *plumbing.Hash
	if ref, headErr := m.repo.Head(); headErr == nil {
		h := ref.Hash()
		prevHead = &h
	}

	hash, err := m.writeAndCommit(ctx, files, message, author)
	if err != nil {
		m.rollback(prevHead)
		return "", err
	}

	m.logger.Debug("committed files to working tree",
		"commit", hash, "paths", len(files))
	return hash, nil
}

// ensureClean verifies no uncommitted changes exist in the working tree.
func (m *Manager) ensureClean() error {
	status, err := m.worktree.Status()
	if err != nil {
		return WrapError(err, "failed to get worktree status")
	}
	if !status.IsClean() {
		return WrapErrorf(ErrDirtyWorkingTree, "%d unexpected changes", len(status))
	}
	return nil
}

// writeAndCommit performs the write, stage and commit steps.
func (m *Manager) writeAndCommit(ctx context.Context, files map[string][]byte, message string, author Signature) (string, error) {
	scoped, err := scopedWorkdir(&m.options)
	if err != nil {
		return "", err
	}

	// Deterministic write order keeps failure states reproducible.
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return "", WrapError(err, "commit cancelled")
		}

		content := files[p]
		if content == nil {
			if _, rmErr := m.worktree.Remove(p); rmErr != nil {
				return "", WrapErrorf(rmErr, "failed to remove path %q", p)
			}
			continue
		}

		if dir := path.Dir(p); dir != "." {
			if mkErr := scoped.MkdirAll(dir, 0o755); mkErr != nil {
				return "", WrapErrorf(mkErr, "failed to create directory %q", dir)
			}
		}
		if wErr := util.WriteFile(scoped, p, content, 0o644); wErr != nil {
			return "", WrapErrorf(wErr, "failed to write path %q", p)
		}
		if _, addErr := m.worktree.Add(p); addErr != nil {
			return "", WrapErrorf(addErr, "failed to stage path %q", p)
		}
	}

	when := author.When
	if when.IsZero() {
		when = time.Now()
	}
	sig := &object.Signature{Name: author.Name, Email: author.Email, When: when}

	hash, err := m.worktree.Commit(message, &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", ErrEmptyCommit
		}
		return "", WrapError(err, "failed to create commit")
	}
	return hash.String(), nil
}

// rollback restores the working tree to the pre-write state.
func (m *Manager) rollback(prevHead *plumbing.Hash) {
	if prevHead == nil {
		// Nothing was committed yet; clean whatever was written.
		if err := m.worktree.Clean(&git.CleanOptions{Dir: true}); err != nil {
			m.logger.Error("failed to clean working tree after aborted commit", "error", err)
		}
		return
	}
	if err := m.resetHard(*prevHead); err != nil {
		m.logger.Error("failed to reset working tree after aborted commit",
			"commit", prevHead.String(), "error", err)
	}
}

// ResetTo discards uncommitted changes and resets the working tree to the
// given commit. Used for recovery after a failed commit attempt; serialized
// under the write lock like every other mutation.
func (m *Manager) ResetTo(ctx context.Context, commitID string) error {
	commit, err := m.resolveCommit(commitID)
	if err != nil {
		return err
	}

	release, err := m.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := m.resetHard(commit.Hash); err != nil {
		return err
	}

	m.logger.Info("reset working tree", "commit", commitID)
	return nil
}

// resetHard performs a hard reset plus clean of untracked files.
func (m *Manager) resetHard(hash plumbing.Hash) error {
	if err := m.worktree.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		return WrapErrorf(err, "failed to reset to %q", hash.String())
	}
	if err := m.worktree.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return WrapError(err, "failed to clean untracked files")
	}
	return nil
}
