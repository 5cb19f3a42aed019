// Package repository provides working-tree operations.
// This file contains remote synchronization: fast-forward pull and push.
package repository

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// branchRelation describes how the local branch relates to its remote
// counterpart after a fetch.
type branchRelation int

const (
	relationUpToDate branchRelation = iota
	relationBehind
	relationAhead
	relationDiverged
)

// Pull fast-forwards the local branch from the remote. The operation is a
// tree mutation and serializes under the exclusive write lock.
//
// Returns ErrSyncConflict if local history has diverged (detected via
// ahead/behind comparison of the fetched remote head); an automatic merge is
// never attempted. Returns ErrRepositoryUnavailable when the remote cannot be
// reached within the configured network timeout. A repository without a
// remote is already up to date by definition.
func (m *Manager) Pull(ctx context.Context) error {
	if m.options.RemoteURL == "" {
		return nil
	}

	release, err := m.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer release()

	netCtx, cancel := networkContext(ctx, &m.options)
	defer cancel()

	if err := m.fetch(netCtx); err != nil {
		return err
	}

	relation, err := m.compareWithRemote()
	if err != nil {
		return err
	}

	switch relation {
	case relationUpToDate, relationAhead:
		// Nothing to fast-forward; local commits are pushed separately.
		return nil
	case relationDiverged:
		return WrapErrorf(ErrSyncConflict, "branch %q", m.options.Branch)
	case relationBehind:
		// Fall through to the fast-forward below.
	}

	err = m.worktree.PullContext(netCtx, &git.PullOptions{
		RemoteName:    DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(m.options.Branch),
		SingleBranch:  true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		if errors.Is(err, git.ErrNonFastForwardUpdate) {
			return WrapErrorf(ErrSyncConflict, "branch %q", m.options.Branch)
		}
		return WrapError(err, "failed to fast-forward")
	}

	m.logger.Info("fast-forwarded from remote", "branch", m.options.Branch)
	return nil
}

// fetch updates remote tracking refs, mapping network failures to
// ErrRepositoryUnavailable.
func (m *Manager) fetch(ctx context.Context) error {
	err := m.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: DefaultRemoteName})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return WrapErrorf(ErrRepositoryUnavailable, "fetch from %q failed: %v", m.options.RemoteURL, err)
	}
	return nil
}

// compareWithRemote classifies local vs remote branch heads using their
// merge base. Equal heads are up to date; when the base equals the local
// head the branch is strictly behind and can fast-forward; when the base
// equals the remote head the branch is strictly ahead; anything else means
// the histories diverged.
func (m *Manager) compareWithRemote() (branchRelation, error) {
	localRef, err := m.repo.Head()
	if err != nil {
		return relationDiverged, WrapError(err, "failed to resolve local head")
	}
	remoteRef, err := m.repo.Reference(
		plumbing.NewRemoteReferenceName(DefaultRemoteName, m.options.Branch), true)
	if err != nil {
		// No remote tracking ref: the remote has no history for this branch.
		return relationAhead, nil
	}

	if localRef.Hash() == remoteRef.Hash() {
		return relationUpToDate, nil
	}

	local, err := m.repo.CommitObject(localRef.Hash())
	if err != nil {
		return relationDiverged, WrapError(err, "failed to load local head commit")
	}
	remote, err := m.repo.CommitObject(remoteRef.Hash())
	if err != nil {
		return relationDiverged, WrapError(err, "failed to load remote head commit")
	}

	bases, err := local.MergeBase(remote)
	if err != nil {
		return relationDiverged, WrapError(err, "failed to compute merge base")
	}
	return classifyRelation(local, remote, bases), nil
}

func classifyRelation(local, remote *object.Commit, bases []*object.Commit) branchRelation {
	for _, base := range bases {
		switch base.Hash {
		case local.Hash:
			return relationBehind
		case remote.Hash:
			return relationAhead
		}
	}
	return relationDiverged
}

// Push publishes local commits to the remote. Best-effort companion to
// Commit: the index records commit ids from local history, so a failed push
// delays replication without losing state.
//
// Returns ErrSyncConflict when the remote rejected a non-fast-forward update
// and ErrRepositoryUnavailable when the remote cannot be reached.
func (m *Manager) Push(ctx context.Context) error {
	if m.options.RemoteURL == "" {
		return nil
	}

	netCtx, cancel := networkContext(ctx, &m.options)
	defer cancel()

	err := m.repo.PushContext(netCtx, &git.PushOptions{RemoteName: DefaultRemoteName})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return WrapErrorf(ErrSyncConflict, "push of branch %q rejected", m.options.Branch)
	default:
		return WrapErrorf(ErrRepositoryUnavailable, "push to %q failed: %v", m.options.RemoteURL, err)
	}
}
