// Package repository owns the git working tree that stores component content.
// It exposes task-oriented operations for the rest of the service while
// operating exclusively through the project's native filesystem abstraction.
//
// The working tree is a single shared mutable resource: every mutating
// operation (Commit, ResetTo, Pull) serializes on one exclusive lock per
// Manager, while reads address immutable history by commit id and never take
// the lock.
package repository

import (
	"context"
	"log/slog"
	"time"

	gobilly "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/gofrs/flock"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/forgeworks/componentvault/repository/internal/fsbridge"
)

const (
	// DefaultStorerCacheSize is the default size for the LRU object cache.
	DefaultStorerCacheSize = 1000

	// DefaultWorkdir is the default worktree directory name.
	DefaultWorkdir = "."

	// DefaultRemoteName is the remote name used for all network operations.
	DefaultRemoteName = "origin"

	// DefaultBranch is assumed when Options.Branch is empty.
	DefaultBranch = "main"

	// lockRetryDelay is the poll interval while waiting on the advisory file lock.
	lockRetryDelay = 50 * time.Millisecond
)

// Signature identifies the author of a commit.
type Signature struct {
	// Name is the author's name.
	Name string

	// Email is the author's email address.
	Email string

	// When is the timestamp for the signature. Zero means "now".
	When time.Time
}

// Options configures repository discovery, creation and performance.
type Options struct {
	// FS is the REQUIRED native filesystem root (OS or in-memory).
	// All repository state lives within this filesystem.
	FS fs.Filesystem

	// Workdir is the path within FS for the worktree root.
	// Defaults to "." (current directory in FS).
	Workdir string

	// RemoteURL is the optional remote to clone from and sync with.
	// When empty the Manager initializes a fresh local repository.
	RemoteURL string

	// Branch is the branch the Manager operates on. Defaults to DefaultBranch.
	Branch string

	// LockPath is an optional OS path for an advisory file lock guarding the
	// working tree across processes. When empty only the in-process mutex is
	// used, which is sufficient for a single service instance and for tests
	// on in-memory filesystems.
	LockPath string

	// Maintainer signs repository-initiated commits (initial layout,
	// recovery). Defaults to a service identity.
	Maintainer Signature

	// StorerCacheSize sets the LRU object cache entries.
	// Defaults to DefaultStorerCacheSize.
	StorerCacheSize int

	// NetworkTimeout bounds clone/fetch/push wait time. Zero means the
	// caller's context is the only bound.
	NetworkTimeout time.Duration

	// Logger receives operational log output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.FS == nil {
		return WrapError(ErrInvalidInput, "FS is required")
	}
	if o.StorerCacheSize < 0 {
		return WrapError(ErrInvalidInput, "StorerCacheSize cannot be negative")
	}
	if o.NetworkTimeout < 0 {
		return WrapError(ErrInvalidInput, "NetworkTimeout cannot be negative")
	}
	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.Workdir == "" {
		o.Workdir = DefaultWorkdir
	}
	if o.Branch == "" {
		o.Branch = DefaultBranch
	}
	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = DefaultStorerCacheSize
	}
	if o.Maintainer.Name == "" {
		o.Maintainer = Signature{Name: "componentvault", Email: "componentvault@localhost"}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Manager owns one local working copy and provides high-level operations.
// It wraps a go-git Repository and Worktree; no other code path may touch the
// working tree directly.
type Manager struct {
	repo     *git.Repository
	worktree *git.Worktree
	fs       fs.Filesystem
	options  Options
	logger   *slog.Logger

	// writeLock serializes Commit, ResetTo and Pull. fileLock extends the
	// same exclusion across processes when LockPath is configured.
	writeLock lock
	fileLock  *flock.Flock
}

// OpenOrClone opens the repository at Options.Workdir if one exists, clones
// from Options.RemoteURL otherwise, and initializes a fresh seeded repository
// when no remote is configured. The operation is idempotent.
//
// Returns ErrRepositoryUnavailable when the remote is unreachable and no
// local copy exists, and ErrRemoteMismatch when the local copy tracks a
// different remote than requested.
func OpenOrClone(ctx context.Context, opts *Options) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}
	opts.applyDefaults()

	scopedFS, err := scopedWorkdir(opts)
	if err != nil {
		return nil, err
	}

	exists, err := hasGitDir(scopedFS)
	if err != nil {
		return nil, WrapError(err, "failed to probe local repository")
	}

	var m *Manager
	switch {
	case exists:
		m, err = open(opts, scopedFS)
	case opts.RemoteURL != "":
		m, err = cloneRemote(ctx, opts, scopedFS)
	default:
		m, err = initLocal(ctx, opts, scopedFS)
	}
	if err != nil {
		return nil, err
	}

	if opts.LockPath != "" {
		m.fileLock = flock.New(opts.LockPath)
	}
	return m, nil
}

// scopedWorkdir converts the native filesystem and chroots it to the workdir.
func scopedWorkdir(opts *Options) (gobilly.Filesystem, error) {
	billyFS, err := fsbridge.ToBillyFilesystem(opts.FS)
	if err != nil {
		return nil, WrapError(err, "filesystem conversion failed")
	}
	if err := billyFS.MkdirAll(opts.Workdir, 0o755); err != nil {
		return nil, WrapErrorf(err, "failed to create workdir %q", opts.Workdir)
	}
	scoped, err := billyFS.Chroot(opts.Workdir)
	if err != nil {
		return nil, WrapErrorf(err, "failed to chroot to workdir %q", opts.Workdir)
	}
	return scoped, nil
}

// hasGitDir reports whether the scoped filesystem already holds a repository.
func hasGitDir(scoped gobilly.Filesystem) (bool, error) {
	if _, err := scoped.Stat(".git"); err != nil {
		return false, nil
	}
	return true, nil
}

// newStorage builds the git object storage rooted at the .git directory.
func newStorage(scoped gobilly.Filesystem, cacheSize int) (*filesystem.Storage, gobilly.Filesystem, error) {
	dotGitFS, err := scoped.Chroot(".git")
	if err != nil {
		return nil, nil, WrapError(err, "failed to access .git directory")
	}
	return fsbridge.NewStorage(dotGitFS, cacheSize), scoped, nil
}

func open(opts *Options, scoped gobilly.Filesystem) (*Manager, error) {
	storage, worktreeFS, err := newStorage(scoped, opts.StorerCacheSize)
	if err != nil {
		return nil, err
	}

	repo, err := git.Open(storage, worktreeFS)
	if err != nil {
		return nil, WrapError(err, "failed to open repository")
	}

	// The existing copy must track the requested remote, otherwise commits
	// would land in an unrelated history.
	if opts.RemoteURL != "" {
		remote, remoteErr := repo.Remote(DefaultRemoteName)
		if remoteErr != nil || len(remote.Config().URLs) == 0 || remote.Config().URLs[0] != opts.RemoteURL {
			return nil, WrapErrorf(ErrRemoteMismatch, "workdir %q", opts.Workdir)
		}
	}

	return newManager(repo, opts)
}

func cloneRemote(ctx context.Context, opts *Options, scoped gobilly.Filesystem) (*Manager, error) {
	storage, worktreeFS, err := newStorage(scoped, opts.StorerCacheSize)
	if err != nil {
		return nil, err
	}

	cloneCtx, cancel := networkContext(ctx, opts)
	defer cancel()

	repo, err := git.CloneContext(cloneCtx, storage, worktreeFS, &git.CloneOptions{
		URL:           opts.RemoteURL,
		ReferenceName: plumbing.NewBranchReferenceName(opts.Branch),
		SingleBranch:  true,
	})
	if err != nil {
		return nil, WrapErrorf(ErrRepositoryUnavailable, "clone %q failed: %v", opts.RemoteURL, err)
	}

	opts.Logger.Info("cloned component repository",
		"remote", opts.RemoteURL, "branch", opts.Branch)
	return newManager(repo, opts)
}

func initLocal(ctx context.Context, opts *Options, scoped gobilly.Filesystem) (*Manager, error) {
	storage, worktreeFS, err := newStorage(scoped, opts.StorerCacheSize)
	if err != nil {
		return nil, err
	}

	repo, err := git.Init(storage, worktreeFS)
	if err != nil {
		return nil, WrapError(err, "failed to initialize repository")
	}

	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(opts.Branch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, WrapError(err, "failed to set initial branch")
	}

	m, err := newManager(repo, opts)
	if err != nil {
		return nil, err
	}
	if err := m.seedInitialLayout(ctx); err != nil {
		return nil, err
	}

	opts.Logger.Info("initialized component repository", "branch", opts.Branch)
	return m, nil
}

func newManager(repo *git.Repository, opts *Options) (*Manager, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, WrapError(err, "failed to get worktree")
	}
	return &Manager{
		repo:      repo,
		worktree:  worktree,
		fs:        opts.FS,
		options:   *opts,
		logger:    opts.Logger,
		writeLock: newLock(),
	}, nil
}

// seedInitialLayout commits the canonical empty tree of a fresh component
// repository: a README and the components directory.
func (m *Manager) seedInitialLayout(ctx context.Context) error {
	files := map[string][]byte{
		"README.md": []byte("# Component Repository\n\n" +
			"Component content is stored under `components/<category>/<name>/`.\n" +
			"Every directory holds a `component.yaml` descriptor alongside the\n" +
			"component's source files. Do not edit this tree by hand; all writes\n" +
			"go through the component vault service.\n"),
		"components/.gitkeep": {},
	}
	if _, err := m.Commit(ctx, files, "Initialize component repository", m.options.Maintainer); err != nil {
		return WrapError(err, "failed to seed initial layout")
	}
	return nil
}

// Head returns the commit id the configured branch currently points at.
func (m *Manager) Head() (string, error) {
	ref, err := m.repo.Head()
	if err != nil {
		return "", WrapError(err, "failed to resolve HEAD")
	}
	return ref.Hash().String(), nil
}

// Branch returns the branch the Manager operates on.
func (m *Manager) Branch() string {
	return m.options.Branch
}

// RemoteURL returns the configured remote, or "" for a local-only repository.
func (m *Manager) RemoteURL() string {
	return m.options.RemoteURL
}

// resolveCommit parses and loads a commit object by its full hex hash.
func (m *Manager) resolveCommit(commitID string) (*object.Commit, error) {
	if !plumbing.IsHash(commitID) {
		return nil, WrapErrorf(ErrInvalidInput, "malformed commit id %q", commitID)
	}
	commit, err := m.repo.CommitObject(plumbing.NewHash(commitID))
	if err != nil {
		return nil, WrapErrorf(ErrCommitNotFound, "commit %q", commitID)
	}
	return commit, nil
}

// networkContext bounds a network operation by the configured timeout.
func networkContext(ctx context.Context, opts *Options) (context.Context, context.CancelFunc) {
	if opts.NetworkTimeout > 0 {
		return context.WithTimeout(ctx, opts.NetworkTimeout)
	}
	return context.WithCancel(ctx)
}
