package repository

import (
	"context"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	fsb "github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testManager holds a manager over an in-memory filesystem.
type testManager struct {
	mgr *Manager
	fs  fs.Filesystem
	ctx context.Context
}

// setupTestManager creates a fresh local repository with the seeded layout.
func setupTestManager(t *testing.T) *testManager {
	t.Helper()

	ctx := context.Background()
	memFS := fsb.NewInMemoryFS()

	mgr, err := OpenOrClone(ctx, &Options{FS: memFS})
	require.NoError(t, err, "failed to initialize test repository")
	require.NotNil(t, mgr, "manager should not be nil")

	return &testManager{mgr: mgr, fs: memFS, ctx: ctx}
}

func testAuthor() Signature {
	return Signature{Name: "Test Author", Email: "author@example.com"}
}

func TestOpenOrClone_InitializesLocal(t *testing.T) {
	tm := setupTestManager(t)

	head, err := tm.mgr.Head()
	require.NoError(t, err)
	assert.NotEmpty(t, head, "fresh repository should have a seeded commit")

	readme, err := tm.mgr.ReadFile(tm.ctx, head, "README.md")
	require.NoError(t, err)
	assert.NotEmpty(t, readme)

	assert.Equal(t, DefaultBranch, tm.mgr.Branch())
}

func TestOpenOrClone_ReopensExisting(t *testing.T) {
	tm := setupTestManager(t)

	first, err := tm.mgr.Head()
	require.NoError(t, err)

	reopened, err := OpenOrClone(tm.ctx, &Options{FS: tm.fs})
	require.NoError(t, err, "reopening the same filesystem should succeed")

	second, err := reopened.Head()
	require.NoError(t, err)
	assert.Equal(t, first, second, "reopen must not create new commits")
}

func TestCommit_RoundTrip(t *testing.T) {
	tm := setupTestManager(t)

	files := map[string][]byte{
		"components/utils/matrix/main.go":  []byte("package matrix\n"),
		"components/utils/matrix/util.go":  []byte("package matrix\n\nfunc Add() {}\n"),
		"components/utils/matrix/README.md": []byte("# matrix\n"),
	}

	commitID, err := tm.mgr.Commit(tm.ctx, files, "Add matrix", testAuthor())
	require.NoError(t, err)
	require.Len(t, commitID, 40, "commit id should be a full hex hash")

	for path, want := range files {
		got, err := tm.mgr.ReadFile(tm.ctx, commitID, path)
		require.NoError(t, err, "path %s should exist at commit", path)
		assert.Equal(t, want, got, "content must round-trip exactly for %s", path)
	}
}

func TestCommit_ValidatesInput(t *testing.T) {
	tm := setupTestManager(t)

	tests := []struct {
		name    string
		files   map[string][]byte
		message string
		wantErr error
	}{
		{
			name:    "empty file map",
			files:   map[string][]byte{},
			message: "msg",
			wantErr: ErrEmptyCommit,
		},
		{
			name:    "empty message",
			files:   map[string][]byte{"a.txt": []byte("x")},
			message: "",
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.mgr.Commit(tm.ctx, tt.files, tt.message, testAuthor())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCommit_DeletesWithNilContent(t *testing.T) {
	tm := setupTestManager(t)

	first, err := tm.mgr.Commit(tm.ctx, map[string][]byte{
		"components/a/x/file.txt": []byte("content"),
	}, "add", testAuthor())
	require.NoError(t, err)

	second, err := tm.mgr.Commit(tm.ctx, map[string][]byte{
		"components/a/x/file.txt": nil,
	}, "remove", testAuthor())
	require.NoError(t, err)

	_, err = tm.mgr.ReadFile(tm.ctx, second, "components/a/x/file.txt")
	require.ErrorIs(t, err, ErrFileNotFound, "deleted path must be absent at new commit")

	got, err := tm.mgr.ReadFile(tm.ctx, first, "components/a/x/file.txt")
	require.NoError(t, err, "prior commit must still hold the file")
	assert.Equal(t, []byte("content"), got)
}

func TestCommit_RejectsDirtyWorkingTree(t *testing.T) {
	tm := setupTestManager(t)

	// Mutate the worktree outside the manager.
	err := tm.fs.WriteFile("rogue.txt", []byte("external change"), 0o644)
	require.NoError(t, err)

	_, err = tm.mgr.Commit(tm.ctx, map[string][]byte{"a.txt": []byte("x")}, "msg", testAuthor())
	require.ErrorIs(t, err, ErrDirtyWorkingTree)
}

func TestCommit_ImmutableHistory(t *testing.T) {
	tm := setupTestManager(t)

	commitID, err := tm.mgr.Commit(tm.ctx, map[string][]byte{
		"components/a/x/v.txt": []byte("v1"),
	}, "v1", testAuthor())
	require.NoError(t, err)

	_, err = tm.mgr.Commit(tm.ctx, map[string][]byte{
		"components/a/x/v.txt": []byte("v2"),
	}, "v2", testAuthor())
	require.NoError(t, err)

	for range 3 {
		got, err := tm.mgr.ReadFile(tm.ctx, commitID, "components/a/x/v.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got, "pinned content must not change across reads")
	}
}

func TestResetTo_RestoresCommit(t *testing.T) {
	tm := setupTestManager(t)

	first, err := tm.mgr.Commit(tm.ctx, map[string][]byte{
		"state.txt": []byte("first"),
	}, "first", testAuthor())
	require.NoError(t, err)

	_, err = tm.mgr.Commit(tm.ctx, map[string][]byte{
		"state.txt": []byte("second"),
	}, "second", testAuthor())
	require.NoError(t, err)

	err = tm.mgr.ResetTo(tm.ctx, first)
	require.NoError(t, err)

	head, err := tm.mgr.Head()
	require.NoError(t, err)
	assert.Equal(t, first, head)
}

func TestResetTo_UnknownCommit(t *testing.T) {
	tm := setupTestManager(t)

	err := tm.mgr.ResetTo(tm.ctx, "0000000000000000000000000000000000000000")
	require.ErrorIs(t, err, ErrCommitNotFound)
}

func TestManifestAt_PrefixAndHashes(t *testing.T) {
	tm := setupTestManager(t)

	commitID, err := tm.mgr.Commit(tm.ctx, map[string][]byte{
		"components/a/x/one.txt": []byte("same"),
		"components/a/x/two.txt": []byte("same"),
		"components/b/y/other.txt": []byte("different"),
	}, "seed", testAuthor())
	require.NoError(t, err)

	entries, err := tm.mgr.ManifestAt(tm.ctx, commitID, "components/a/x")
	require.NoError(t, err)
	require.Len(t, entries, 2, "prefix must exclude other components")

	assert.Equal(t, "components/a/x/one.txt", entries[0].Path, "entries must be sorted by path")
	assert.Equal(t, entries[0].Hash, entries[1].Hash,
		"identical content must produce identical blob hashes")

	full, err := tm.mgr.ManifestAt(tm.ctx, commitID, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(full), 3)
}

func TestListHistory_WalksPath(t *testing.T) {
	tm := setupTestManager(t)

	for _, content := range []string{"v1", "v2", "v3"} {
		_, err := tm.mgr.Commit(tm.ctx, map[string][]byte{
			"components/a/x/f.txt": []byte(content),
		}, "update "+content, testAuthor())
		require.NoError(t, err)
	}

	head, err := tm.mgr.Head()
	require.NoError(t, err)

	iter, err := tm.mgr.ListHistory(tm.ctx, "components/a/x/f.txt", head, 0)
	require.NoError(t, err)
	defer iter.Close()

	var messages []string
	err = iter.ForEach(func(entry *HistoryEntry) error {
		messages = append(messages, entry.Message)
		assert.NotEmpty(t, entry.CommitID)
		assert.Contains(t, entry.Author, "Test Author")
		return nil
	})
	require.NoError(t, err)
	require.Len(t, messages, 3, "history must only include commits touching the path")
	assert.Equal(t, "update v3", messages[0], "history walks backward from head")
}

func TestListHistory_RespectsLimit(t *testing.T) {
	tm := setupTestManager(t)

	for _, content := range []string{"v1", "v2", "v3"} {
		_, err := tm.mgr.Commit(tm.ctx, map[string][]byte{
			"components/a/x/f.txt": []byte(content),
		}, "update "+content, testAuthor())
		require.NoError(t, err)
	}

	head, err := tm.mgr.Head()
	require.NoError(t, err)

	iter, err := tm.mgr.ListHistory(tm.ctx, "components/a/x/f.txt", head, 2)
	require.NoError(t, err)
	defer iter.Close()

	count := 0
	err = iter.ForEach(func(*HistoryEntry) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
