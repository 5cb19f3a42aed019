package repository

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCommit_ConcurrentWritesSerialize verifies that parallel commits all
// succeed and produce distinct commit ids: the exclusive lock applies them
// in acquisition order with no interleaving.
func TestCommit_ConcurrentWritesSerialize(t *testing.T) {
	tm := setupTestManager(t)

	const writers = 8

	var wg sync.WaitGroup
	commits := make([]string, writers)
	errs := make([]error, writers)

	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := fmt.Sprintf("components/a/x/file-%d.txt", i)
			commits[i], errs[i] = tm.mgr.Commit(tm.ctx, map[string][]byte{
				path: fmt.Appendf(nil, "content %d", i),
			}, fmt.Sprintf("write %d", i), testAuthor())
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, writers)
	for i := range writers {
		require.NoError(t, errs[i], "writer %d must succeed", i)
		assert.False(t, seen[commits[i]], "commit ids must be distinct")
		seen[commits[i]] = true
	}

	// Every file must be present at the final head.
	head, err := tm.mgr.Head()
	require.NoError(t, err)
	for i := range writers {
		path := fmt.Sprintf("components/a/x/file-%d.txt", i)
		_, err := tm.mgr.ReadFile(tm.ctx, head, path)
		require.NoError(t, err, "file %d must survive all commits", i)
	}
}

// TestReads_RunDuringWrites verifies reads against pinned commits never
// block on or observe an in-flight write.
func TestReads_RunDuringWrites(t *testing.T) {
	tm := setupTestManager(t)

	pinned, err := tm.mgr.Commit(tm.ctx, map[string][]byte{
		"components/a/x/stable.txt": []byte("stable"),
	}, "pin", testAuthor())
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, err := tm.mgr.Commit(tm.ctx, map[string][]byte{
				"components/a/x/churn.txt": fmt.Appendf(nil, "rev %d", i),
			}, fmt.Sprintf("churn %d", i), testAuthor())
			if err != nil {
				return
			}
		}
	}()

	for range 50 {
		got, err := tm.mgr.ReadFile(tm.ctx, pinned, "components/a/x/stable.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("stable"), got)
	}
	close(stop)
	wg.Wait()
}
