// Package repository provides working-tree operations.
// This file contains the exclusive write lock guarding all tree mutations.
package repository

import "context"

// lock is a context-aware mutex. The channel holds at most one token; owning
// the token means owning the lock.
type lock struct {
	ch chan struct{}
}

func newLock() lock {
	return lock{ch: make(chan struct{}, 1)}
}

func (l *lock) acquire(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return WrapError(ErrLockUnavailable, ctx.Err().Error())
	}
}

func (l *lock) release() {
	<-l.ch
}

// beginWrite acquires the exclusive write lock: first the in-process lock,
// then the advisory file lock when one is configured. The returned release
// function must run on every exit path.
func (m *Manager) beginWrite(ctx context.Context) (func(), error) {
	if err := m.writeLock.acquire(ctx); err != nil {
		return nil, err
	}
	if m.fileLock == nil {
		return m.writeLock.release, nil
	}

	locked, err := m.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		m.writeLock.release()
		if err == nil {
			err = ctx.Err()
		}
		return nil, WrapError(ErrLockUnavailable, "advisory file lock: "+err.Error())
	}

	return func() {
		// Unlock errors leave a stale flock file at worst; the in-process
		// lock still guarantees exclusion within this instance.
		_ = m.fileLock.Unlock()
		m.writeLock.release()
	}, nil
}
