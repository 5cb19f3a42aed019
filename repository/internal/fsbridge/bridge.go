// Package fsbridge adapts the project's native filesystem abstraction to the
// billy filesystem that go-git operates on, and builds the cached git object
// storage used by the repository Manager.
package fsbridge

import (
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	fsb "github.com/input-output-hk/catalyst-forge-libs/fs/billy"
)

// ToBillyFilesystem converts an fs.Filesystem to a billy.Filesystem.
// The passed filesystem must be a billy-backed FS from the fs/billy package;
// anything else cannot host a git object store.
//
//nolint:ireturn // returns interface as required by billy.Filesystem consumers
func ToBillyFilesystem(fsys fs.Filesystem) (billy.Filesystem, error) {
	billyFS, ok := fsys.(*fsb.FS)
	if !ok {
		return nil, fmt.Errorf("filesystem must be a billy-backed FS, got %T", fsys)
	}
	return billyFS.Raw(), nil
}

// NewStorage creates git object storage over billyFS with an LRU object
// cache of cacheSize entries.
func NewStorage(billyFS billy.Filesystem, cacheSize int) *filesystem.Storage {
	if cacheSize <= 0 {
		cacheSize = 100
	}
	objCache := cache.NewObjectLRU(cache.FileSize(cacheSize))
	return filesystem.NewStorage(billyFS, objCache)
}
