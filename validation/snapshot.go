package validation

import (
	"context"
	"sort"
	"strings"

	"github.com/forgeworks/componentvault/domain"
)

// FileReader reads file content as it existed at a pinned commit. The
// repository Manager satisfies this.
type FileReader interface {
	ReadFile(ctx context.Context, commitID, path string) ([]byte, error)
}

// Snapshot is the read-only view of one pinned component version that the
// pipeline evaluates: the manifest under the component's directory plus the
// metadata entries attached to the version. All reads address immutable
// history, so snapshots of different versions may be evaluated concurrently.
type Snapshot struct {
	commitID string
	root     string
	paths    []string
	metadata map[string]string
	reader   FileReader

	// contents caches reads so repeated stage access to the same file does
	// not hit the object store twice.
	contents map[string][]byte
}

// NewSnapshot builds a snapshot over the manifest entries rooted at the
// component directory. Paths exposed to stages are relative to root.
func NewSnapshot(reader FileReader, commitID, root string, manifest []domain.ManifestEntry, metadata map[string]string) *Snapshot {
	prefix := strings.TrimSuffix(root, "/") + "/"
	var paths []string
	for _, entry := range manifest {
		if rel, ok := strings.CutPrefix(entry.Path, prefix); ok {
			paths = append(paths, rel)
		}
	}
	sort.Strings(paths)

	if metadata == nil {
		metadata = map[string]string{}
	}
	return &Snapshot{
		commitID: commitID,
		root:     strings.TrimSuffix(root, "/"),
		paths:    paths,
		metadata: metadata,
		reader:   reader,
		contents: map[string][]byte{},
	}
}

// CommitID returns the pinned commit the snapshot addresses.
func (s *Snapshot) CommitID() string { return s.commitID }

// Paths lists the snapshot's file paths relative to the component root, in
// lexicographic order.
func (s *Snapshot) Paths() []string { return s.paths }

// Has reports whether the snapshot contains the given relative path.
func (s *Snapshot) Has(relPath string) bool {
	i := sort.SearchStrings(s.paths, relPath)
	return i < len(s.paths) && s.paths[i] == relPath
}

// Read returns the content of a relative path at the pinned commit.
func (s *Snapshot) Read(ctx context.Context, relPath string) ([]byte, error) {
	if cached, ok := s.contents[relPath]; ok {
		return cached, nil
	}
	data, err := s.reader.ReadFile(ctx, s.commitID, s.root+"/"+relPath)
	if err != nil {
		return nil, WrapErrorf(ErrSnapshotRead, "%q at %q: %v", relPath, s.commitID, err)
	}
	s.contents[relPath] = data
	return data, nil
}

// Metadata returns the value of a metadata key and whether it is present.
func (s *Snapshot) Metadata(key string) (string, bool) {
	v, ok := s.metadata[key]
	return v, ok
}

// sourceExtensions are treated as source files for the structure and
// quality stages.
var sourceExtensions = []string{".go", ".py", ".js", ".ts", ".java", ".c", ".cpp"}

// IsSourceFile reports whether a path looks like a source file.
func IsSourceFile(relPath string) bool {
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(relPath, ext) {
			return true
		}
	}
	return false
}

// IsTestFile reports whether a path looks like a test file.
func IsTestFile(relPath string) bool {
	base := relPath
	if i := strings.LastIndex(relPath, "/"); i >= 0 {
		base = relPath[i+1:]
	}
	return strings.HasSuffix(base, "_test.go") ||
		strings.HasPrefix(base, "test_") ||
		strings.Contains(base, ".test.") ||
		strings.Contains(base, ".spec.")
}
