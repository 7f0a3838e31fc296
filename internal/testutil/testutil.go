package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func CanceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func MustWriteFile(t *testing.T, path string, content string) {
	MustWriteFileMode(t, path, content, 0o600)
}

func MustWriteFileMode(t *testing.T, path string, content string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteTree writes files keyed by slash-separated paths relative to root, in a
// stable order.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		MustWriteFile(t, filepath.Join(root, filepath.FromSlash(name)), files[name])
	}
}

func WriteTempFile(t *testing.T, filename string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	MustWriteFileMode(t, path, content, 0o644)
	return path
}

// FixturePath returns the path of a directory under the repository testdata dir,
// given how many levels below the repository root the calling package sits.
func FixturePath(depth int, elem ...string) string {
	parts := make([]string, 0, depth+1+len(elem))
	for i := 0; i < depth; i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, "testdata")
	parts = append(parts, elem...)
	return filepath.Join(parts...)
}
