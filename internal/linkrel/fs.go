package linkrel

import (
	"context"

	"github.com/ben-ranford/linkpreload/internal/esm"
	"github.com/ben-ranford/linkpreload/internal/safeio"
)

// FileSystem is the read side the walker needs. A failed read or stat is never an
// error for resolution; it only means the path contributes nothing.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
}

type ImportParser interface {
	ParseImports(ctx context.Context, path string, source []byte) ([]esm.Import, error)
}

// OSFileSystem reads from disk without following anything out of Root.
type OSFileSystem struct {
	Root string
}

func (f OSFileSystem) ReadFile(path string) ([]byte, error) {
	return safeio.ReadFileUnder(f.Root, path)
}

func (f OSFileSystem) Exists(path string) bool {
	info, err := safeio.StatUnder(f.Root, path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
