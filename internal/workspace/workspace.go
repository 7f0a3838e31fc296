package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNotDirectory = errors.New("app root is not a directory")

// NormalizeAppRoot returns the absolute, symlink-free path of an app directory.
func NormalizeAppRoot(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve app root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve app root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat app root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, resolved)
	}
	return resolved, nil
}
