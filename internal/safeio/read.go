package safeio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var ErrEscapesRoot = errors.New("path escapes root")

// Within reports whether targetPath is rootDir itself or lies below it. The check
// works on whole path segments, so /app-evil is not inside /app.
func Within(rootDir, targetPath string) bool {
	_, err := relUnder(rootDir, targetPath)
	return err == nil
}

func relUnder(rootDir, targetPath string) (string, error) {
	rootAbs, err := filepath.Abs(rootDir)
	if err != nil {
		return "", fmt.Errorf("resolve root path: %w", err)
	}
	targetAbs, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}

	rel, err := filepath.Rel(rootAbs, targetAbs)
	if err != nil {
		return "", fmt.Errorf("compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, targetPath)
	}
	return filepath.Clean(rel), nil
}

// ReadFileUnder reads targetPath only if it resolves under rootDir.
func ReadFileUnder(rootDir, targetPath string) ([]byte, error) {
	rel, err := relUnder(rootDir, targetPath)
	if err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(rootDir)
	if err != nil {
		return nil, fmt.Errorf("open root: %w", err)
	}
	defer root.Close()

	file, err := root.Open(rel)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// StatUnder stats targetPath through an os.Root so symlinks cannot leave rootDir.
func StatUnder(rootDir, targetPath string) (fs.FileInfo, error) {
	rel, err := relUnder(rootDir, targetPath)
	if err != nil {
		return nil, err
	}

	root, err := os.OpenRoot(rootDir)
	if err != nil {
		return nil, fmt.Errorf("open root: %w", err)
	}
	defer root.Close()

	return root.Stat(rel)
}

// ReadFile reads the exact targetPath by opening its parent directory as a root.
func ReadFile(targetPath string) ([]byte, error) {
	targetAbs, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, fmt.Errorf("resolve target path: %w", err)
	}

	root, err := os.OpenRoot(filepath.Dir(targetAbs))
	if err != nil {
		return nil, fmt.Errorf("open parent root: %w", err)
	}
	defer root.Close()

	file, err := root.Open(filepath.Base(targetAbs))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
