package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestCanceledContextIsDone(t *testing.T) {
	ctx := CanceledContext()
	select {
	case <-ctx.Done():
	default:
		t.Fatal("expected canceled context")
	}
}

func TestWriteHelpers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.txt")

	MustWriteFile(t, path, "hello")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if got := string(data); got != "hello" {
		t.Fatalf("unexpected content: %q", got)
	}

	tempPath := WriteTempFile(t, "temp.txt", "x")
	if info, err := os.Stat(tempPath); err != nil {
		t.Fatalf("stat temp file: %v", err)
	} else if got := info.Mode().Perm(); got != 0o644 {
		t.Fatalf("expected 0644, got %o", got)
	}
}

func TestWriteTree(t *testing.T) {
	dir := t.TempDir()
	WriteTree(t, dir, map[string]string{
		"a.mjs":         "import './lib/b.mjs';",
		"lib/b.mjs":     "export {};",
		"lib/deep/c.js": "",
	})
	for _, rel := range []string{"a.mjs", "lib/b.mjs", "lib/deep/c.js"} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("stat %s: %v", rel, err)
		}
	}
}

func TestFixturePath(t *testing.T) {
	got := FixturePath(2, "app", "a.mjs")
	want := filepath.Join("..", "..", "testdata", "app", "a.mjs")
	if got != want {
		t.Fatalf("FixturePath = %q, want %q", got, want)
	}
	if got := FixturePath(0); got != "testdata" {
		t.Fatalf("FixturePath(0) = %q", got)
	}
}

func TestFatalPathsViaHelperProcess(t *testing.T) {
	t.Parallel()
	for _, tc := range []string{
		"mkdir-failure",
		"write-failure",
	} {
		t.Run(tc, func(t *testing.T) {
			cmd := exec.Command(os.Args[0], "-test.run=TestHelperFatalPath", "--", tc)
			cmd.Env = append(os.Environ(), "TESTUTIL_FATAL_HELPER=1")
			err := cmd.Run()
			if err == nil {
				t.Fatalf("expected helper to fail for scenario %s", tc)
			}
			if _, ok := err.(*exec.ExitError); !ok {
				t.Fatalf("expected ExitError, got %T: %v", err, err)
			}
		})
	}
}

func TestHelperFatalPath(t *testing.T) {
	if os.Getenv("TESTUTIL_FATAL_HELPER") != "1" {
		return
	}
	if len(os.Args) < 2 {
		t.Fatal("missing helper scenario")
	}
	scenario := os.Args[len(os.Args)-1]

	switch scenario {
	case "mkdir-failure":
		dir := t.TempDir()
		parentFile := filepath.Join(dir, "parent")
		if err := os.WriteFile(parentFile, []byte("x"), 0o600); err != nil {
			t.Fatalf("setup parent file: %v", err)
		}
		MustWriteFileMode(t, filepath.Join(parentFile, "child.txt"), "x", 0o600)
	case "write-failure":
		dir := t.TempDir()
		MustWriteFileMode(t, dir, "x", 0o600)
	default:
		t.Fatalf("unknown helper scenario %q", scenario)
	}
}
