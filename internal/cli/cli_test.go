package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ben-ranford/linkpreload/internal/app"
)

type fakeRunner struct {
	output string
	err    error
	got    app.Request
}

type failWriter struct{}

func (f *fakeRunner) Execute(_ context.Context, req app.Request) (string, error) {
	f.got = req
	return f.output, f.err
}

func (*failWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestRunHelp(t *testing.T) {
	for _, args := range [][]string{nil, {"--help"}, {"help"}, {"resolve", "-h"}} {
		var out bytes.Buffer
		var errOut bytes.Buffer
		c := New(&fakeRunner{}, &out, &errOut)
		if code := c.Run(context.Background(), args); code != 0 {
			t.Fatalf("args %q: expected code 0, got %d", args, code)
		}
		if !strings.Contains(out.String(), "Usage:") {
			t.Fatalf("args %q: expected usage output", args)
		}
		if errOut.Len() != 0 {
			t.Fatalf("args %q: expected no stderr, got %q", args, errOut.String())
		}
	}
}

func TestRunHelpWriterFailure(t *testing.T) {
	c := New(&fakeRunner{}, &failWriter{}, &bytes.Buffer{})
	if code := c.Run(context.Background(), []string{"--help"}); code != 1 {
		t.Fatalf("expected help writer failure to return code 1, got %d", code)
	}
}

func TestRunParseError(t *testing.T) {
	var out bytes.Buffer
	var errOut bytes.Buffer
	c := New(&fakeRunner{}, &out, &errOut)
	if code := c.Run(context.Background(), []string{"nope"}); code != 2 {
		t.Fatalf("expected parse error code 2, got %d", code)
	}
	if !strings.Contains(errOut.String(), "unknown command") || !strings.Contains(errOut.String(), "Usage:") {
		t.Fatalf("expected parse error and usage output, got %q", errOut.String())
	}
	if out.Len() != 0 {
		t.Fatalf("expected no stdout, got %q", out.String())
	}
}

func TestRunWritesOutputWithTrailingNewline(t *testing.T) {
	var out bytes.Buffer
	runner := &fakeRunner{output: "/b.mjs"}
	c := New(runner, &out, &bytes.Buffer{})
	if code := c.Run(context.Background(), []string{"resolve", "/a.mjs"}); code != 0 {
		t.Fatalf("expected code 0, got %d", code)
	}
	if out.String() != "/b.mjs\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
	if runner.got.Resolve.URL != "/a.mjs" {
		t.Fatalf("expected request url /a.mjs, got %q", runner.got.Resolve.URL)
	}
}

func TestRunAbsentIsSuccess(t *testing.T) {
	var out bytes.Buffer
	c := New(&fakeRunner{}, &out, &bytes.Buffer{})
	if code := c.Run(context.Background(), []string{"resolve", "/leaf.mjs"}); code != 0 {
		t.Fatalf("expected code 0, got %d", code)
	}
	if out.Len() != 0 {
		t.Fatalf("expected empty output, got %q", out.String())
	}
}

func TestRunExecuteError(t *testing.T) {
	var errOut bytes.Buffer
	c := New(&fakeRunner{err: errors.New("bad config")}, &bytes.Buffer{}, &errOut)
	if code := c.Run(context.Background(), []string{"resolve", "/a.mjs"}); code != 1 {
		t.Fatalf("expected code 1, got %d", code)
	}
	if !strings.Contains(errOut.String(), "bad config") {
		t.Fatalf("expected error on stderr, got %q", errOut.String())
	}
}

func TestRunOutputWriterFailure(t *testing.T) {
	c := New(&fakeRunner{output: "/b.mjs\n"}, &failWriter{}, &bytes.Buffer{})
	if code := c.Run(context.Background(), []string{"resolve", "/a.mjs"}); code != 1 {
		t.Fatalf("expected code 1, got %d", code)
	}
}
