package config

import (
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestDefaultsAreValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestOverridesApplyMergesExtensions(t *testing.T) {
	base := Defaults()
	base.Extensions = map[string]string{".js": ".ts", ".mjs": ".mts"}
	overrides := Overrides{
		ImportMapPath: strPtr("  map.json "),
		Fanout:        intPtr(1),
		Extensions:    map[string]string{".js": ".tsx"},
		LogFormat:     strPtr(" JSON "),
	}

	merged := overrides.Apply(base)
	if merged.ImportMapPath != "map.json" || merged.Fanout != 1 || merged.LogFormat != "json" {
		t.Fatalf("unexpected merge: %+v", merged)
	}
	if merged.Extensions[".js"] != ".tsx" || merged.Extensions[".mjs"] != ".mts" {
		t.Fatalf("unexpected extensions: %#v", merged.Extensions)
	}
	if base.Extensions[".js"] != ".ts" {
		t.Fatalf("apply must not mutate the base extensions")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Values)
		want   string
	}{
		{name: "negative cache", mutate: func(v *Values) { v.CacheSize = -1 }, want: "cache size"},
		{name: "zero fanout", mutate: func(v *Values) { v.Fanout = 0 }, want: "fanout"},
		{name: "bad extension", mutate: func(v *Values) { v.Extensions = map[string]string{"js": ".ts"} }, want: "extension mapping"},
		{name: "nested extension", mutate: func(v *Values) { v.Extensions = map[string]string{".js": ".d.ts"} }, want: "extension mapping"},
		{name: "log level", mutate: func(v *Values) { v.LogLevel = "trace" }, want: "log level"},
		{name: "log format", mutate: func(v *Values) { v.LogFormat = "xml" }, want: "log format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values := Defaults()
			tc.mutate(&values)
			err := values.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
		})
	}
}

func TestResolveSpecifier(t *testing.T) {
	if fn := Defaults().ResolveSpecifier(); fn != nil {
		t.Fatalf("expected nil rewrite without extensions")
	}

	values := Defaults()
	values.Extensions = map[string]string{".js": ".ts"}
	rewrite := values.ResolveSpecifier()
	if rewrite == nil {
		t.Fatalf("expected rewrite function")
	}
	cases := map[string]string{
		"./a.js":      "./a.ts",
		"./lib/b.mjs": "./lib/b.mjs",
		"pkg":         "pkg",
		"./dir.js/x":  "./dir.js/x",
	}
	for in, want := range cases {
		if got := rewrite(in); got != want {
			t.Fatalf("rewrite(%q) = %q, want %q", in, got, want)
		}
	}
}
