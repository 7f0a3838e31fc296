package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/xeipuuv/gojsonschema"
)

func TestFormatJSONValidatesAgainstSchema(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "..", "testdata", "report", "preload.schema.json"))
	if err != nil {
		t.Fatalf("resolve schema path: %v", err)
	}

	for _, preload := range []Preload{
		NewPreload("/a.mjs", []string{"/c.mjs", "/d.mjs", "/lib/aa.mjs", "/lib/bb.mjs"}),
		NewPreload("/d.mjs", nil),
	} {
		formatted, err := NewFormatter().Format(preload, FormatJSON)
		if err != nil {
			t.Fatalf("format json: %v", err)
		}

		result, err := gojsonschema.Validate(
			gojsonschema.NewReferenceLoader("file://"+schemaPath),
			gojsonschema.NewStringLoader(formatted),
		)
		if err != nil {
			t.Fatalf("validate schema: %v", err)
		}
		if result.Valid() {
			continue
		}

		messages := make([]string, 0, len(result.Errors()))
		for _, item := range result.Errors() {
			messages = append(messages, item.String())
		}
		t.Fatalf("json output failed schema validation: %s", strings.Join(messages, "; "))
	}
}
