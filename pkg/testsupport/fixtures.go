package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-batchform/pkg/blueprint"
)

// LoadBlueprint reads a JSON or YAML fixture and parses it into a
// blueprint.Document. It fails the test on any error.
func LoadBlueprint(t *testing.T, path string) blueprint.Document {
	t.Helper()

	doc, err := LoadBlueprintFromPath(path)
	if err != nil {
		t.Fatalf("load blueprint: %v", err)
	}
	return doc
}

// LoadBlueprintFromPath returns a Document without requiring testing.T so
// fixtures can be wired in setup functions.
func LoadBlueprintFromPath(path string) (blueprint.Document, error) {
	if path == "" {
		return blueprint.Document{}, errors.New("testsupport: blueprint path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return blueprint.Document{}, fmt.Errorf("testsupport: read blueprint: %w", err)
	}
	raw, err := blueprint.NewRaw(blueprint.SourceFromFile(path), data)
	if err != nil {
		return blueprint.Document{}, fmt.Errorf("testsupport: new raw: %w", err)
	}
	return blueprint.Parse(raw)
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	WriteMaybeGolden(t, path, payload)
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents. Tests can assert
// the renderer returns and writes the same payload without duplicating buffer
// setup.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
