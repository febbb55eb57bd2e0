package state

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDocumentSetAndGet(t *testing.T) {
	doc := New(map[string]any{"lot": "A-1"})

	if _, err := doc.Set("weights.total", 100.0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := doc.Set("ops.2.start", "10:00"); err != nil {
		t.Fatalf("set slice path: %v", err)
	}
	if _, err := doc.Set("ops.0.subs.1.finish", "11:00"); err != nil {
		t.Fatalf("set nested slice path: %v", err)
	}

	want := map[string]any{
		"lot":     "A-1",
		"weights": map[string]any{"total": 100.0},
		"ops": []any{
			map[string]any{"subs": []any{nil, map[string]any{"finish": "11:00"}}},
			nil,
			map[string]any{"start": "10:00"},
		},
	}
	if diff := cmp.Diff(want, doc.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	if v, ok := doc.Get("ops.2.start"); !ok || v != "10:00" {
		t.Fatalf("expected ops.2.start, got %v %v", v, ok)
	}
	if _, ok := doc.Get("ops.9.start"); ok {
		t.Fatalf("expected out-of-range index to be missing")
	}
	if _, ok := doc.Get("lot.inner"); ok {
		t.Fatalf("expected scalar traversal to be missing")
	}
}

func TestDocumentSetRejectsBadPaths(t *testing.T) {
	doc := New(nil)
	if _, err := doc.Set("  ", 1); err != ErrEmptyPath {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
	if _, err := doc.Set("ops.0", "x"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := doc.Set("ops.-1", "x"); err == nil {
		t.Fatalf("expected error for negative index")
	}
}

func TestDocumentSetBoundsIndexes(t *testing.T) {
	doc := New(nil)
	if _, err := doc.Set("x.20000000", "a"); !errors.Is(err, ErrIndexRange) {
		t.Fatalf("expected ErrIndexRange, got %v", err)
	}
	if _, ok := doc.Get("x"); ok {
		t.Fatalf("rejected write must not create containers")
	}
	if _, err := doc.Set(fmt.Sprintf("x.%d", MaxIndex), "a"); err != nil {
		t.Fatalf("set at MaxIndex: %v", err)
	}
}

func TestDocumentSetRejectsScalarTraversal(t *testing.T) {
	doc := New(map[string]any{"lot": "A-1"})
	var changes []Change
	doc.Subscribe(func(c Change) { changes = append(changes, c) })

	if _, err := doc.Set("lot.inner", 1); !errors.Is(err, ErrTypeConflict) {
		t.Fatalf("expected ErrTypeConflict, got %v", err)
	}
	if v, _ := doc.Get("lot"); v != "A-1" {
		t.Fatalf("scalar was replaced, got %v", v)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no change notifications, got %v", changes)
	}
}

func TestDocumentSubscribe(t *testing.T) {
	doc := New(nil)

	var changes []Change
	cancel := doc.Subscribe(func(c Change) { changes = append(changes, c) })

	mustSet(t, doc, "a", 1.0)
	mustSet(t, doc, "a", 1.0) // unchanged, no notification
	mustSet(t, doc, "missing", nil)
	mustSet(t, doc, "a", nil)

	want := []Change{
		{Path: "a", Old: nil, New: 1.0},
		{Path: "a", Old: 1.0, New: nil},
	}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}

	cancel()
	mustSet(t, doc, "a", 2.0)
	if len(changes) != 2 {
		t.Fatalf("expected cancelled listener to stop receiving changes")
	}
}

func TestDocumentSnapshotIsDeep(t *testing.T) {
	doc := New(nil)
	mustSet(t, doc, "ops.0.start", "08:00")

	snap := doc.Snapshot()
	snap["ops"].([]any)[0].(map[string]any)["start"] = "mutated"

	if got := doc.Value("ops.0.start"); got != "08:00" {
		t.Fatalf("snapshot mutation leaked into document: %v", got)
	}

	clone := doc.Clone()
	mustSet(t, clone, "ops.0.start", "09:00")
	if got := doc.Value("ops.0.start"); got != "08:00" {
		t.Fatalf("clone mutation leaked into document: %v", got)
	}
}

func TestDocumentFlatten(t *testing.T) {
	doc := New(map[string]any{"a": map[string]any{"b": 1}, "c": []any{"x", "y"}})
	want := map[string]any{"a.b": 1, "c.0": "x", "c.1": "y"}
	if diff := cmp.Diff(want, doc.Flatten()); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.b", "c.0", "c.1"}, doc.Paths()); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func mustSet(t *testing.T, doc *Document, path string, value any) {
	t.Helper()
	if _, err := doc.Set(path, value); err != nil {
		t.Fatalf("set %s: %v", path, err)
	}
}
