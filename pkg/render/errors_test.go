package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-batchform/pkg/render"
)

func TestMapErrorPayload(t *testing.T) {
	bindings := render.NewBindings()
	for _, path := range []string{"lot", "weights.total", "ops.0.start", "ops.0.finish"} {
		bindings.Register(render.Binding{Path: path})
	}

	payload := map[string][]string{
		"/body/lot":                {"Lot is required"},
		"data.weights.total":       {"Too heavy", " Too heavy "},
		"$.ops[0].start":           {"Start missing"},
		"#/payload/ops/0":          {"Record invalid"},
		"non_field_errors":         {"Form level error"},
		"request/body/unknown-key": {"Should fall back to form errors"},
		"":                         {"Unscoped form error"},
	}

	mapped := render.MapErrorPayload(bindings, payload)

	wantFields := map[string][]string{
		"lot":           {"Lot is required"},
		"weights.total": {"Too heavy"},
		"ops.0.start":   {"Start missing"},
		"ops.0":         {"Record invalid"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	// Keys are visited in sorted order.
	wantForm := []string{"Unscoped form error", "Form level error", "Should fall back to form errors"}
	if diff := cmp.Diff(wantForm, mapped.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFormErrors(t *testing.T) {
	merged := render.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	want := []string{"First", "Second", "third"}

	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}
