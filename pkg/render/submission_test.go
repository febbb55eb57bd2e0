package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-batchform/pkg/render"
)

func TestMergeAndSortHiddenFields(t *testing.T) {
	base := map[string]string{
		" existing ": "keep",
		"":           "ignored",
	}

	fields := []render.HiddenField{
		render.CSRFToken("_csrf", "token123"),
		render.SessionField("abc"),
		render.VersionField("version", 4),
		render.Hidden("  ", "skip"),
	}
	fields = append(fields, render.PageFields(render.Page{Step: 2, TemplateID: "T-9"})...)

	merged := render.MergeHiddenFields(base, fields...)

	wantMerged := map[string]string{
		"existing":  "keep",
		"_csrf":     "token123",
		"_session":  "abc",
		"_step":     "2",
		"_template": "T-9",
		"version":   "4",
	}
	if diff := cmp.Diff(wantMerged, merged); diff != "" {
		t.Fatalf("merged hidden fields mismatch (-want +got):\n%s", diff)
	}

	sorted := render.SortedHiddenFields(merged)
	wantSorted := []render.HiddenField{
		{Name: "_csrf", Value: "token123"},
		{Name: "_session", Value: "abc"},
		{Name: "_step", Value: "2"},
		{Name: "_template", Value: "T-9"},
		{Name: "existing", Value: "keep"},
		{Name: "version", Value: "4"},
	}
	if diff := cmp.Diff(wantSorted, sorted); diff != "" {
		t.Fatalf("sorted hidden fields mismatch (-want +got):\n%s", diff)
	}
}
