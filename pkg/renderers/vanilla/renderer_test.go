package vanilla_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/render"
	"github.com/goliatone/go-batchform/pkg/renderers/vanilla"
	"github.com/goliatone/go-batchform/pkg/testsupport"
)

const blueprintJSON = `{
  "template": {"template_id": "T1", "template_name": "Brine <em>batch</em>"},
  "items": [
    {"item_id": "note", "display_order": 0, "config_json": {"column_type": "description", "title": "Note", "text": "Weigh <script>alert(1)</script>twice"}},
    {"item_id": "w", "display_order": 1, "config_json": {
      "row_type": "single_input", "label": "<b>Total</b>", "unit": "m<sup>3</sup>", "std_value": "100",
      "field": "weights.total", "input_type": "number", "required": true}},
    {"item_id": "op", "display_order": 2, "config_json": {
      "row_type": "dual_input", "time_pair": true, "label": "Mixing",
      "inputs": [{"field": "ops.{index}.start", "input_type": "time"}, {"field": "", "input_type": "time"}]}},
    {"item_id": "d", "display_order": 3, "config_json": {
      "column_type": "single_input_group", "title": "Yield", "field": "derived.yield_rate", "input_type": "number"}}
  ]
}`

func renderPage(t *testing.T, r *vanilla.Renderer, opts render.RenderOptions) string {
	t.Helper()
	doc := blueprint.MustParseBytes([]byte(blueprintJSON))
	page := render.RenderDocument(doc, render.RowOptions{Step: 1, Index: 2})
	out, err := r.Render(context.Background(), page, opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func assertContains(t *testing.T, html string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(html, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, html)
		}
	}
}

func TestRenderEmitsBoundInputs(t *testing.T) {
	r, err := vanilla.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	html := renderPage(t, r, render.RenderOptions{
		Action:   "/batches/7",
		Values:   map[string]any{"weights": map[string]any{"total": 100.5}, "ops.2.start": "22:00", "derived.yield_rate": 92.4},
		Errors:   map[string][]string{"weights.total": {"Total out of range"}},
		ReadOnly: []string{"derived.yield_rate"},
		HiddenFields: render.MergeHiddenFields(nil,
			render.CSRFToken("_csrf", "tok"),
			render.SessionField("s-1"),
		),
		FormErrors: []string{"Step 3 failed to load"},
		TotalSteps: 3,
	})

	assertContains(t, html,
		`action="/batches/7"`,
		`method="POST"`,
		`data-template="T1"`,
		`<h2>Brine <em>batch</em></h2>`,
		`Step 1 of 3`,
		`<input type="hidden" name="_csrf" value="tok">`,
		`<input type="hidden" name="_session" value="s-1">`,
		`<input type="hidden" name="_step" value="1">`,
		`<input type="hidden" name="_template" value="T1">`,
		`<li>Step 3 failed to load</li>`,
		`<th scope="row"><b>Total</b></th>`,
		`<td class="batchform-unit">m<sup>3</sup></td>`,
		`id="bf-weights-total" name="weights.total" value="100.5" inputmode="decimal" required aria-invalid="true"`,
		`<span class="batchform-error" id="bf-weights-total-error">Total out of range</span>`,
		`type="time" id="bf-ops-2-start" name="ops.2.start" value="22:00"`,
		`<span class="batchform-slot"></span>`,
		`name="derived.yield_rate" value="92.4" inputmode="decimal" readonly`,
		`<th scope="row">Yield</th>`,
		`value="next">Next</button>`,
	)
	if strings.Contains(html, "<script") || strings.Contains(html, "alert(1)") {
		t.Fatalf("expected description script to be sanitized\n%s", html)
	}
	if !strings.Contains(html, "<style>") {
		t.Fatalf("expected stylesheet to be inlined without a theme")
	}
}

func TestRenderEscapesValues(t *testing.T) {
	r, err := vanilla.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	html := renderPage(t, r, render.RenderOptions{
		Values: map[string]any{"weights.total": `"><img src=x>`},
	})
	if strings.Contains(html, `"><img`) {
		t.Fatalf("expected value to be escaped\n%s", html)
	}
}

func TestRenderAppliesTheme(t *testing.T) {
	r, err := vanilla.New(vanilla.WithChromeClasses(vanilla.ChromeClasses{Form: "acme-form bad\"class"}))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	html := renderPage(t, r, render.RenderOptions{
		Theme: &theme.RendererConfig{
			Theme:    "acme",
			Variant:  "dark",
			CSSVars:  map[string]string{"--brand": "#123456", "--border": "#333"},
			AssetURL: func(name string) string { return "/assets/themes/acme/" + name },
		},
	})

	assertContains(t, html,
		`<link rel="stylesheet" href="/assets/themes/acme/batchform-vanilla.css">`,
		`<form class="acme-form"`,
		`data-theme="acme" data-variant="dark"`,
		`style="--border: #333; --brand: #123456"`,
		`value="submit">Submit</button>`,
	)
	if strings.Contains(html, "<style>") {
		t.Fatalf("expected no inline stylesheet when the theme serves assets")
	}
}

func TestRenderUsesThemePagePartial(t *testing.T) {
	files := fstest.MapFS{
		"templates/form.tmpl":   {Data: []byte("default")},
		"themes/acme/page.tmpl": {Data: []byte("acme {{ template_id }} rows={{ rows|length }}")},
	}
	r, err := vanilla.New(vanilla.WithTemplatesFS(files))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	html := renderPage(t, r, render.RenderOptions{
		Theme: &theme.RendererConfig{Partials: map[string]string{vanilla.PagePartial: "themes/acme/page.tmpl"}},
	})
	if html != "acme T1 rows=4" {
		t.Fatalf("unexpected partial output %q", html)
	}
}

func TestAssetsFSIncludesStylesheet(t *testing.T) {
	r, err := vanilla.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if r.Name() != "vanilla" || !strings.HasPrefix(r.ContentType(), "text/html") {
		t.Fatalf("unexpected renderer identity %s %s", r.Name(), r.ContentType())
	}
	f, err := vanilla.AssetsFS().Open(vanilla.StylesheetName)
	if err != nil {
		t.Fatalf("expected stylesheet in assets: %v", err)
	}
	f.Close()
}

func TestRenderYAMLBlueprintFixture(t *testing.T) {
	r, err := vanilla.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	doc := testsupport.LoadBlueprint(t, filepath.Join("testdata", "operations.yaml"))
	page := render.RenderDocument(doc, render.RowOptions{Step: 2, Index: 1})
	out, err := r.Render(context.Background(), page, render.RenderOptions{TotalSteps: 2})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	assertContains(t, string(out),
		`<h2>Operations</h2>`,
		`<input type="hidden" name="_step" value="2">`,
		`name="ops.1.start"`,
		`name="ops.1.finish"`,
		`name="batch.operator"`,
		`value="back" formnovalidate>Back</button>`,
	)
}
