package vanilla

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/numeric"
	"github.com/goliatone/go-batchform/pkg/render"
	"github.com/goliatone/go-batchform/pkg/state"
)

// view builds the template context. Every nested value is a plain map or
// slice so templates address keys directly.
func (r *Renderer) view(page render.Page, opts render.RenderOptions) map[string]any {
	values := newValueLookup(opts.Values)
	readOnly := make(map[string]bool, len(opts.ReadOnly))
	for _, path := range opts.ReadOnly {
		readOnly[path] = true
	}

	rows := make([]any, 0, len(page.Rows))
	for _, row := range page.Rows {
		rows = append(rows, r.rowView(row, values, opts.Errors, readOnly))
	}

	hidden := render.MergeHiddenFields(opts.HiddenFields, render.PageFields(page)...)
	hiddenViews := make([]any, 0, len(hidden))
	for _, field := range render.SortedHiddenFields(hidden) {
		hiddenViews = append(hiddenViews, map[string]any{"name": field.Name, "value": field.Value})
	}

	formErrors := make([]any, 0, len(opts.FormErrors))
	for _, msg := range opts.FormErrors {
		formErrors = append(formErrors, msg)
	}

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "POST"
	}

	data := map[string]any{
		"template_id": page.TemplateID,
		"title":       r.sanitize(page.TemplateName),
		"step":        page.Step,
		"total_steps": opts.TotalSteps,
		"action":      opts.Action,
		"method":      method,
		"rows":        rows,
		"hidden":      hiddenViews,
		"form_errors": formErrors,
		"classes":     r.classes,
		"css_vars":    "",
		"tokens":      map[string]any{},
	}

	if opts.Theme != nil {
		data["css_vars"] = cssVarsStyle(opts.Theme.CSSVars)
		tokens := make(map[string]any, len(opts.Theme.Tokens))
		for key, value := range opts.Theme.Tokens {
			tokens[key] = value
		}
		data["tokens"] = tokens
		data["theme"] = opts.Theme.Theme
		data["variant"] = opts.Theme.Variant
		if opts.Theme.AssetURL != nil {
			data["stylesheet_url"] = opts.Theme.AssetURL(StylesheetName)
		}
	}
	if url, _ := data["stylesheet_url"].(string); url == "" && r.inlineStylesheet {
		data["stylesheet"] = defaultStylesheet()
	}
	return data
}

func (r *Renderer) rowView(row render.Row, values valueLookup, errs map[string][]string, readOnly map[string]bool) map[string]any {
	inputs := make([]any, 0, len(row.Inputs))
	for _, in := range row.Inputs {
		inputs = append(inputs, r.inputView(in, values, errs, readOnly))
	}

	kind := string(row.Kind)
	return map[string]any{
		"item_id":    row.ItemID,
		"kind":       kind,
		"kind_class": "batchform-" + strings.ReplaceAll(kind, "_", "-"),
		"column":     row.IsColumn(),
		"label":      r.sanitize(row.Label),
		"std_value":  row.StdValue,
		"unit":       r.sanitize(row.Unit),
		"title":      r.sanitize(row.Title),
		"text":       r.sanitize(row.Text),
		"rowspan":    row.RowSpan,
		"time_pair":  row.TimePair,
		"inputs":     inputs,
	}
}

func (r *Renderer) inputView(in render.BoundInput, values valueLookup, errs map[string][]string, readOnly map[string]bool) map[string]any {
	if in.Path == "" {
		return map[string]any{"empty": true}
	}
	inputType, inputMode := htmlInputType(in.Type)

	messages := make([]any, 0, len(errs[in.Path]))
	for _, msg := range errs[in.Path] {
		messages = append(messages, msg)
	}

	return map[string]any{
		"empty":       false,
		"id":          controlID(in.Path),
		"label_id":    labelID(in.Path),
		"name":        in.Path,
		"label":       r.sanitize(in.Label),
		"type":        inputType,
		"inputmode":   inputMode,
		"placeholder": in.Placeholder,
		"required":    in.Required,
		"readonly":    readOnly[in.Path],
		"value":       values.display(in.Path, in.Type),
		"errors":      messages,
	}
}

func (r *Renderer) sanitize(value string) string {
	if value == "" {
		return ""
	}
	return strings.TrimSpace(r.policy.Sanitize(value))
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimSpace(key)
		if !strings.HasPrefix(name, "--") {
			name = "--" + name
		}
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.TrimSpace(vars[key])))
	}
	return strings.Join(parts, "; ")
}

// valueLookup resolves prefilled values by exact key first, then as a dotted
// path through nested maps.
type valueLookup struct {
	flat map[string]any
	doc  *state.Document
}

func newValueLookup(values map[string]any) valueLookup {
	return valueLookup{flat: values, doc: state.New(values)}
}

func (v valueLookup) get(path string) (any, bool) {
	if value, ok := v.flat[path]; ok {
		return value, true
	}
	return v.doc.Get(path)
}

func (v valueLookup) display(path string, t blueprint.InputType) string {
	value, ok := v.get(path)
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	if t == blueprint.InputNumber || t == "" {
		if formatted := numeric.FormatValue(value, -1); formatted != "" {
			return formatted
		}
	}
	return fmt.Sprint(value)
}
