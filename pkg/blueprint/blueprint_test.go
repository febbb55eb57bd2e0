package blueprint

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleJSON = `{
  "template": {"template_id": 42, "template_name": "Brine batch"},
  "items": [
    {"item_id": "b", "display_order": 2, "is_active": true,
     "config_json": "{\"row_type\":\"Single-Input\",\"label\":\"Total\",\"unit\":\"kg\",\"field\":\"weights.total\",\"input_type\":\"number\",\"rule\":{\"type\":\"range\",\"min\":\"0\",\"max\":500,\"error_message\":\"out of range\"}}"},
    {"item_id": "a", "display_order": 1,
     "config_json": {"row_type": "dual_input", "time_pair": true, "label": "Mixing",
       "inputs": [{"field": "ops.{index}.start", "input_type": "time"},
                  {"field": "ops.{index}.finish", "input_type": "time"}]}},
    {"item_id": "c", "display_order": 3, "is_active": "0",
     "config_json": {"column_type": "description", "text": "notes"}},
    {"item_id": "d", "display_order": 0, "config_json": {"row_type": "hologram"}},
    {"item_id": "e", "display_order": 4, "config_json": null}
  ]
}`

func TestParseBytesDecodesVariants(t *testing.T) {
	doc, err := ParseBytes([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if doc.Template.ID != "42" || doc.Template.Name != "Brine batch" {
		t.Fatalf("unexpected template: %+v", doc.Template)
	}

	byID := map[string]Item{}
	for _, item := range doc.Items {
		byID[item.ID] = item
	}

	minimum, maximum := 0.0, 500.0
	wantSingle := SingleInputRow{
		RowHeader: RowHeader{Label: "Total", Unit: "kg"},
		Input: Input{
			Field: "weights.total",
			Type:  InputNumber,
			Rule:  &Rule{Kind: RuleRange, Min: &minimum, Max: &maximum, ErrorMessage: "out of range"},
		},
	}
	if diff := cmp.Diff(wantSingle, byID["b"].Config); diff != "" {
		t.Fatalf("single input mismatch (-want +got):\n%s", diff)
	}

	dual, ok := byID["a"].Config.(DualInputRow)
	if !ok {
		t.Fatalf("expected DualInputRow, got %T", byID["a"].Config)
	}
	if !dual.TimePair || dual.Inputs[0].Field != "ops.{index}.start" || dual.Inputs[1].Type != InputTime {
		t.Fatalf("unexpected dual row: %+v", dual)
	}

	if byID["c"].Active {
		t.Fatalf("expected item c to be inactive")
	}
	if !byID["a"].Active {
		t.Fatalf("expected missing is_active to default to true")
	}
	if got := byID["d"].Config; got != (UnknownConfig{Tag: "hologram"}) {
		t.Fatalf("expected unknown config, got %#v", got)
	}
	if got := byID["e"].Config; got != (UnknownConfig{}) {
		t.Fatalf("expected unknown config for null, got %#v", got)
	}
}

func TestParseBytesKeepsItemsAroundInvalidConfig(t *testing.T) {
	raw := `{
  "template": {"template_id": "T1"},
  "items": [
    {"item_id": "good", "display_order": 1,
     "config_json": {"row_type": "single_input", "field": "weights.total", "input_type": "number"}},
    {"item_id": "bad", "display_order": 2, "config_json": "{bad"}
  ]
}`
	doc, err := ParseBytes([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Items) != 2 {
		t.Fatalf("expected both items, got %d", len(doc.Items))
	}
	if _, ok := doc.Items[0].Config.(SingleInputRow); !ok {
		t.Fatalf("expected SingleInputRow, got %T", doc.Items[0].Config)
	}
	unknown, ok := doc.Items[1].Config.(UnknownConfig)
	if !ok || unknown.Invalid == "" || unknown.Tag != "" {
		t.Fatalf("expected invalid unknown config, got %#v", doc.Items[1].Config)
	}
}

func TestSortedItemsOrdersActiveItems(t *testing.T) {
	doc := MustParseBytes([]byte(sampleJSON))

	var ids []string
	for _, item := range doc.SortedItems() {
		ids = append(ids, item.ID)
	}
	if diff := cmp.Diff([]string{"d", "a", "b", "e"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBytesAcceptsYAML(t *testing.T) {
	payload := []byte(`
template:
  template_id: T-1
items:
  - item_id: 1
    display_order: 1
    config_json:
      column_type: multi_input_group
      title: Readings
      inputs:
        - field: readings.ph
          input_type: number
        - field: readings.temp
          input_type: number
`)
	doc, err := ParseBytes(payload)
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	col, ok := doc.Items[0].Config.(MultiInputGroupColumn)
	if !ok {
		t.Fatalf("expected MultiInputGroupColumn, got %T", doc.Items[0].Config)
	}
	if diff := cmp.Diff([]string{"readings.ph", "readings.temp"}, Fields(col)); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if doc.Items[0].ID != "1" {
		t.Fatalf("expected numeric item id to stringify, got %q", doc.Items[0].ID)
	}
}

func TestParseBytesStructureErrors(t *testing.T) {
	cases := map[string]string{
		"missing template":  `{"items": []}`,
		"missing items":     `{"template": {"template_id": "x"}}`,
		"missing id":        `{"template": {}, "items": []}`,
		"missing item_id":   `{"template": {"template_id": "x"}, "items": [{"config_json": {}}]}`,
		"missing config":    `{"template": {"template_id": "x"}, "items": [{"item_id": "1"}]}`,
		"items not a list":  `{"template": {"template_id": "x"}, "items": {}}`,
		"template a string": `{"template": "x", "items": []}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBytes([]byte(payload))
			if !errors.Is(err, ErrInvalidStructure) {
				t.Fatalf("expected ErrInvalidStructure, got %v", err)
			}
			var structErr *StructureError
			if !errors.As(err, &structErr) {
				t.Fatalf("expected StructureError, got %T", err)
			}
			if structErr.Reason == "" {
				t.Fatalf("expected reason to be populated")
			}
		})
	}
}

func TestParseBytesRejectsGarbage(t *testing.T) {
	if _, err := ParseBytes([]byte("   ")); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := ParseBytes([]byte("{not json: [")); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}

func TestDecodeConfigAmbiguousTags(t *testing.T) {
	cfg := DecodeConfig(map[string]any{"row_type": "sub_row", "column_type": "description"})
	if cfg.Kind() != KindUnknown {
		t.Fatalf("expected unknown kind when both tags are present, got %s", cfg.Kind())
	}
	if DecodeConfig(map[string]any{"label": "x"}).Kind() != KindUnknown {
		t.Fatalf("expected unknown kind without a tag")
	}
}

func TestNormalizeTag(t *testing.T) {
	cases := map[string]string{
		"Single-Input":       "single_input",
		" multi input group": "multi_input_group",
		"SUB_ROW":            "sub_row",
	}
	for in, want := range cases {
		if got := NormalizeTag(in); got != want {
			t.Fatalf("NormalizeTag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRecordsLocation(t *testing.T) {
	raw := MustNewRaw(SourceFromFS("steps/one.json"), []byte(sampleJSON))
	doc, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Location() != "steps/one.json" {
		t.Fatalf("expected location to be recorded, got %q", doc.Location())
	}
}

func TestSourceFor(t *testing.T) {
	if SourceFor("") != nil {
		t.Fatalf("expected nil source for empty location")
	}
	if got := SourceFor("https://example.com/bp.json").Kind(); got != SourceKindURL {
		t.Fatalf("expected url source, got %s", got)
	}
	if got := SourceFor("./bp.json").Kind(); got != SourceKindFile {
		t.Fatalf("expected file source, got %s", got)
	}
}
