// Package blueprint models the declarative documents that describe one form
// step: its template header and the ordered items whose config selects a row
// or column rendering variant.
package blueprint

import "sort"

// IndexPlaceholder is substituted with the render index inside field paths.
const IndexPlaceholder = "{index}"

// Document is a parsed blueprint for a single form step.
type Document struct {
	Template Template `json:"template"`
	Items    []Item   `json:"items"`

	location string
}

// Location reports where the document was loaded from, if known.
func (d Document) Location() string {
	return d.location
}

// Template is the blueprint header.
type Template struct {
	ID   string `json:"template_id"`
	Name string `json:"template_name,omitempty"`
}

// Item is one blueprint entry. Config is decoded from config_json into one of
// the concrete Config variants; unrecognised shapes become UnknownConfig.
type Item struct {
	ID           string `json:"item_id"`
	DisplayOrder int    `json:"display_order"`
	Active       bool   `json:"is_active"`
	Config       Config `json:"-"`
}

// SortedItems returns the active items ordered by display order, then id.
func (d Document) SortedItems() []Item {
	out := make([]Item, 0, len(d.Items))
	for _, item := range d.Items {
		if !item.Active {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Kind is the normalised row_type/column_type tag.
type Kind string

const (
	KindSingleInput      Kind = "single_input"
	KindSingleInputSpan  Kind = "single_input_span"
	KindSubRow           Kind = "sub_row"
	KindDualInput        Kind = "dual_input"
	KindDescription      Kind = "description"
	KindSingleInputGroup Kind = "single_input_group"
	KindMultiInputGroup  Kind = "multi_input_group"
	KindUnknown          Kind = "unknown"
)

// Config is the closed set of item configurations. Only types declared in this
// package implement it.
type Config interface {
	Kind() Kind
	sealed()
}

// InputType describes how a bound input is parsed and validated.
type InputType string

const (
	InputNumber InputType = "number"
	InputText   InputType = "text"
	InputTime   InputType = "time"
)

// Input describes one bound input inside a row or column.
type Input struct {
	Field       string    `json:"field"`
	Type        InputType `json:"input_type,omitempty"`
	Label       string    `json:"label,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Rule        *Rule     `json:"rule,omitempty"`
}

// Numeric reports whether validation rules apply to the input.
func (in Input) Numeric() bool {
	return in.Type == InputNumber
}

// RowHeader carries the label/std-value/unit triple shared by row variants.
type RowHeader struct {
	Label    string `json:"label,omitempty"`
	StdValue string `json:"std_value,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

// SingleInputRow renders label, standard value, one input and the unit.
type SingleInputRow struct {
	RowHeader
	Input Input
}

// SpanningInputRow is a SingleInputRow whose input spans two physical rows.
type SpanningInputRow struct {
	RowHeader
	Input Input
}

// SubRow is a label-only row without a bound input.
type SubRow struct {
	RowHeader
}

// DualInputRow binds two inputs in one row. When TimePair is set the inputs
// are the start (index 0) and finish (index 1) of an operation record.
type DualInputRow struct {
	RowHeader
	Inputs   [2]Input
	TimePair bool
}

// DescriptionColumn is static text.
type DescriptionColumn struct {
	Title string
	Text  string
}

// SingleInputGroupColumn is a titled column with one input.
type SingleInputGroupColumn struct {
	Title string
	Unit  string
	Input Input
}

// MultiInputGroupColumn is a titled column with several inputs.
type MultiInputGroupColumn struct {
	Title  string
	Unit   string
	Inputs []Input
}

// UnknownConfig keeps the original tag of a config that no variant handles.
// Invalid holds the decode error when config_json was not valid JSON.
type UnknownConfig struct {
	Tag     string
	Invalid string
}

func (SingleInputRow) Kind() Kind         { return KindSingleInput }
func (SpanningInputRow) Kind() Kind       { return KindSingleInputSpan }
func (SubRow) Kind() Kind                 { return KindSubRow }
func (DualInputRow) Kind() Kind           { return KindDualInput }
func (DescriptionColumn) Kind() Kind      { return KindDescription }
func (SingleInputGroupColumn) Kind() Kind { return KindSingleInputGroup }
func (MultiInputGroupColumn) Kind() Kind  { return KindMultiInputGroup }
func (UnknownConfig) Kind() Kind          { return KindUnknown }

func (SingleInputRow) sealed()         {}
func (SpanningInputRow) sealed()       {}
func (SubRow) sealed()                 {}
func (DualInputRow) sealed()           {}
func (DescriptionColumn) sealed()      {}
func (SingleInputGroupColumn) sealed() {}
func (MultiInputGroupColumn) sealed()  {}
func (UnknownConfig) sealed()          {}

// RuleKind is the normalised validation rule type.
type RuleKind string

const (
	RuleRange    RuleKind = "range"
	RuleMaxValue RuleKind = "max_value"
)

// Rule is a declarative numeric validation rule. Kinds other than RuleRange
// and RuleMaxValue are kept verbatim and evaluate as passing.
type Rule struct {
	Kind         RuleKind `json:"type"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}
