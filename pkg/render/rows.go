package render

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-batchform/pkg/blueprint"
)

// Page is the rendered form of one blueprint step.
type Page struct {
	TemplateID   string
	TemplateName string
	Step         int
	Index        int
	Rows         []Row
	Bindings     *Bindings
}

// Row is one rendered blueprint item. Which fields are populated depends on
// Kind; row kinds use Label/StdValue/Unit, column kinds use Title/Text.
type Row struct {
	ItemID   string
	Kind     blueprint.Kind
	Label    string
	StdValue string
	Unit     string
	Title    string
	Text     string
	RowSpan  int
	TimePair bool
	Inputs   []BoundInput
}

// IsColumn reports whether the row comes from a column_type config.
func (r Row) IsColumn() bool {
	switch r.Kind {
	case blueprint.KindDescription, blueprint.KindSingleInputGroup, blueprint.KindMultiInputGroup:
		return true
	}
	return false
}

// BoundInput is an input with its placeholder-free path.
type BoundInput struct {
	Path  string
	Index int
	blueprint.Input
}

// RowOptions configures RenderItems.
type RowOptions struct {
	// Index replaces blueprint.IndexPlaceholder in field paths.
	Index int
	// Step tags registered bindings with their owning step.
	Step int
	// Bindings receives registrations. A new registry is created when nil.
	Bindings *Bindings
}

// ResolvePath substitutes the index placeholder in a blueprint field path.
func ResolvePath(field string, index int) string {
	if !strings.Contains(field, blueprint.IndexPlaceholder) {
		return field
	}
	return strings.ReplaceAll(field, blueprint.IndexPlaceholder, strconv.Itoa(index))
}

// RenderDocument renders the document's active items.
func RenderDocument(doc blueprint.Document, opts RowOptions) Page {
	page := RenderItems(doc.Items, opts)
	page.TemplateID = doc.Template.ID
	page.TemplateName = doc.Template.Name
	return page
}

// RenderItems produces one row per active item in display order and registers
// every bound input. Unknown configs produce no row.
func RenderItems(items []blueprint.Item, opts RowOptions) Page {
	bindings := opts.Bindings
	if bindings == nil {
		bindings = NewBindings()
	}
	page := Page{Step: opts.Step, Index: opts.Index, Bindings: bindings}

	sorted := blueprint.Document{Items: items}.SortedItems()
	for _, item := range sorted {
		row, ok := renderItem(item, opts.Index)
		if !ok {
			continue
		}
		for _, in := range row.Inputs {
			bindings.Register(Binding{
				Path:     in.Path,
				ItemID:   item.ID,
				Kind:     row.Kind,
				Index:    in.Index,
				Input:    in.Input,
				TimePair: row.TimePair,
				Step:     opts.Step,
			})
		}
		if row.TimePair && len(row.Inputs) == 2 && row.Inputs[0].Path != "" && row.Inputs[1].Path != "" {
			bindings.registerPair(TimePair{ItemID: item.ID, Start: row.Inputs[0].Path, Finish: row.Inputs[1].Path})
		}
		page.Rows = append(page.Rows, row)
	}
	return page
}

func renderItem(item blueprint.Item, index int) (Row, bool) {
	row := Row{ItemID: item.ID, RowSpan: 1}
	if item.Config == nil {
		return Row{}, false
	}
	row.Kind = item.Config.Kind()

	switch cfg := item.Config.(type) {
	case blueprint.SingleInputRow:
		applyHeader(&row, cfg.RowHeader)
		row.Inputs = bind(index, cfg.Input)
	case blueprint.SpanningInputRow:
		applyHeader(&row, cfg.RowHeader)
		row.RowSpan = 2
		row.Inputs = bind(index, cfg.Input)
	case blueprint.SubRow:
		applyHeader(&row, cfg.RowHeader)
	case blueprint.DualInputRow:
		applyHeader(&row, cfg.RowHeader)
		row.TimePair = cfg.TimePair
		row.Inputs = bindAll(index, cfg.Inputs[:], true)
	case blueprint.DescriptionColumn:
		row.Title = cfg.Title
		row.Text = cfg.Text
	case blueprint.SingleInputGroupColumn:
		row.Title = cfg.Title
		row.Unit = cfg.Unit
		row.Inputs = bind(index, cfg.Input)
	case blueprint.MultiInputGroupColumn:
		row.Title = cfg.Title
		row.Unit = cfg.Unit
		row.Inputs = bindAll(index, cfg.Inputs, false)
	case blueprint.UnknownConfig:
		return Row{}, false
	default:
		return Row{}, false
	}
	return row, true
}

func applyHeader(row *Row, header blueprint.RowHeader) {
	row.Label = header.Label
	row.StdValue = header.StdValue
	row.Unit = header.Unit
}

func bind(index int, in blueprint.Input) []BoundInput {
	if in.Field == "" {
		return nil
	}
	return []BoundInput{{Path: ResolvePath(in.Field, index), Index: 0, Input: in}}
}

// bindAll keeps positional indexes. Dual rows keep both slots even when one is
// unbound so Index 0/1 stays meaningful.
func bindAll(index int, inputs []blueprint.Input, keepSlots bool) []BoundInput {
	out := make([]BoundInput, 0, len(inputs))
	for i, in := range inputs {
		if in.Field == "" && !keepSlots {
			continue
		}
		path := ""
		if in.Field != "" {
			path = ResolvePath(in.Field, index)
		}
		out = append(out, BoundInput{Path: path, Index: i, Input: in})
	}
	return out
}
