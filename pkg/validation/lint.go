package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-batchform/pkg/blueprint"
)

// Issue represents a blueprint problem with optional location metadata.
type Issue struct {
	Path    string `json:"path,omitempty"`
	ItemID  string `json:"item_id,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Warning bool   `json:"warning,omitempty"`
}

// LintResult captures blueprint lint outcomes. Warnings do not make a result
// invalid.
type LintResult struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

func (r *LintResult) add(issue Issue) {
	if !issue.Warning {
		r.Valid = false
	}
	r.Issues = append(r.Issues, issue)
}

// LintBlueprint parses raw and reports structural errors plus authoring
// mistakes that the renderer would otherwise silently tolerate.
func LintBlueprint(raw []byte) LintResult {
	result := LintResult{Valid: true}

	doc, err := blueprint.ParseBytes(raw)
	if err != nil {
		result.add(issueFromError(err))
		return result
	}
	LintDocument(doc, &result)
	return result
}

// LintDocument appends issues for an already parsed document.
func LintDocument(doc blueprint.Document, result *LintResult) {
	seenItems := map[string]struct{}{}
	seenFields := map[string]string{}

	for idx, item := range doc.Items {
		path := fmt.Sprintf("/items/%d", idx)
		if _, dup := seenItems[item.ID]; dup {
			result.add(Issue{Path: path, ItemID: item.ID, Message: "duplicate item_id"})
		}
		seenItems[item.ID] = struct{}{}

		if unknown, ok := item.Config.(blueprint.UnknownConfig); ok {
			if unknown.Invalid != "" {
				result.add(Issue{Path: path + "/config_json", ItemID: item.ID, Message: "config_json is not valid JSON: " + unknown.Invalid})
				continue
			}
			msg := "config has no recognised row_type or column_type"
			if unknown.Tag != "" {
				msg = fmt.Sprintf("unknown tag %q (known: %s)", unknown.Tag, strings.Join(blueprint.Tags(), ", "))
			}
			result.add(Issue{Path: path + "/config_json", ItemID: item.ID, Message: msg, Warning: true})
			continue
		}

		for _, in := range inputsOf(item.Config) {
			if in.Field == "" {
				result.add(Issue{Path: path + "/config_json", ItemID: item.ID, Message: "input is missing a field path"})
				continue
			}
			if owner, dup := seenFields[in.Field]; dup {
				result.add(Issue{Path: path, ItemID: item.ID, Field: in.Field, Message: "field already bound by item " + owner, Warning: true})
			} else {
				seenFields[in.Field] = item.ID
			}
			lintRule(in, path, item.ID, result)
		}

		if dual, ok := item.Config.(blueprint.DualInputRow); ok && dual.TimePair {
			for i, in := range dual.Inputs {
				if in.Type != blueprint.InputTime {
					result.add(Issue{
						Path:    fmt.Sprintf("%s/config_json/inputs/%d", path, i),
						ItemID:  item.ID,
						Field:   in.Field,
						Message: "time_pair inputs must use input_type time",
					})
				}
			}
		}
	}

	sort.SliceStable(result.Issues, func(i, j int) bool {
		return result.Issues[i].Path < result.Issues[j].Path
	})
}

func lintRule(in blueprint.Input, path, itemID string, result *LintResult) {
	if in.Rule == nil {
		return
	}
	rule := *in.Rule
	if !in.Numeric() {
		result.add(Issue{Path: path, ItemID: itemID, Field: in.Field, Message: "rule on non-numeric input is ignored", Warning: true})
		return
	}
	switch rule.Kind {
	case blueprint.RuleRange:
		if rule.Min == nil || rule.Max == nil {
			result.add(Issue{Path: path, ItemID: itemID, Field: in.Field, Message: "range rule needs min and max"})
		} else if *rule.Min > *rule.Max {
			result.add(Issue{Path: path, ItemID: itemID, Field: in.Field, Message: "range rule min exceeds max"})
		}
	case blueprint.RuleMaxValue:
		if rule.Max == nil {
			result.add(Issue{Path: path, ItemID: itemID, Field: in.Field, Message: "max_value rule needs max"})
		}
	default:
		result.add(Issue{Path: path, ItemID: itemID, Field: in.Field, Message: fmt.Sprintf("unknown rule type %q always passes", rule.Kind), Warning: true})
	}
}

func inputsOf(cfg blueprint.Config) []blueprint.Input {
	switch c := cfg.(type) {
	case blueprint.SingleInputRow:
		return []blueprint.Input{c.Input}
	case blueprint.SpanningInputRow:
		return []blueprint.Input{c.Input}
	case blueprint.DualInputRow:
		return c.Inputs[:]
	case blueprint.SingleInputGroupColumn:
		return []blueprint.Input{c.Input}
	case blueprint.MultiInputGroupColumn:
		return c.Inputs
	}
	return nil
}

func issueFromError(err error) Issue {
	if err == nil {
		return Issue{Message: "unknown error"}
	}
	var structErr *blueprint.StructureError
	if errors.As(err, &structErr) {
		return Issue{
			Path:    structErr.Pointer,
			Field:   fieldPathFromPointer(structErr.Pointer),
			Message: strings.TrimSpace(structErr.Reason),
		}
	}
	msg := strings.TrimSpace(err.Error())
	msg = strings.TrimPrefix(msg, "blueprint: ")
	return Issue{Message: msg}
}

func fieldPathFromPointer(pointer string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(pointer), "/")
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		parts[i] = strings.ReplaceAll(part, "~0", "~")
	}
	return strings.Join(parts, ".")
}
