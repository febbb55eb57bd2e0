package blueprint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a raw payload into a Document. JSON is tried first, then YAML
// with the same keys. The decoded tree is checked against the structural
// schema before items are interpreted.
func Parse(raw Raw) (Document, error) {
	doc, err := ParseBytes(raw.data)
	if err != nil {
		if loc := raw.Location(); loc != "" {
			return Document{}, fmt.Errorf("blueprint: parse %s: %w", loc, err)
		}
		return Document{}, err
	}
	doc.location = raw.Location()
	return doc, nil
}

// ParseBytes decodes a JSON or YAML payload into a Document.
func ParseBytes(data []byte) (Document, error) {
	tree, err := decodeTree(data)
	if err != nil {
		return Document{}, err
	}
	if err := CheckStructure(tree); err != nil {
		return Document{}, err
	}

	root, _ := tree.(map[string]any)
	header, _ := root["template"].(map[string]any)

	doc := Document{
		Template: Template{
			ID:   scalarString(header["template_id"]),
			Name: scalarString(header["template_name"]),
		},
	}

	rawItems, _ := root["items"].([]any)
	doc.Items = make([]Item, 0, len(rawItems))
	for idx, entry := range rawItems {
		obj, _ := entry.(map[string]any)
		item, err := decodeItem(obj)
		if err != nil {
			return Document{}, fmt.Errorf("blueprint: items[%d]: %w", idx, err)
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, nil
}

// MustParseBytes panics when the payload cannot be parsed. Useful for tests.
func MustParseBytes(data []byte) Document {
	doc, err := ParseBytes(data)
	if err != nil {
		panic(err)
	}
	return doc
}

// decodeTree returns the payload as a JSON-shaped generic tree. YAML input is
// normalised through a JSON round trip so both formats produce the same
// types (json.Number for numbers, map[string]any for objects).
func decodeTree(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("blueprint: document is empty")
	}

	if tree, err := decodeJSON(data); err == nil {
		return tree, nil
	}

	var fromYAML any
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		return nil, errors.New("blueprint: invalid JSON or YAML")
	}
	encoded, err := json.Marshal(fromYAML)
	if err != nil {
		return nil, fmt.Errorf("blueprint: normalise yaml: %w", err)
	}
	return decodeJSON(encoded)
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("blueprint: trailing data after document")
	}
	return out, nil
}

func decodeItem(obj map[string]any) (Item, error) {
	item := Item{
		ID:     scalarString(obj["item_id"]),
		Active: true,
	}

	if rawOrder, ok := obj["display_order"]; ok && rawOrder != nil {
		order, ok := intValue(rawOrder)
		if !ok {
			return Item{}, fmt.Errorf("display_order %v is not an integer", rawOrder)
		}
		item.DisplayOrder = order
	}

	if rawActive, ok := obj["is_active"]; ok && rawActive != nil {
		active, ok := boolValue(rawActive)
		if !ok {
			return Item{}, fmt.Errorf("is_active %v is not a boolean", rawActive)
		}
		item.Active = active
	}

	item.Config = decodeConfigValue(obj["config_json"])
	return item, nil
}

// decodeConfigValue accepts an embedded object or a JSON-encoded string. A
// string that does not decode yields UnknownConfig so the item renders nothing.
func decodeConfigValue(value any) Config {
	switch v := value.(type) {
	case map[string]any:
		return DecodeConfig(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return UnknownConfig{}
		}
		tree, err := decodeJSON([]byte(v))
		if err != nil {
			return UnknownConfig{Invalid: err.Error()}
		}
		if obj, ok := tree.(map[string]any); ok {
			return DecodeConfig(obj)
		}
	}
	return UnknownConfig{}
}

// NormalizeTag lowercases a row/column tag and folds separators to "_".
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.ReplaceAll(tag, "-", "_")
	return strings.Join(strings.Fields(tag), "_")
}

// DecodeConfig interprets a config object. Exactly one of row_type or
// column_type must be present; anything else yields UnknownConfig.
func DecodeConfig(obj map[string]any) Config {
	rowTag := NormalizeTag(scalarString(obj["row_type"]))
	colTag := NormalizeTag(scalarString(obj["column_type"]))

	switch {
	case rowTag != "" && colTag != "":
		return UnknownConfig{Tag: rowTag + "|" + colTag}
	case rowTag != "":
		return decodeRow(rowTag, obj)
	case colTag != "":
		return decodeColumn(colTag, obj)
	default:
		return UnknownConfig{}
	}
}

func decodeRow(tag string, obj map[string]any) Config {
	header := RowHeader{
		Label:    scalarString(obj["label"]),
		StdValue: scalarString(obj["std_value"]),
		Unit:     scalarString(obj["unit"]),
	}

	switch Kind(tag) {
	case KindSingleInput:
		return SingleInputRow{RowHeader: header, Input: singleInput(obj)}
	case KindSingleInputSpan:
		return SpanningInputRow{RowHeader: header, Input: singleInput(obj)}
	case KindSubRow:
		return SubRow{RowHeader: header}
	case KindDualInput:
		row := DualInputRow{RowHeader: header}
		inputs := inputList(obj["inputs"])
		for i := 0; i < len(row.Inputs) && i < len(inputs); i++ {
			row.Inputs[i] = inputs[i]
		}
		row.TimePair, _ = boolValue(obj["time_pair"])
		return row
	default:
		return UnknownConfig{Tag: tag}
	}
}

func decodeColumn(tag string, obj map[string]any) Config {
	title := scalarString(obj["title"])
	if title == "" {
		title = scalarString(obj["label"])
	}

	switch Kind(tag) {
	case KindDescription:
		text := scalarString(obj["text"])
		if text == "" {
			text = scalarString(obj["description"])
		}
		return DescriptionColumn{Title: title, Text: text}
	case KindSingleInputGroup:
		return SingleInputGroupColumn{
			Title: title,
			Unit:  scalarString(obj["unit"]),
			Input: singleInput(obj),
		}
	case KindMultiInputGroup:
		return MultiInputGroupColumn{
			Title:  title,
			Unit:   scalarString(obj["unit"]),
			Inputs: inputList(obj["inputs"]),
		}
	default:
		return UnknownConfig{Tag: tag}
	}
}

// singleInput reads the input either from a nested "input" object or from the
// flat keys of the config itself.
func singleInput(obj map[string]any) Input {
	if nested, ok := obj["input"].(map[string]any); ok {
		return decodeInput(nested)
	}
	in := decodeInput(obj)
	// Flat configs use the row label as the row header.
	in.Label = ""
	return in
}

func inputList(value any) []Input {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]Input, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			out = append(out, Input{})
			continue
		}
		out = append(out, decodeInput(obj))
	}
	return out
}

func decodeInput(obj map[string]any) Input {
	in := Input{
		Field:       strings.TrimSpace(scalarString(obj["field"])),
		Type:        InputType(strings.ToLower(strings.TrimSpace(scalarString(obj["input_type"])))),
		Label:       scalarString(obj["label"]),
		Placeholder: scalarString(obj["placeholder"]),
	}
	if in.Type == "" {
		in.Type = InputText
	}
	in.Required, _ = boolValue(obj["required"])
	if ruleObj, ok := obj["rule"].(map[string]any); ok {
		rule := decodeRule(ruleObj)
		in.Rule = &rule
	}
	return in
}

func decodeRule(obj map[string]any) Rule {
	rule := Rule{
		Kind:         RuleKind(NormalizeTag(scalarString(obj["type"]))),
		ErrorMessage: scalarString(obj["error_message"]),
	}
	if v, ok := floatValue(obj["min"]); ok {
		rule.Min = &v
	}
	if v, ok := floatValue(obj["max"]); ok {
		rule.Max = &v
	}
	return rule
}

// Fields returns every input field path declared by the config, in order.
func Fields(cfg Config) []string {
	var inputs []Input
	switch c := cfg.(type) {
	case SingleInputRow:
		inputs = []Input{c.Input}
	case SpanningInputRow:
		inputs = []Input{c.Input}
	case DualInputRow:
		inputs = c.Inputs[:]
	case SingleInputGroupColumn:
		inputs = []Input{c.Input}
	case MultiInputGroupColumn:
		inputs = c.Inputs
	}
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in.Field != "" {
			out = append(out, in.Field)
		}
	}
	return out
}

// Tags lists the recognised row and column tags in sorted order.
func Tags() []string {
	tags := []string{
		string(KindSingleInput),
		string(KindSingleInputSpan),
		string(KindSubRow),
		string(KindDualInput),
		string(KindDescription),
		string(KindSingleInputGroup),
		string(KindMultiInputGroup),
	}
	sort.Strings(tags)
	return tags
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(v)
	}
}

func floatValue(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func intValue(value any) (int, bool) {
	f, ok := floatValue(value)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// boolValue accepts JSON booleans, 0/1 numbers and common string spellings.
func boolValue(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case json.Number:
		switch v.String() {
		case "1":
			return true, true
		case "0":
			return false, true
		}
	case float64:
		switch v {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "y", "t":
			return true, true
		case "false", "0", "no", "n", "f", "":
			return false, true
		}
	}
	return false, false
}
