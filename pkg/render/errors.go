package render

import (
	"sort"
	"strconv"
	"strings"
)

// ErrorMapping splits a server error payload into messages for bound paths and
// page-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates page-level messages, trimming whitespace and
// dropping duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return dedupe(combined)
}

// MapErrorPayload maps payload keys (JSON pointers, bracket or dot paths,
// optionally wrapped in body/data/payload segments) onto bound paths. The
// longest bound path or bound prefix wins. Keys that match nothing become
// page-level messages.
func MapErrorPayload(bindings *Bindings, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	known := knownPaths(bindings)

	for _, key := range sortedKeys(payload) {
		messages := dedupe(payload[key])
		if len(messages) == 0 {
			continue
		}
		if target, ok := matchPath(key, known); ok {
			mapping.Fields[target] = append(mapping.Fields[target], messages...)
			continue
		}
		mapping.Form = append(mapping.Form, messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = dedupe(mapping.Form)
	return mapping
}

// knownPaths holds every bound path plus each of its parent prefixes.
func knownPaths(bindings *Bindings) map[string]struct{} {
	known := make(map[string]struct{})
	for _, path := range bindings.Paths() {
		segments := strings.Split(path, ".")
		for end := 1; end <= len(segments); end++ {
			known[strings.Join(segments[:end], ".")] = struct{}{}
		}
	}
	return known
}

func matchPath(key string, known map[string]struct{}) (string, bool) {
	if pageLevelKey(key) {
		return "", false
	}
	segments := splitKey(key)
	if len(segments) == 0 {
		return "", false
	}

	best := ""
	for _, candidate := range candidates(segments) {
		for end := len(candidate); end > 0; end-- {
			path := strings.Join(candidate[:end], ".")
			if _, ok := known[path]; !ok {
				continue
			}
			if strings.Count(path, ".") > strings.Count(best, ".") || best == "" {
				best = path
			}
			break
		}
	}
	return best, best != ""
}

// splitKey normalises "#/body/ops/0/start", "$.ops[0].start" and
// "ops.0.start" into segments.
func splitKey(key string) []string {
	clean := strings.TrimSpace(key)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		out = append(out, strings.ReplaceAll(part, "~0", "~"))
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
	"values":     {},
}

// candidates returns the raw segments, the segments with leading wrappers
// removed, and both with numeric segments removed.
func candidates(segments []string) [][]string {
	unwrapped := segments
	for len(unwrapped) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(unwrapped[0])]; !ok {
			break
		}
		unwrapped = unwrapped[1:]
	}

	out := make([][]string, 0, 4)
	seen := make(map[string]struct{}, 4)
	for _, candidate := range [][]string{segments, unwrapped, withoutIndexes(segments), withoutIndexes(unwrapped)} {
		if len(candidate) == 0 {
			continue
		}
		id := strings.Join(candidate, ".")
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

func withoutIndexes(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func pageLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	}
	return false
}

func dedupe(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sortedKeys(payload map[string][]string) []string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
