package vanilla

import (
	"strings"

	"github.com/goliatone/go-batchform/pkg/blueprint"
)

func controlID(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	return "bf-" + strings.ReplaceAll(trimmed, ".", "-")
}

func labelID(path string) string {
	id := controlID(path)
	if id == "" {
		return ""
	}
	return id + "-label"
}

// sanitizeClassList keeps class tokens made of letters, digits, '-' and '_'.
func sanitizeClassList(value string) string {
	tokens := strings.Fields(value)
	keep := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if validClassToken(token) {
			keep = append(keep, token)
		}
	}
	return strings.Join(keep, " ")
}

func validClassToken(token string) bool {
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return token != ""
}

// htmlInputType maps a blueprint input type to the HTML input type and
// inputmode attribute. Numbers use a text input so exempt markers such as
// "-" remain enterable.
func htmlInputType(t blueprint.InputType) (string, string) {
	switch t {
	case blueprint.InputNumber:
		return "text", "decimal"
	case blueprint.InputTime:
		return "time", ""
	default:
		return "text", ""
	}
}
