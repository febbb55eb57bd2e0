// Package validation evaluates declarative blueprint rules against raw input
// values and lints blueprint documents.
package validation

import (
	"strings"

	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/numeric"
)

const (
	// DefaultNumberMessage is used when a rule has no error message of its own.
	DefaultNumberMessage = "Please enter a number"
	// DefaultRequiredMessage is used by Required when no message is supplied.
	DefaultRequiredMessage = "This field is required"
)

// Result is the outcome of evaluating one value. Message is empty when Valid.
type Result struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Pass is the successful Result.
var Pass = Result{Valid: true}

func fail(message string) Result {
	return Result{Message: message}
}

// Validate evaluates a numeric rule against raw. Empty values pass so that
// presence stays the concern of Required. The literals 0, "0" and "-" pass
// regardless of the rule. Unknown rule kinds pass.
func Validate(raw any, rule blueprint.Rule) Result {
	if isEmpty(raw) || isExempt(raw) {
		return Pass
	}

	message := rule.ErrorMessage
	if strings.TrimSpace(message) == "" {
		message = DefaultNumberMessage
	}

	value, ok := numeric.Parse(raw)
	if !ok {
		return fail(message)
	}

	switch rule.Kind {
	case blueprint.RuleRange:
		if rule.Min != nil && value < *rule.Min {
			return fail(message)
		}
		if rule.Max != nil && value > *rule.Max {
			return fail(message)
		}
	case blueprint.RuleMaxValue:
		if rule.Max != nil && value > *rule.Max {
			return fail(message)
		}
	}
	return Pass
}

// Required fails on nil, empty or whitespace-only values.
func Required(raw any, message string) Result {
	if !isEmpty(raw) {
		return Pass
	}
	if strings.TrimSpace(message) == "" {
		message = DefaultRequiredMessage
	}
	return fail(message)
}

// ValidateInput applies the checks declared by a bound input: Required when
// the input is marked required, then the rule when the input is numeric.
func ValidateInput(raw any, in blueprint.Input) Result {
	if in.Required {
		if res := Required(raw, ""); !res.Valid {
			return res
		}
	}
	if !in.Numeric() {
		return Pass
	}
	if in.Rule == nil {
		if isEmpty(raw) || isExempt(raw) {
			return Pass
		}
		if _, ok := numeric.Parse(raw); !ok {
			return fail(DefaultNumberMessage)
		}
		return Pass
	}
	return Validate(raw, *in.Rule)
}

func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case *string:
		return v == nil || strings.TrimSpace(*v) == ""
	}
	return false
}

func isExempt(raw any) bool {
	if s, ok := raw.(string); ok {
		switch strings.TrimSpace(s) {
		case "0", "-":
			return true
		}
		return false
	}
	value, ok := numeric.Parse(raw)
	return ok && value == 0
}
