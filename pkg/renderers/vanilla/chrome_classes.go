package vanilla

// ChromeClass is a typed identifier for semantic chrome CSS classes.
type ChromeClass string

const (
	ClassForm    ChromeClass = "batchform-form"
	ClassHeader  ChromeClass = "batchform-header"
	ClassSteps   ChromeClass = "batchform-steps"
	ClassErrors  ChromeClass = "batchform-errors"
	ClassGrid    ChromeClass = "batchform-grid"
	ClassRow     ChromeClass = "batchform-row"
	ClassField   ChromeClass = "batchform-field"
	ClassInvalid ChromeClass = "batchform-invalid"
	ClassError   ChromeClass = "batchform-error"
	ClassActions ChromeClass = "batchform-actions"
)

// ChromeClasses overrides the class attribute of each chrome element. Empty
// entries fall back to the Class* defaults.
type ChromeClasses struct {
	Form    string
	Header  string
	Steps   string
	Errors  string
	Grid    string
	Row     string
	Field   string
	Invalid string
	Error   string
	Actions string
}

func (c ChromeClasses) resolve() map[string]any {
	pick := func(override string, def ChromeClass) string {
		if cleaned := sanitizeClassList(override); cleaned != "" {
			return cleaned
		}
		return string(def)
	}
	return map[string]any{
		"form":    pick(c.Form, ClassForm),
		"header":  pick(c.Header, ClassHeader),
		"steps":   pick(c.Steps, ClassSteps),
		"errors":  pick(c.Errors, ClassErrors),
		"grid":    pick(c.Grid, ClassGrid),
		"row":     pick(c.Row, ClassRow),
		"field":   pick(c.Field, ClassField),
		"invalid": pick(c.Invalid, ClassInvalid),
		"error":   pick(c.Error, ClassError),
		"actions": pick(c.Actions, ClassActions),
	}
}
