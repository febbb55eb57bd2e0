// Package wizard gates multi-step form navigation on scoped validation.
package wizard

import "strings"

// GenericMessage is surfaced when no specific or step default message exists.
const GenericMessage = "Please correct the highlighted fields before continuing"

// Step declares the fields validated before leaving a step.
type Step struct {
	Number         int
	Fields         []string
	DefaultMessage string
}

// Owns reports whether path is one of the step's fields or nested under one.
func (s Step) Owns(path string) bool {
	for _, field := range s.Fields {
		if path == field || strings.HasPrefix(path, field+".") {
			return true
		}
	}
	return false
}

// Validator runs validation and returns the resulting failures. Validate
// scopes to the given paths and everything under them.
type Validator interface {
	Validate(paths ...string) *ErrorTree
	ValidateAll() *ErrorTree
}

// Notice is the outcome of a navigation request. OK is false when the
// transition was refused; Message then explains why.
type Notice struct {
	OK      bool
	Step    int
	Path    string
	Message string
}

// Controller tracks the current step. It is not safe for concurrent use.
type Controller struct {
	steps     []Step
	validator Validator
	current   int
}

// New builds a controller positioned on step 1. Steps are numbered by
// position when Number is zero.
func New(steps []Step, validator Validator) *Controller {
	normalized := make([]Step, len(steps))
	for i, step := range steps {
		if step.Number == 0 {
			step.Number = i + 1
		}
		step.Fields = append([]string(nil), step.Fields...)
		normalized[i] = step
	}
	return &Controller{steps: normalized, validator: validator, current: 1}
}

// Step returns the current step number.
func (c *Controller) Step() int {
	return c.current
}

// Total returns the number of steps, never less than one.
func (c *Controller) Total() int {
	if len(c.steps) == 0 {
		return 1
	}
	return len(c.steps)
}

// Current returns the current step definition.
func (c *Controller) Current() Step {
	if len(c.steps) == 0 {
		return Step{Number: 1}
	}
	return c.steps[c.current-1]
}

// Steps returns a copy of the step definitions.
func (c *Controller) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// Next validates the current step and advances on success. The last step
// stays put.
func (c *Controller) Next() Notice {
	step := c.Current()

	if c.validator != nil {
		if len(step.Fields) > 0 {
			tree := c.validator.Validate(step.Fields...)
			for _, field := range step.Fields {
				if path, msg, ok := tree.FirstUnder(field); ok {
					return Notice{Step: c.current, Path: path, Message: msg}
				}
			}
			if path, _, ok := tree.firstFailure(""); ok {
				return Notice{Step: c.current, Path: path, Message: c.fallback(step)}
			}
		} else {
			tree := c.validator.ValidateAll()
			if path, msg, ok := tree.First(); ok {
				return Notice{Step: c.current, Path: path, Message: msg}
			}
			if path, _, ok := tree.firstFailure(""); ok {
				return Notice{Step: c.current, Path: path, Message: c.fallback(step)}
			}
		}
	}

	if c.current < c.Total() {
		c.current++
	}
	return Notice{OK: true, Step: c.current}
}

// Back moves one step back without validating.
func (c *Controller) Back() Notice {
	if c.current > 1 {
		c.current--
	}
	return Notice{OK: true, Step: c.current}
}

// SubmitValidate validates the whole form. On failure the first specific
// message wins; otherwise the default message of the step owning the first
// failed path is used.
func (c *Controller) SubmitValidate() Notice {
	if c.validator == nil {
		return Notice{OK: true, Step: c.current}
	}
	tree := c.validator.ValidateAll()
	if tree.Empty() {
		return Notice{OK: true, Step: c.current}
	}
	if path, msg, ok := tree.First(); ok {
		owner, _ := c.owner(path)
		return Notice{Step: owner.Number, Path: path, Message: msg}
	}

	path, _, _ := tree.firstFailure("")
	owner, ok := c.owner(path)
	msg := GenericMessage
	if ok && owner.DefaultMessage != "" {
		msg = owner.DefaultMessage
	}
	return Notice{Step: owner.Number, Path: path, Message: msg}
}

// owner returns the first step that owns path.
func (c *Controller) owner(path string) (Step, bool) {
	for _, step := range c.steps {
		if step.Owns(path) {
			return step, true
		}
	}
	return Step{}, false
}

func (c *Controller) fallback(step Step) string {
	if step.DefaultMessage != "" {
		return step.DefaultMessage
	}
	return GenericMessage
}
