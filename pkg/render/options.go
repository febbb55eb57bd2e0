package render

import (
	theme "github.com/goliatone/go-theme"
)

// RenderOptions describe per-request data that renderers use to customise
// their output without mutating the page.
type RenderOptions struct {
	// Action and Method populate the HTML form element. Method defaults to POST.
	Action string
	Method string
	// Values pre-populates inputs. Keys may be nested maps or dotted paths.
	Values map[string]any
	// ReadOnly lists paths rendered without user input, typically derived
	// calculation outputs.
	ReadOnly []string
	// Errors surfaces inline messages keyed by bound path.
	Errors map[string][]string
	// FormErrors are page-level messages (unmatched payload keys, step load
	// failures).
	FormErrors []string
	// HiddenFields are emitted as hidden inputs in sorted order.
	HiddenFields map[string]string
	// Theme carries the resolved go-theme configuration, if any.
	Theme *theme.RendererConfig
	// TotalSteps enables step navigation chrome when greater than one.
	TotalSteps int
}
