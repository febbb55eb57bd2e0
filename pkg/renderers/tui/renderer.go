package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/numeric"
	"github.com/goliatone/go-batchform/pkg/render"
	"github.com/goliatone/go-batchform/pkg/session"
	"github.com/goliatone/go-batchform/pkg/timerange"
	"github.com/goliatone/go-batchform/pkg/validation"
)

// Name is the registry name of the terminal renderer.
const Name = "tui"

// Renderer implements render.Renderer for terminal-driven sessions. Every
// bound input of the page is prompted in row order and written through the
// session so derived fields settle before the next prompt.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	session           *session.Session
	submitTransformer SubmitTransformer
	confirmSave       bool
	theme             Theme
}

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		driver:       NewSurveyDriver(),
		outputFormat: OutputFormatJSON,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		return nil, ErrNoDriver
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render prompts for every input of page and returns the settled values.
func (r *Renderer) Render(ctx context.Context, page render.Page, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, ErrNoDriver
	}

	sess, err := r.sessionFor(page, opts)
	if err != nil {
		return nil, err
	}

	if page.TemplateName != "" {
		if err := r.info(ctx, r.theme.InfoPrefix, page.TemplateName); err != nil {
			return nil, err
		}
	}
	for _, row := range page.Rows {
		if err := r.promptRow(ctx, sess, row, opts.Errors); err != nil {
			return nil, err
		}
	}

	for _, path := range sess.DerivedPaths() {
		if value, ok := sess.Get(path); ok && value != nil {
			if err := r.info(ctx, r.theme.InfoPrefix, fmt.Sprintf("%s = %s", path, stringValue(value))); err != nil {
				return nil, err
			}
		}
	}

	if r.confirmSave {
		ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Save these values?", Default: true})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAborted
		}
	}

	values := sess.Snapshot()
	if r.submitTransformer != nil {
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return r.serialize(values)
}

func (r *Renderer) sessionFor(page render.Page, opts render.RenderOptions) (*session.Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	sess, err := session.New(session.WithInitialValues(opts.Values))
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	if err := sess.Mount(page.Step, page.Bindings); err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	return sess, nil
}

func (r *Renderer) promptRow(ctx context.Context, sess *session.Session, row render.Row, prior map[string][]string) error {
	switch row.Kind {
	case blueprint.KindDescription:
		return r.info(ctx, r.theme.InfoPrefix, joinNonEmpty(": ", row.Title, row.Text))
	case blueprint.KindSubRow:
		return r.info(ctx, r.theme.InfoPrefix, joinNonEmpty(" ", row.Label, row.StdValue, row.Unit))
	}

	for _, in := range row.Inputs {
		if in.Path == "" || sess.IsDerived(in.Path) {
			continue
		}
		for _, msg := range prior[in.Path] {
			if err := r.info(ctx, r.theme.ErrorPrefix, fmt.Sprintf("%s: %s", in.Path, msg)); err != nil {
				return err
			}
		}
		if err := r.promptInput(ctx, sess, row, in); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) promptInput(ctx context.Context, sess *session.Session, row render.Row, in render.BoundInput) error {
	validate := inputValidator(in.Input)
	cfg := InputConfig{
		Message:   r.theme.PromptPrefix + promptLabel(row, in),
		Help:      promptHelp(row, in),
		Validator: validate,
	}

	for {
		current, _ := sess.Get(in.Path)
		cfg.Default = stringValue(current)

		answer, err := r.driver.Input(ctx, cfg)
		if err != nil {
			return err
		}
		answer = strings.TrimSpace(answer)

		if err := validate(answer); err != nil {
			if err := r.info(ctx, r.theme.ErrorPrefix, fmt.Sprintf("Invalid %s: %v", in.Path, err)); err != nil {
				return err
			}
			continue
		}

		var value any = answer
		if answer == "" {
			value = nil
		}
		if _, err := sess.Set(in.Path, value); err != nil {
			return fmt.Errorf("tui: %w", err)
		}

		// Cross-field checks only surface after the write.
		if msgs := sess.Errors().Messages(in.Path); len(msgs) > 0 {
			if err := r.info(ctx, r.theme.ErrorPrefix, fmt.Sprintf("Invalid %s: %s", in.Path, msgs[0])); err != nil {
				return err
			}
			continue
		}
		return nil
	}
}

func inputValidator(in blueprint.Input) func(string) error {
	return func(answer string) error {
		if in.Type == blueprint.InputTime && strings.TrimSpace(answer) != "" {
			if _, _, err := timerange.ParseClock(answer); err != nil {
				return errors.New(timerange.MessageMalformed)
			}
		}
		if res := validation.ValidateInput(answer, in); !res.Valid {
			return errors.New(res.Message)
		}
		return nil
	}
}

func promptLabel(row render.Row, in render.BoundInput) string {
	label := row.Label
	if label == "" {
		label = row.Title
	}
	if in.Label != "" {
		label = joinNonEmpty(" / ", label, in.Label)
	}
	if label == "" {
		label = in.Path
	}
	if row.Unit != "" {
		label += " (" + row.Unit + ")"
	}
	return label
}

func promptHelp(row render.Row, in render.BoundInput) string {
	var parts []string
	if row.StdValue != "" {
		parts = append(parts, "standard "+row.StdValue)
	}
	if in.Type == blueprint.InputTime {
		parts = append(parts, "HH:MM")
	}
	if in.Placeholder != "" {
		parts = append(parts, in.Placeholder)
	}
	return strings.Join(parts, ", ")
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func stringValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	}
	if s := numeric.FormatValue(v, -1); s != "" {
		return s
	}
	return fmt.Sprint(v)
}

func (r *Renderer) info(ctx context.Context, prefix, msg string) error {
	if msg == "" {
		return nil
	}
	return r.driver.Info(ctx, prefix+msg)
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			flatten(join(prefix, key), val, out)
		}
	case []any:
		for idx, val := range v {
			flatten(join(prefix, fmt.Sprint(idx)), val, out)
		}
	case nil:
	default:
		out.Set(prefix, stringValue(v))
	}
}

func prettyPrint(values map[string]any) string {
	lines := url.Values{}
	flatten("", values, lines)
	keys := make([]string, 0, len(lines))
	for key := range lines {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s\n", key, lines.Get(key))
	}
	return b.String()
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
