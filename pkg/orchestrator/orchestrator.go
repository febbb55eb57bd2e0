package orchestrator

import (
	"context"
	"errors"
	"fmt"

	theme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	internalLoader "github.com/goliatone/go-batchform/internal/blueprint/loader"
	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/render"
	"github.com/goliatone/go-batchform/pkg/renderers/tui"
	"github.com/goliatone/go-batchform/pkg/renderers/vanilla"
	"github.com/goliatone/go-batchform/pkg/session"
)

const defaultRendererName = vanilla.Name

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects a custom blueprint loader.
func WithLoader(loader blueprint.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithLoaderOptions configures the built-in loader. Ignored when WithLoader
// supplies a loader.
func WithLoaderOptions(options ...blueprint.LoaderOption) Option {
	return func(o *Orchestrator) {
		o.loaderOptions = append(o.loaderOptions, options...)
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithThemeSelector sets the selector consulted for every request.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.themeSelector = selector
	}
}

// WithThemes builds a ManifestSelector from the given manifests.
func WithThemes(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) Option {
	return func(o *Orchestrator) {
		selector, err := NewManifestSelector(defaultTheme, defaultVariant, manifests...)
		if err != nil {
			o.initialiseErr = err
			return
		}
		o.themeSelector = selector
	}
}

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates the pipeline from blueprint document to rendered
// output. It applies defaults (built-in loader, vanilla and tui renderers)
// while remaining open to dependency injection.
type Orchestrator struct {
	loader          blueprint.Loader
	loaderOptions   []blueprint.LoaderOption
	registry        *render.Registry
	defaultRenderer string
	themeSelector   theme.ThemeSelector
	logger          *zap.Logger
	initialiseErr   error
	defaultsApplied bool
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes the inputs required to render one blueprint step.
type Request struct {
	// Source identifies where the blueprint lives. Optional when Document is
	// supplied.
	Source blueprint.Source

	// Document bypasses the loader when the caller already has a parsed
	// blueprint.
	Document *blueprint.Document

	// Step is the wizard step number the page belongs to.
	Step int

	// Index substitutes the {index} placeholder in field paths.
	Index int

	// Renderer names the renderer to use. Empty means the default renderer.
	Renderer string

	// Values pre-populates inputs. Ignored when Session is set.
	Values map[string]any

	// Errors is a server error payload mapped onto the page's bound paths.
	Errors map[string][]string

	// Session, when set, mounts the step bindings and supplies values,
	// derived read-only paths and current validation errors.
	Session *session.Session

	// ThemeName and ThemeVariant are passed to the theme selector.
	ThemeName    string
	ThemeVariant string

	// RenderOptions carries the remaining per-request renderer settings
	// (action, hidden fields, total steps).
	RenderOptions render.RenderOptions
}

// Generate executes the load → parse → row render → theme → renderer
// sequence and returns the rendered bytes.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := o.initialiseErr; err != nil {
		return nil, err
	}

	doc, err := o.resolveDocument(ctx, req)
	if err != nil {
		return nil, err
	}

	page := render.RenderDocument(doc, render.RowOptions{Index: req.Index, Step: req.Step})
	o.logger.Debug("page rendered",
		zap.String("template", page.TemplateID),
		zap.Int("step", req.Step),
		zap.Int("rows", len(page.Rows)),
		zap.Int("bindings", page.Bindings.Len()),
	)

	opts, err := o.renderOptions(req, page)
	if err != nil {
		return nil, err
	}

	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}

	output, err := renderer.Render(ctx, page, opts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

func (o *Orchestrator) resolveDocument(ctx context.Context, req Request) (blueprint.Document, error) {
	if req.Document != nil {
		return *req.Document, nil
	}
	if req.Source == nil {
		return blueprint.Document{}, errors.New("orchestrator: source or document is required")
	}
	raw, err := o.loader.Load(ctx, req.Source)
	if err != nil {
		return blueprint.Document{}, fmt.Errorf("orchestrator: load blueprint: %w", err)
	}
	doc, err := blueprint.Parse(raw)
	if err != nil {
		return blueprint.Document{}, fmt.Errorf("orchestrator: parse blueprint: %w", err)
	}
	return doc, nil
}

func (o *Orchestrator) renderOptions(req Request, page render.Page) (render.RenderOptions, error) {
	opts := req.RenderOptions
	if opts.Values == nil {
		opts.Values = req.Values
	}

	errs := make(map[string][]string)
	for path, messages := range opts.Errors {
		errs[path] = append(errs[path], messages...)
	}

	if sess := req.Session; sess != nil {
		if err := sess.Mount(req.Step, page.Bindings); err != nil {
			return render.RenderOptions{}, fmt.Errorf("orchestrator: mount step %d: %w", req.Step, err)
		}
		opts.Values = sess.Snapshot()
		opts.ReadOnly = append(opts.ReadOnly, sess.DerivedPaths()...)
		for path, messages := range sess.Errors().Map() {
			errs[path] = append(errs[path], messages...)
		}
		opts.HiddenFields = render.MergeHiddenFields(opts.HiddenFields, render.SessionField(sess.ID()))
	}

	mapping := render.MapErrorPayload(page.Bindings, req.Errors)
	for path, messages := range mapping.Fields {
		errs[path] = append(errs[path], messages...)
	}
	if len(errs) > 0 {
		opts.Errors = errs
	} else {
		opts.Errors = nil
	}
	opts.FormErrors = render.MergeFormErrors(opts.FormErrors, mapping.Form...)

	if opts.Theme == nil {
		cfg, err := o.themeConfig(req.ThemeName, req.ThemeVariant)
		if err != nil {
			return render.RenderOptions{}, err
		}
		opts.Theme = cfg
	}
	return opts, nil
}

func (o *Orchestrator) themeConfig(name, variant string) (*theme.RendererConfig, error) {
	if o.themeSelector == nil {
		return nil, nil
	}
	selection, err := o.themeSelector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: select theme: %w", err)
	}
	if selection == nil {
		return nil, nil
	}
	return RendererConfig(selection), nil
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}
	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	renderer, err := o.registry.Resolve("")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDefaults() {
	if o.defaultsApplied {
		return
	}

	if o.loader == nil {
		loader := internalLoader.New(blueprint.NewLoaderOptions(o.loaderOptions...))
		o.loader = loader
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		html, err := vanilla.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(html)
		}
		terminal, err := tui.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: tui renderer: %w", err)
		} else {
			o.registry.MustRegister(terminal)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}

	o.defaultsApplied = true
}
