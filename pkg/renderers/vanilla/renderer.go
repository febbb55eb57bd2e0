package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-batchform/pkg/render"
	rendertemplate "github.com/goliatone/go-batchform/pkg/render/template"
	gotemplate "github.com/goliatone/go-batchform/pkg/render/template/gotemplate"
)

// Name is the registry name of the HTML renderer.
const Name = "vanilla"

// PagePartial is the theme partial key that replaces FormTemplate.
const PagePartial = "forms.page"

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	policy           *bluemonday.Policy
	classes          ChromeClasses
	inlineStylesheet bool
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithLabelPolicy replaces the sanitizer applied to blueprint labels and
// description text. The default allows inline formatting only.
func WithLabelPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

// WithChromeClasses overrides the CSS classes of chrome elements.
func WithChromeClasses(classes ChromeClasses) Option {
	return func(cfg *config) {
		cfg.classes = classes
	}
}

// WithInlineStylesheet embeds the bundled stylesheet when the theme provides
// no asset URL for it.
func WithInlineStylesheet(enabled bool) Option {
	return func(cfg *config) {
		cfg.inlineStylesheet = enabled
	}
}

// Renderer renders a page as an HTML form.
type Renderer struct {
	templates        rendertemplate.TemplateRenderer
	policy           *bluemonday.Policy
	classes          map[string]any
	inlineStylesheet bool
}

// DefaultLabelPolicy allows the inline markup blueprint authors use in labels
// (sub/superscript units, emphasis, line breaks).
func DefaultLabelPolicy() *bluemonday.Policy {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("b", "strong", "i", "em", "u", "sub", "sup", "br", "small", "span")
	return policy
}

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS(), inlineStylesheet: true}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.policy == nil {
		cfg.policy = DefaultLabelPolicy()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{
		templates:        renderer,
		policy:           cfg.policy,
		classes:          cfg.classes.resolve(),
		inlineStylesheet: cfg.inlineStylesheet,
	}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func (r *Renderer) Render(ctx context.Context, page render.Page, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	name := FormTemplate
	if opts.Theme != nil {
		if partial := strings.TrimSpace(opts.Theme.Partials[PagePartial]); partial != "" {
			name = partial
		}
	}

	result, err := r.templates.RenderTemplate(name, r.view(page, opts))
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}
