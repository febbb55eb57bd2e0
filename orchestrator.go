package batchform

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/orchestrator"
	"github.com/goliatone/go-batchform/pkg/render"
	"github.com/goliatone/go-batchform/pkg/session"
	theme "github.com/goliatone/go-theme"
)

// RenderOptions describes per-request overrides that renderers can use to
// prefill values or surface server-side validation errors.
type RenderOptions = render.RenderOptions

// Request aliases orchestrator.Request for callers driving Generate directly.
type Request = orchestrator.Request

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// GenerateHTML loads the blueprint at source, renders the given step and
// returns the output of the named renderer. It is the simplest entry point
// for callers that just want HTML.
func GenerateHTML(ctx context.Context, source blueprint.Source, step int, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		Source:   source,
		Step:     step,
		Renderer: rendererName,
	})
}

// GenerateHTMLFromDocument renders a pre-parsed document, bypassing the
// loader stage.
func GenerateHTMLFromDocument(ctx context.Context, doc blueprint.Document, step int, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		Document: &doc,
		Step:     step,
		Renderer: rendererName,
	})
}

// GenerateSessionHTML renders doc against sess so derived fields are read-only
// and the session's current errors are shown inline.
func GenerateSessionHTML(ctx context.Context, sess *session.Session, doc blueprint.Document, step int, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	return gen.Generate(ctx, orchestrator.Request{
		Document: &doc,
		Step:     step,
		Session:  sess,
	})
}

// WithThemeSelector passes a go-theme selector through to the orchestrator so
// theme/variant choices can be resolved ahead of rendering.
func WithThemeSelector(selector theme.ThemeSelector) orchestrator.Option {
	return orchestrator.WithThemeSelector(selector)
}

// WithThemes registers inline manifests with the orchestrator.
func WithThemes(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) orchestrator.Option {
	return orchestrator.WithThemes(defaultTheme, defaultVariant, manifests...)
}

// WithLoaderFS resolves fs sources against files.
func WithLoaderFS(files fs.FS) orchestrator.Option {
	return orchestrator.WithLoaderOptions(blueprint.WithFileSystem(files))
}
