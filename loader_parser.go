package batchform

import (
	internalLoader "github.com/goliatone/go-batchform/internal/blueprint/loader"
	"github.com/goliatone/go-batchform/pkg/blueprint"
)

// NewLoader constructs a loader using the internal implementation while keeping
// the concrete type hidden from consumers.
func NewLoader(options ...blueprint.LoaderOption) blueprint.Loader {
	cfg := blueprint.NewLoaderOptions(options...)
	return internalLoader.New(cfg)
}

// Parse decodes a loaded blueprint.
func Parse(raw blueprint.Raw) (blueprint.Document, error) {
	return blueprint.Parse(raw)
}
