package batchform

import (
	"io/fs"

	vanilla "github.com/goliatone/go-batchform/pkg/renderers/vanilla"
)

// EmbeddedTemplates exposes the built-in vanilla renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// EmbeddedAssets exposes the vanilla stylesheet so applications can serve it:
//
//	mux.Handle("/batchform/",
//	  http.StripPrefix("/batchform/",
//	    http.FileServerFS(batchform.EmbeddedAssets()),
//	  ),
//	)
func EmbeddedAssets() fs.FS {
	return vanilla.AssetsFS()
}
