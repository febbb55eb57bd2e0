package loader

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/goliatone/go-batchform/pkg/blueprint"
)

// Loader implements blueprint.Loader by delegating to file, fs.FS, or HTTP
// strategies.
type Loader struct {
	fs        fs.FS
	http      *http.Client
	allowHTTP bool
	timeout   time.Duration
}

var _ blueprint.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options blueprint.LoaderOptions) *Loader {
	timeout := options.RequestTimeout

	var httpClient *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		httpClient = &clone
	case options.AllowHTTPFallback:
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Loader{
		fs:        options.FileSystem,
		http:      httpClient,
		allowHTTP: httpClient != nil,
		timeout:   timeout,
	}
}

// Load fetches the payload behind src and wraps it in a blueprint.Raw.
func (l *Loader) Load(ctx context.Context, src blueprint.Source) (blueprint.Raw, error) {
	if src == nil {
		return blueprint.Raw{}, errors.New("blueprint loader: source is nil")
	}

	var (
		data []byte
		err  error
	)

	switch src.Kind() {
	case blueprint.SourceKindFile:
		data, err = loadFile(ctx, src.Location())
	case blueprint.SourceKindFS:
		data, err = loadFromFS(ctx, l.fs, src.Location())
	case blueprint.SourceKindURL:
		if !l.allowHTTP {
			return blueprint.Raw{}, errors.New("blueprint loader: http support disabled")
		}
		data, err = loadHTTP(ctx, l.http, src.Location(), l.timeout)
	default:
		err = errors.New("blueprint loader: unsupported source kind")
	}
	if err != nil {
		return blueprint.Raw{}, err
	}

	return blueprint.NewRaw(src, data)
}
