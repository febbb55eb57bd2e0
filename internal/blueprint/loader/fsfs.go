package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

func loadFromFS(ctx context.Context, files fs.FS, name string) ([]byte, error) {
	if name == "" {
		return nil, errors.New("blueprint loader: fs path is required")
	}
	if files == nil {
		return nil, errors.New("blueprint loader: fs is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// fs.FS names are slash separated and unrooted.
	clean := strings.TrimPrefix(path.Clean(strings.ReplaceAll(name, "\\", "/")), "/")
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("blueprint loader: invalid fs path %q", name)
	}
	if err := checkExt(clean); err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(files, clean)
	if err != nil {
		return nil, fmt.Errorf("blueprint loader: %w", err)
	}
	if len(data) > maxPayload {
		return nil, fmt.Errorf("blueprint loader: %s exceeds %d bytes", name, maxPayload)
	}
	return data, nil
}
