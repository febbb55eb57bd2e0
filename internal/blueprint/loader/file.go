package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxPayload bounds every blueprint read regardless of strategy.
const maxPayload = 4 << 20

var supportedExt = map[string]struct{}{
	".json": {},
	".yaml": {},
	".yml":  {},
}

func checkExt(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return nil
	}
	if _, ok := supportedExt[ext]; !ok {
		return fmt.Errorf("blueprint loader: unsupported extension %q", ext)
	}
	return nil
}

func loadFile(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("blueprint loader: file path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkExt(path); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("blueprint loader: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("blueprint loader: %s is a directory", path)
	}
	if info.Size() > maxPayload {
		return nil, fmt.Errorf("blueprint loader: %s exceeds %d bytes", path, maxPayload)
	}
	return os.ReadFile(abs)
}
