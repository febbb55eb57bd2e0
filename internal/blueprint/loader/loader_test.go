package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-batchform/pkg/blueprint"
)

const payload = `{"template":{"template_id":"t"},"items":[]}`

func TestLoaderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "step.json")
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := New(blueprint.NewLoaderOptions())
	raw, err := l.Load(context.Background(), blueprint.SourceFromFile(path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(raw.Bytes()) != payload {
		t.Fatalf("unexpected payload %q", raw.Bytes())
	}
}

func TestLoaderFileRejectsExtension(t *testing.T) {
	l := New(blueprint.NewLoaderOptions())
	_, err := l.Load(context.Background(), blueprint.SourceFromFile("step.exe"))
	if err == nil || !strings.Contains(err.Error(), "unsupported extension") {
		t.Fatalf("expected extension error, got %v", err)
	}
}

func TestLoaderFS(t *testing.T) {
	files := fstest.MapFS{"steps/one.yaml": {Data: []byte(payload)}}
	l := New(blueprint.NewLoaderOptions(blueprint.WithFileSystem(files)))

	raw, err := l.Load(context.Background(), blueprint.SourceFromFS("/steps/one.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if raw.Location() != "/steps/one.yaml" {
		t.Fatalf("expected location to be preserved, got %q", raw.Location())
	}
}

func TestLoaderHTTPDisabledByDefault(t *testing.T) {
	l := New(blueprint.NewLoaderOptions())
	_, err := l.Load(context.Background(), blueprint.SourceFromURL("http://127.0.0.1/x.json"))
	if err == nil || !strings.Contains(err.Error(), "http support disabled") {
		t.Fatalf("expected http disabled error, got %v", err)
	}
}

func TestLoaderHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	l := New(blueprint.NewLoaderOptions(blueprint.WithHTTPFallback(time.Second)))

	raw, err := l.Load(context.Background(), blueprint.SourceFromURL(srv.URL+"/step.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(raw.Bytes()) != payload {
		t.Fatalf("unexpected payload %q", raw.Bytes())
	}

	if _, err := l.Load(context.Background(), blueprint.SourceFromURL(srv.URL+"/missing.json")); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestLoaderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := New(blueprint.NewLoaderOptions())
	if _, err := l.Load(ctx, blueprint.SourceFromFile("step.json")); err == nil {
		t.Fatalf("expected context error")
	}
}
