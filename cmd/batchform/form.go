package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	internalLoader "github.com/goliatone/go-batchform/internal/blueprint/loader"
	"github.com/goliatone/go-batchform/internal/config"
	"github.com/goliatone/go-batchform/internal/draft"
	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/orchestrator"
	"github.com/goliatone/go-batchform/pkg/session"
	"github.com/goliatone/go-batchform/pkg/state"
	"github.com/goliatone/go-batchform/pkg/wizard"
)

// form is a loaded form definition with every step mounted on one session.
type form struct {
	cfg      *config.Config
	session  *session.Session
	loader   *session.StepLoader
	wizard   *wizard.Controller
	statuses []session.StepStatus
}

func (a *app) loadConfig() (*config.Config, error) {
	if strings.TrimSpace(a.configPath) == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("config loaded",
		zap.String("path", a.configPath),
		zap.String("form", cfg.Name),
		zap.String("variant", cfg.Variant),
		zap.Int("steps", len(cfg.Steps)),
	)
	return cfg, nil
}

func (a *app) blueprintLoader(cfg *config.Config) blueprint.Loader {
	timeout, err := cfg.SubmitTimeout()
	if err != nil {
		timeout = config.DefaultSubmitTimeout
	}
	return internalLoader.New(blueprint.NewLoaderOptions(blueprint.WithHTTPFallback(timeout)))
}

// openForm builds the session, mounts every step and positions a wizard on
// step one. Step load failures are reported in statuses, not returned.
func (a *app) openForm(ctx context.Context, cfg *config.Config, values map[string]any, sessionID string) (*form, error) {
	variant, err := cfg.CalcVariant()
	if err != nil {
		return nil, err
	}
	windows, err := cfg.ScheduleOptions()
	if err != nil {
		return nil, err
	}

	opts := []session.Option{
		session.WithLogger(a.logger),
		session.WithVariant(variant),
	}
	if !cfg.Schedule.Empty() {
		opts = append(opts, session.WithSchedule(cfg.Schedule.Schedule, windows))
	}
	if sessionID != "" {
		opts = append(opts, session.WithID(sessionID))
	}
	sess, err := session.New(opts...)
	if err != nil {
		return nil, err
	}

	loader := session.NewStepLoader(sess, a.blueprintLoader(cfg), session.WithLoaderLogger(a.logger))
	statuses := loader.MountAll(ctx, cfg.StepSources())
	for _, status := range statuses {
		if status.Err != nil {
			a.logger.Warn("step failed to load", zap.Int("step", status.Step), zap.Error(status.Err))
		}
	}
	if err := seed(sess, values); err != nil {
		return nil, err
	}

	return &form{
		cfg:      cfg,
		session:  sess,
		loader:   loader,
		wizard:   wizard.New(cfg.WizardSteps(), sess),
		statuses: statuses,
	}, nil
}

func (f *form) status(step int) (session.StepStatus, bool) {
	return f.loader.Status(step)
}

func (f *form) failedSteps() []string {
	var out []string
	for _, status := range f.statuses {
		if status.Err != nil {
			out = append(out, fmt.Sprintf("Step %d failed to load: %v", status.Step, status.Err))
		}
	}
	return out
}

func (a *app) orchestrator(cfg *config.Config, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	base := []orchestrator.Option{orchestrator.WithLogger(a.logger)}
	if cfg != nil {
		base = append(base, orchestrator.WithLoader(a.blueprintLoader(cfg)))
		if manifest := cfg.Manifest(); manifest != nil {
			base = append(base, orchestrator.WithThemes(cfg.Theme.Name, cfg.Theme.Variant, manifest))
		}
	} else {
		base = append(base, orchestrator.WithLoaderOptions(blueprint.WithHTTPFallback(config.DefaultSubmitTimeout)))
	}
	return orchestrator.New(append(base, opts...)...)
}

func (a *app) draftStore(cfg *config.Config) (*draft.Store, error) {
	return draft.NewStore(cfg.ResolvePath(cfg.Draft.Dir))
}

// seed writes values through the session after the steps are mounted so the
// writes are validated. Nested maps are flattened; derived paths are skipped
// because they are recomputed.
func seed(sess *session.Session, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	flat := state.New(values).Flatten()
	writable := make(map[string]any, len(flat))
	for path, value := range flat {
		if sess.IsDerived(path) {
			continue
		}
		writable[path] = value
	}
	if _, err := sess.SetMany(writable); err != nil {
		return fmt.Errorf("seed values: %w", err)
	}
	return nil
}

// readValues decodes a JSON object of prefilled values. Empty paths yield
// nil.
func readValues(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode values %s: %w", path, err)
	}
	return values, nil
}

// parseAssignments turns "path=value" pairs into a map.
func parseAssignments(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want path=value", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

func mergeValues(base, extra map[string]any) map[string]any {
	if len(base) == 0 {
		return extra
	}
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
