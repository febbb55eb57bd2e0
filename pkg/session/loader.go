package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-batchform/pkg/blueprint"
	"github.com/goliatone/go-batchform/pkg/render"
)

// StepState is the lifecycle of one mounted step.
type StepState int

const (
	StepLoading StepState = iota + 1
	StepLoaded
	StepFailed
)

func (s StepState) String() string {
	switch s {
	case StepLoading:
		return "loading"
	case StepLoaded:
		return "loaded"
	case StepFailed:
		return "error"
	default:
		return "unmounted"
	}
}

// ErrStale is reported when a step was unmounted while its blueprint loaded.
var ErrStale = errors.New("session: step unmounted before load completed")

// StepError scopes a blueprint failure to its step.
type StepError struct {
	Step     int
	Location string
	Err      error
}

func (e *StepError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("step %d: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Location, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepStatus is the observable state of a step.
type StepStatus struct {
	Step     int
	State    StepState
	Document blueprint.Document
	Page     render.Page
	Err      error
}

// StepSource pairs a step number with its blueprint location.
type StepSource struct {
	Step   int
	Source blueprint.Source
}

// LoaderOption customises a StepLoader.
type LoaderOption func(*StepLoader)

// WithIndex sets the index substituted into field paths of loaded steps.
func WithIndex(index int) LoaderOption {
	return func(l *StepLoader) {
		l.index = index
	}
}

// WithConcurrency bounds MountAll fan-out. Values below one mean unbounded.
func WithConcurrency(n int) LoaderOption {
	return func(l *StepLoader) {
		l.limit = n
	}
}

// WithLoaderLogger sets the step loader logger.
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *StepLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

type slot struct {
	generation uint64
	status     StepStatus
}

// StepLoader fetches one blueprint per mounted step and mounts its bindings
// into the session. Loads are one-shot: a failed step stays failed until it is
// unmounted and mounted again.
type StepLoader struct {
	session *Session
	loader  blueprint.Loader
	index   int
	limit   int
	logger  *zap.Logger

	mu         sync.Mutex
	generation uint64
	slots      map[int]*slot
}

// NewStepLoader binds a loader to a session.
func NewStepLoader(session *Session, loader blueprint.Loader, opts ...LoaderOption) *StepLoader {
	l := &StepLoader{
		session: session,
		loader:  loader,
		logger:  zap.NewNop(),
		slots:   make(map[int]*slot),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Mount loads step from src and blocks until the step settles. Mounting a
// step that is already mounted returns its current status without fetching.
func (l *StepLoader) Mount(ctx context.Context, step int, src blueprint.Source) StepStatus {
	gen, status, fresh := l.begin(step)
	if !fresh {
		return status
	}

	location := ""
	if src != nil {
		location = src.Location()
	}
	doc, err := l.fetch(ctx, src)
	if err != nil {
		return l.finish(step, gen, StepStatus{
			Step:  step,
			State: StepFailed,
			Err:   &StepError{Step: step, Location: location, Err: err},
		})
	}

	page := render.RenderDocument(doc, render.RowOptions{Index: l.index, Step: step})
	return l.finish(step, gen, StepStatus{Step: step, State: StepLoaded, Document: doc, Page: page})
}

// Start mounts step in the background. The channel receives the settled
// status and is then closed.
func (l *StepLoader) Start(ctx context.Context, step int, src blueprint.Source) <-chan StepStatus {
	out := make(chan StepStatus, 1)
	go func() {
		defer close(out)
		out <- l.Mount(ctx, step, src)
	}()
	return out
}

// MountAll mounts every step concurrently. A failing step never cancels or
// affects its siblings; statuses are returned ordered by step.
func (l *StepLoader) MountAll(ctx context.Context, sources []StepSource) []StepStatus {
	statuses := make([]StepStatus, len(sources))

	var g errgroup.Group
	if l.limit > 0 {
		g.SetLimit(l.limit)
	}
	for i, src := range sources {
		g.Go(func() error {
			statuses[i] = l.Mount(ctx, src.Step, src.Source)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].Step < statuses[j].Step
	})
	return statuses
}

// Unmount forgets the step. A load still in flight is dropped when it
// completes.
func (l *StepLoader) Unmount(step int) {
	l.mu.Lock()
	_, mounted := l.slots[step]
	delete(l.slots, step)
	l.mu.Unlock()

	if mounted {
		l.session.Unmount(step)
		l.logger.Debug("step unmounted", zap.Int("step", step))
	}
}

// Status returns the state of step.
func (l *StepLoader) Status(step int) (StepStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[step]
	if !ok {
		return StepStatus{Step: step}, false
	}
	return s.status, true
}

// Statuses returns every mounted step ordered by number.
func (l *StepLoader) Statuses() []StepStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]StepStatus, 0, len(l.slots))
	for _, s := range l.slots {
		out = append(out, s.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out
}

func (l *StepLoader) begin(step int) (uint64, StepStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.slots[step]; ok {
		return existing.generation, existing.status, false
	}
	l.generation++
	s := &slot{generation: l.generation, status: StepStatus{Step: step, State: StepLoading}}
	l.slots[step] = s
	return s.generation, s.status, true
}

func (l *StepLoader) fetch(ctx context.Context, src blueprint.Source) (blueprint.Document, error) {
	if src == nil {
		return blueprint.Document{}, errors.New("session: blueprint source is required")
	}
	if l.loader == nil {
		return blueprint.Document{}, errors.New("session: blueprint loader is not configured")
	}
	raw, err := l.loader.Load(ctx, src)
	if err != nil {
		return blueprint.Document{}, err
	}
	return blueprint.Parse(raw)
}

// finish applies status when the slot still belongs to gen.
func (l *StepLoader) finish(step int, gen uint64, status StepStatus) StepStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.slots[step]
	if !ok || current.generation != gen {
		l.logger.Debug("dropping stale step load", zap.Int("step", step))
		return StepStatus{Step: step, Err: &StepError{Step: step, Err: ErrStale}}
	}

	if status.State == StepLoaded {
		if err := l.session.Mount(step, status.Page.Bindings); err != nil {
			status = StepStatus{Step: step, State: StepFailed, Err: &StepError{Step: step, Err: err}}
		}
	}
	if status.Err != nil {
		l.logger.Warn("step load failed", zap.Int("step", step), zap.Error(status.Err))
	} else {
		l.logger.Debug("step loaded", zap.Int("step", step), zap.Int("rows", len(status.Page.Rows)))
	}
	current.status = status
	return status
}
