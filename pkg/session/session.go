// Package session owns one editing session of a multi-step batch form: the
// field document, the derived calculation graph, the bindings of mounted
// steps and the current validation state.
//
// Every write goes through Session.Set, which recomputes derived fields and
// revalidates synchronously before notifying subscribers.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-batchform/pkg/calc"
	"github.com/goliatone/go-batchform/pkg/render"
	"github.com/goliatone/go-batchform/pkg/state"
	"github.com/goliatone/go-batchform/pkg/timerange"
	"github.com/goliatone/go-batchform/pkg/validation"
	"github.com/goliatone/go-batchform/pkg/wizard"
)

// ErrReadOnly is returned when a write targets a derived field.
var ErrReadOnly = errors.New("session: derived field is read-only")

// Event is delivered to subscribers after a write settles.
type Event struct {
	SessionID string
	Path      string
	// Changed lists every path whose stored value changed, the written path
	// first followed by recomputed derived fields.
	Changed []string
}

// Option customises a Session.
type Option func(*Session)

// WithLogger sets the session logger. A nil logger keeps the no-op default.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if strings.TrimSpace(id) != "" {
			s.id = id
		}
	}
}

// WithInitialValues seeds the document. Derived fields are recomputed on
// creation.
func WithInitialValues(values map[string]any) Option {
	return func(s *Session) {
		s.initial = values
	}
}

// WithGraph attaches a calculation graph.
func WithGraph(graph *calc.Graph) Option {
	return func(s *Session) {
		s.graph = graph
	}
}

// WithVariant builds the calculation graph from a form variant.
func WithVariant(variant calc.Variant) Option {
	return func(s *Session) {
		s.variant = &variant
	}
}

// WithSchedule sets where operation records live in the document.
func WithSchedule(schedule timerange.Schedule, opts timerange.Options) Option {
	return func(s *Session) {
		s.schedule = schedule
		s.timeOpts = opts
	}
}

// Session is safe for concurrent use; writes are serialized.
type Session struct {
	mu sync.Mutex

	id       string
	logger   *zap.Logger
	initial  map[string]any
	variant  *calc.Variant
	doc      *state.Document
	graph    *calc.Graph
	bindings *render.Bindings
	schedule timerange.Schedule
	timeOpts timerange.Options

	fieldErrors map[string][]string
	timeErrors  map[string][]string

	subscribers map[int]func(Event)
	nextSub     int
}

// New creates a session and settles derived fields for the initial values.
func New(opts ...Option) (*Session, error) {
	s := &Session{
		id:          uuid.NewString(),
		logger:      zap.NewNop(),
		bindings:    render.NewBindings(),
		fieldErrors: make(map[string][]string),
		timeErrors:  make(map[string][]string),
		subscribers: make(map[int]func(Event)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.variant != nil && s.graph == nil {
		graph, err := s.variant.Graph()
		if err != nil {
			return nil, fmt.Errorf("session: variant %s: %w", s.variant.Name, err)
		}
		s.graph = graph
	}

	s.doc = state.New(s.initial)
	s.initial = nil
	if err := s.recomputeAll(); err != nil {
		return nil, err
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	s.logger.Debug("session created", zap.Int("derived", len(s.derivedOutputs())))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Get reads a value from the document.
func (s *Session) Get(path string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Get(path)
}

// Bindings returns a copy of the merged bindings of mounted steps.
func (s *Session) Bindings() *render.Bindings {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := render.NewBindings()
	out.Merge(s.bindings)
	return out
}

// Schedule returns the configured operation record layout.
func (s *Session) Schedule() timerange.Schedule {
	return s.schedule
}

// IsDerived reports whether path is written by the calculation graph.
func (s *Session) IsDerived(path string) bool {
	return s.graph != nil && s.graph.IsOutput(path)
}

// DerivedPaths lists the outputs of the calculation graph in evaluation
// order.
func (s *Session) DerivedPaths() []string {
	return s.derivedOutputs()
}

// Mount registers the bindings of a rendered step, replacing any previous
// bindings of the same step.
func (s *Session) Mount(step int, bindings *render.Bindings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindings.Remove(step)
	for _, binding := range bindings.All() {
		binding.Step = step
		s.bindings.Register(binding)
	}
	// Merge carries the time pairs.
	s.bindings.Merge(bindings)
	s.logger.Debug("step mounted", zap.Int("step", step), zap.Int("bindings", bindings.Len()))
	return s.recomputeAll()
}

// Unmount drops the bindings and field errors of a step.
func (s *Session) Unmount(step int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range s.bindings.ForStep(step) {
		delete(s.fieldErrors, path)
	}
	s.bindings.Remove(step)
	s.validateSchedule()
	s.logger.Debug("step unmounted", zap.Int("step", step))
}

// Set is the single write entry point. It stores value, recomputes the
// derived fields that depend on path, revalidates path (and the whole
// schedule when path is a time field) and then notifies subscribers.
func (s *Session) Set(path string, value any) ([]string, error) {
	s.mu.Lock()

	if s.IsDerived(path) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, path)
	}

	changed, err := s.doc.Set(path, value)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("session: set %s: %w", path, err)
	}

	var updated []string
	if changed {
		updated = append(updated, path)
		if s.graph != nil {
			derived, err := s.graph.Recompute(s.doc, path)
			if err != nil {
				s.mu.Unlock()
				return nil, fmt.Errorf("session: recompute %s: %w", path, err)
			}
			updated = append(updated, derived...)
		}
	}

	s.validateField(path)
	if len(updated) > 1 {
		for _, derived := range updated[1:] {
			s.validateField(derived)
		}
	}
	if s.schedule.Contains(path) {
		s.validateSchedule()
	}

	event := Event{SessionID: s.id, Path: path, Changed: updated}
	subscribers := s.subscriberList()
	s.mu.Unlock()

	s.logger.Debug("field set", zap.String("path", path), zap.Strings("changed", updated))
	if len(updated) > 0 {
		for _, fn := range subscribers {
			fn(event)
		}
	}
	return updated, nil
}

// SetMany applies values in sorted path order.
func (s *Session) SetMany(values map[string]any) ([]string, error) {
	paths := make([]string, 0, len(values))
	for path := range values {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var changed []string
	for _, path := range paths {
		updated, err := s.Set(path, values[path])
		if err != nil {
			return changed, err
		}
		changed = append(changed, updated...)
	}
	return changed, nil
}

// Subscribe registers fn for settled writes and returns an unsubscribe func.
func (s *Session) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Session) subscriberList() []func(Event) {
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subscribers[id])
	}
	return out
}

// Validate revalidates the bound paths equal to or nested under paths and
// returns their failures in render order.
func (s *Session) Validate(paths ...string) *wizard.ErrorTree {
	s.mu.Lock()
	defer s.mu.Unlock()

	scope := func(path string) bool {
		for _, prefix := range paths {
			if path == prefix || strings.HasPrefix(path, prefix+".") {
				return true
			}
		}
		return false
	}

	timeField := false
	for _, path := range s.bindings.Paths() {
		if !scope(path) {
			continue
		}
		s.validateField(path)
		if s.schedule.Contains(path) {
			timeField = true
		}
	}
	if timeField {
		s.validateSchedule()
	}
	return s.tree(scope)
}

// ValidateAll revalidates every bound path and the schedule.
func (s *Session) ValidateAll() *wizard.ErrorTree {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range s.bindings.Paths() {
		s.validateField(path)
	}
	s.validateSchedule()
	return s.tree(func(string) bool { return true })
}

// Errors returns the current failures without revalidating.
func (s *Session) Errors() *wizard.ErrorTree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree(func(string) bool { return true })
}

// Snapshot returns a deep copy of the settled document.
func (s *Session) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Snapshot()
}

// Flatten returns the settled document keyed by dotted path.
func (s *Session) Flatten() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Flatten()
}

func (s *Session) validateField(path string) {
	binding, ok := s.bindings.Lookup(path)
	if !ok {
		delete(s.fieldErrors, path)
		return
	}
	value, _ := s.doc.Get(path)
	res := validation.ValidateInput(value, binding.Input)
	if res.Valid {
		delete(s.fieldErrors, path)
		return
	}
	s.fieldErrors[path] = []string{res.Message}
}

func (s *Session) validateSchedule() {
	s.timeErrors = make(map[string][]string)
	if s.schedule.Empty() {
		return
	}
	enabled := func(path string) bool {
		binding, ok := s.bindings.Lookup(path)
		return ok && binding.TimePair
	}
	for _, v := range timerange.ValidateState(s.doc, s.schedule, enabled, s.timeOpts) {
		if v.Path == "" {
			continue
		}
		s.timeErrors[v.Path] = append(s.timeErrors[v.Path], v.Message)
	}
	if len(s.timeErrors) > 0 {
		s.logger.Debug("schedule violations", zap.Int("count", len(s.timeErrors)))
	}
}

// tree assembles field and schedule failures in binding order. Failures on
// unbound paths follow in sorted order.
func (s *Session) tree(scope func(string) bool) *wizard.ErrorTree {
	tree := wizard.NewErrorTree()
	seen := make(map[string]bool)
	add := func(path string) {
		if seen[path] || !scope(path) {
			return
		}
		seen[path] = true
		for _, msg := range s.fieldErrors[path] {
			tree.Insert(path, msg)
		}
		for _, msg := range s.timeErrors[path] {
			tree.Insert(path, msg)
		}
	}

	for _, path := range s.bindings.Paths() {
		add(path)
	}
	var rest []string
	for path := range s.fieldErrors {
		rest = append(rest, path)
	}
	for path := range s.timeErrors {
		rest = append(rest, path)
	}
	sort.Strings(rest)
	for _, path := range rest {
		add(path)
	}
	return tree
}

func (s *Session) recomputeAll() error {
	if s.graph == nil {
		return nil
	}
	if _, err := s.graph.RecomputeAll(s.doc); err != nil {
		return fmt.Errorf("session: recompute: %w", err)
	}
	return nil
}

func (s *Session) derivedOutputs() []string {
	if s.graph == nil {
		return nil
	}
	return s.graph.Outputs()
}
