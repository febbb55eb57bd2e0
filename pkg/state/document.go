// Package state holds the mutable field-value tree of one form instance.
//
// Values are addressed by dotted paths ("weights.total", "ops.2.start").
// Numeric segments index into slices, which grow on write up to MaxIndex.
// A write never replaces a scalar with a container. A Document has a
// single owner and performs no locking.
package state

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// MaxIndex bounds the numeric segments a write may use.
const MaxIndex = 1024

var (
	// ErrEmptyPath is returned when a write targets the root.
	ErrEmptyPath = errors.New("state: path is required")
	// ErrIndexRange is returned when a numeric segment exceeds MaxIndex.
	ErrIndexRange = errors.New("state: index out of range")
	// ErrTypeConflict is returned when a write would descend through a scalar.
	ErrTypeConflict = errors.New("state: path crosses a scalar value")
)

// Change describes one effective write.
type Change struct {
	Path string
	Old  any
	New  any
}

// Listener receives changes after they are applied.
type Listener func(Change)

// Document is a nested map[string]any tree with change subscriptions.
type Document struct {
	values    map[string]any
	listeners []subscription
	nextID    int
}

type subscription struct {
	id int
	fn Listener
}

// New seeds a Document with a deep copy of initial.
func New(initial map[string]any) *Document {
	values, _ := deepCopy(initial).(map[string]any)
	if values == nil {
		values = make(map[string]any)
	}
	return &Document{values: values}
}

// Get resolves a dotted path.
func (d *Document) Get(path string) (any, bool) {
	if d == nil || path == "" {
		return nil, false
	}
	var current any = d.values
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Value returns the value at path or nil.
func (d *Document) Value(path string) any {
	v, _ := d.Get(path)
	return v
}

// Set writes value at path, creating intermediate containers. It reports
// whether the stored value changed; listeners only run for effective changes.
func (d *Document) Set(path string, value any) (bool, error) {
	if d == nil {
		return false, errors.New("state: document is nil")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return false, ErrEmptyPath
	}

	old, exists := d.Get(path)
	if (exists && equal(old, value)) || (!exists && value == nil) {
		return false, nil
	}

	updated, err := setIn(d.values, strings.Split(path, "."), value, path)
	if err != nil {
		return false, err
	}
	d.values = updated.(map[string]any)

	change := Change{Path: path, Old: old, New: value}
	for _, sub := range d.snapshotListeners() {
		sub.fn(change)
	}
	return true, nil
}

// Subscribe registers fn and returns a function that removes it. Listeners run
// in subscription order.
func (d *Document) Subscribe(fn Listener) func() {
	if d == nil || fn == nil {
		return func() {}
	}
	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, subscription{id: id, fn: fn})
	return func() {
		for i, sub := range d.listeners {
			if sub.id == id {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

func (d *Document) snapshotListeners() []subscription {
	return append([]subscription(nil), d.listeners...)
}

// Snapshot returns a deep copy of the tree.
func (d *Document) Snapshot() map[string]any {
	if d == nil {
		return map[string]any{}
	}
	out, _ := deepCopy(d.values).(map[string]any)
	return out
}

// Clone returns an independent Document without listeners.
func (d *Document) Clone() *Document {
	return New(d.Snapshot())
}

// Flatten returns every leaf keyed by its dotted path.
func (d *Document) Flatten() map[string]any {
	out := make(map[string]any)
	if d == nil {
		return out
	}
	flatten("", d.values, out)
	return out
}

// Paths returns the sorted leaf paths.
func (d *Document) Paths() []string {
	flat := d.Flatten()
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func flatten(prefix string, node any, out map[string]any) {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}
	switch typed := node.(type) {
	case map[string]any:
		for k, v := range typed {
			flatten(join(k), v, out)
		}
	case []any:
		for i, v := range typed {
			flatten(join(strconv.Itoa(i)), v, out)
		}
	default:
		if prefix != "" {
			out[prefix] = typed
		}
	}
}

func setIn(node any, segments []string, value any, path string) (any, error) {
	segment := segments[0]
	last := len(segments) == 1

	if node == nil {
		node = containerFor(segment)
	} else if !isContainer(node) {
		return nil, fmt.Errorf("%w: %q at segment %q", ErrTypeConflict, path, segment)
	}

	switch typed := node.(type) {
	case map[string]any:
		if last {
			typed[segment] = value
			return typed, nil
		}
		child, err := setIn(typed[segment], segments[1:], value, path)
		if err != nil {
			return nil, err
		}
		typed[segment] = child
		return typed, nil

	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil {
			return nil, fmt.Errorf("state: expected numeric segment %q in path %q", segment, path)
		}
		if idx < 0 {
			return nil, fmt.Errorf("state: negative index in path %q", path)
		}
		if idx > MaxIndex {
			return nil, fmt.Errorf("%w: %d in path %q", ErrIndexRange, idx, path)
		}
		if len(typed) <= idx {
			typed = append(typed, make([]any, idx+1-len(typed))...)
		}
		if last {
			typed[idx] = value
			return typed, nil
		}
		child, err := setIn(typed[idx], segments[1:], value, path)
		if err != nil {
			return nil, err
		}
		typed[idx] = child
		return typed, nil
	}
	return nil, fmt.Errorf("state: unexpected container for segment %q", segment)
}

func isContainer(node any) bool {
	switch node.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func containerFor(segment string) any {
	if idx, err := strconv.Atoi(segment); err == nil && idx >= 0 {
		return []any{}
	}
	return map[string]any{}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}
