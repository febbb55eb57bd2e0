package render

import (
	"github.com/goliatone/go-batchform/pkg/blueprint"
)

// Binding is a rendered input registered under its resolved path.
type Binding struct {
	Path     string
	ItemID   string
	Kind     blueprint.Kind
	Index    int
	Input    blueprint.Input
	TimePair bool
	// Step is the wizard step that mounted the binding, zero when unknown.
	Step int
}

// TimePair is the start/finish path pair declared by a time_pair dual row.
type TimePair struct {
	ItemID string
	Start  string
	Finish string
}

// Bindings records every bound input in render order. The first registration
// of a path wins; later registrations of the same path are ignored.
type Bindings struct {
	order  []string
	byPath map[string]Binding
	pairs  []TimePair
}

// NewBindings returns an empty registry.
func NewBindings() *Bindings {
	return &Bindings{byPath: make(map[string]Binding)}
}

// Register adds a binding unless its path is already bound.
func (b *Bindings) Register(binding Binding) bool {
	if b.byPath == nil {
		b.byPath = make(map[string]Binding)
	}
	if binding.Path == "" {
		return false
	}
	if _, exists := b.byPath[binding.Path]; exists {
		return false
	}
	b.order = append(b.order, binding.Path)
	b.byPath[binding.Path] = binding
	return true
}

func (b *Bindings) registerPair(pair TimePair) {
	for _, existing := range b.pairs {
		if existing.Start == pair.Start {
			return
		}
	}
	b.pairs = append(b.pairs, pair)
}

// Lookup returns the binding registered for path.
func (b *Bindings) Lookup(path string) (Binding, bool) {
	if b == nil {
		return Binding{}, false
	}
	binding, ok := b.byPath[path]
	return binding, ok
}

// Has reports whether path is bound.
func (b *Bindings) Has(path string) bool {
	_, ok := b.Lookup(path)
	return ok
}

// Paths returns bound paths in registration order.
func (b *Bindings) Paths() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.order...)
}

// All returns bindings in registration order.
func (b *Bindings) All() []Binding {
	if b == nil {
		return nil
	}
	out := make([]Binding, 0, len(b.order))
	for _, path := range b.order {
		out = append(out, b.byPath[path])
	}
	return out
}

// ForStep returns the bound paths mounted by step, in registration order.
func (b *Bindings) ForStep(step int) []string {
	var out []string
	for _, binding := range b.All() {
		if binding.Step == step {
			out = append(out, binding.Path)
		}
	}
	return out
}

// TimePairs returns the time_pair rows in registration order.
func (b *Bindings) TimePairs() []TimePair {
	if b == nil {
		return nil
	}
	return append([]TimePair(nil), b.pairs...)
}

// Len reports the number of bound paths.
func (b *Bindings) Len() int {
	if b == nil {
		return 0
	}
	return len(b.order)
}

// Merge appends other's bindings after the receiver's.
func (b *Bindings) Merge(other *Bindings) {
	if other == nil {
		return
	}
	for _, binding := range other.All() {
		b.Register(binding)
	}
	for _, pair := range other.pairs {
		b.registerPair(pair)
	}
}

// Remove drops every binding mounted by step.
func (b *Bindings) Remove(step int) {
	if b == nil {
		return
	}
	kept := b.order[:0]
	for _, path := range b.order {
		if b.byPath[path].Step == step {
			delete(b.byPath, path)
			continue
		}
		kept = append(kept, path)
	}
	b.order = kept

	pairs := b.pairs[:0]
	for _, pair := range b.pairs {
		if _, ok := b.byPath[pair.Start]; ok {
			pairs = append(pairs, pair)
		}
	}
	b.pairs = pairs
}
