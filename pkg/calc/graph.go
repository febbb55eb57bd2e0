// Package calc recomputes derived numeric fields from explicit per-field
// dependency declarations.
//
// A Graph is a set of Units. Each Unit writes one output path from the paths it
// watches. NewGraph orders units topologically and rejects cycles, so every
// cascade terminates. Recompute runs synchronously: when it returns, every
// derived value affected by the change has settled.
package calc

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/goliatone/go-batchform/pkg/numeric"
)

var (
	// ErrCycle is returned when units depend on each other's outputs.
	ErrCycle = errors.New("calc: dependency cycle")
	// ErrDuplicateOutput is returned when two units write the same path.
	ErrDuplicateOutput = errors.New("calc: duplicate output")
	// ErrInvalidUnit is returned for units without an output or compute func.
	ErrInvalidUnit = errors.New("calc: invalid unit")
)

// Carry selects which value downstream units read from a unit's output.
type Carry int

const (
	// CarryRounded feeds the stored, rounded value downstream.
	CarryRounded Carry = iota
	// CarryRaw feeds the unrounded value downstream while still storing the
	// rounded one.
	CarryRaw
)

func (c Carry) String() string {
	if c == CarryRaw {
		return "raw"
	}
	return "rounded"
}

// Unrounded disables rounding when used as Rounding.Places.
const Unrounded int32 = -1

// Rounding is the per-unit precision policy.
type Rounding struct {
	Places int32
	Carry  Carry
}

// DefaultRounding stores two decimals and carries the rounded value.
var DefaultRounding = Rounding{Places: numeric.DefaultPlaces, Carry: CarryRounded}

func (r Rounding) apply(v float64) float64 {
	if r.Places < 0 {
		return v
	}
	return numeric.Round(v, r.Places)
}

// Unit derives Output from the values at Watch. Compute returns ok=false to
// clear the output.
type Unit struct {
	Output  string
	Watch   []string
	Compute func(in Inputs) (float64, bool)
	Round   Rounding
}

// Store is the form state the graph reads from and writes to.
type Store interface {
	Get(path string) (any, bool)
	Set(path string, value any) (bool, error)
}

// Graph is an acyclic, topologically ordered set of units. A Graph caches raw
// values between runs and belongs to a single editing session.
type Graph struct {
	units    []Unit
	byOutput map[string]int
	watchers map[string][]int
	raw      map[string]float64
}

// NewGraph validates and orders units.
func NewGraph(units ...Unit) (*Graph, error) {
	byOutput := make(map[string]int, len(units))
	for i, unit := range units {
		if strings.TrimSpace(unit.Output) == "" || unit.Compute == nil {
			return nil, fmt.Errorf("%w: unit %d needs an output and a compute func", ErrInvalidUnit, i)
		}
		if _, dup := byOutput[unit.Output]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOutput, unit.Output)
		}
		byOutput[unit.Output] = i
	}

	// Kahn's algorithm; ties resolve in declaration order.
	indegree := make([]int, len(units))
	dependents := make([][]int, len(units))
	for i, unit := range units {
		for _, src := range dedupe(unit.Watch) {
			if j, ok := byOutput[src]; ok {
				indegree[i]++
				dependents[j] = append(dependents[j], i)
			}
		}
	}

	var queue, order []int
	for i := range units {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		order = append(order, next)
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if len(order) != len(units) {
		var stuck []string
		for i, remaining := range indegree {
			if remaining > 0 {
				stuck = append(stuck, units[i].Output)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(stuck, ", "))
	}

	g := &Graph{
		units:    make([]Unit, len(units)),
		byOutput: make(map[string]int, len(units)),
		watchers: make(map[string][]int),
		raw:      make(map[string]float64),
	}
	for pos, idx := range order {
		unit := units[idx]
		unit.Watch = dedupe(unit.Watch)
		g.units[pos] = unit
		g.byOutput[unit.Output] = pos
		for _, src := range unit.Watch {
			g.watchers[src] = append(g.watchers[src], pos)
		}
	}
	return g, nil
}

// MustNewGraph panics when NewGraph fails.
func MustNewGraph(units ...Unit) *Graph {
	g, err := NewGraph(units...)
	if err != nil {
		panic(err)
	}
	return g
}

// Outputs returns derived paths in evaluation order.
func (g *Graph) Outputs() []string {
	out := make([]string, len(g.units))
	for i, unit := range g.units {
		out[i] = unit.Output
	}
	return out
}

// IsOutput reports whether path is written by a unit.
func (g *Graph) IsOutput(path string) bool {
	_, ok := g.byOutput[path]
	return ok
}

// Sources returns watched paths that no unit writes, sorted.
func (g *Graph) Sources() []string {
	var out []string
	for path := range g.watchers {
		if !g.IsOutput(path) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// Watches reports whether any unit depends on path.
func (g *Graph) Watches(path string) bool {
	return len(g.watchers[path]) > 0
}

// Recompute runs, once each and in topological order, every unit reachable
// from the changed paths. It returns the outputs whose stored value changed.
func (g *Graph) Recompute(store Store, changed ...string) ([]string, error) {
	affected := make([]bool, len(g.units))
	pending := append([]string(nil), changed...)
	for len(pending) > 0 {
		path := pending[0]
		pending = pending[1:]
		for _, idx := range g.watchers[path] {
			if affected[idx] {
				continue
			}
			affected[idx] = true
			pending = append(pending, g.units[idx].Output)
		}
	}
	return g.run(store, affected)
}

// RecomputeAll runs every unit.
func (g *Graph) RecomputeAll(store Store) ([]string, error) {
	affected := make([]bool, len(g.units))
	for i := range affected {
		affected[i] = true
	}
	return g.run(store, affected)
}

func (g *Graph) run(store Store, affected []bool) ([]string, error) {
	var updated []string
	in := Inputs{store: store, graph: g}
	for idx, unit := range g.units {
		if !affected[idx] {
			continue
		}

		var stored any
		value, ok := unit.Compute(in)
		if ok && !math.IsNaN(value) && !math.IsInf(value, 0) {
			g.raw[unit.Output] = value
			stored = unit.Round.apply(value)
		} else {
			delete(g.raw, unit.Output)
		}

		didChange, err := store.Set(unit.Output, stored)
		if err != nil {
			return updated, fmt.Errorf("calc: write %s: %w", unit.Output, err)
		}
		if didChange {
			updated = append(updated, unit.Output)
		}
	}
	return updated, nil
}

// Inputs gives Compute funcs read access to the store. Outputs of CarryRaw
// units read their cached raw value.
type Inputs struct {
	store Store
	graph *Graph
}

// Lookup returns the numeric value at path and whether one is present.
func (in Inputs) Lookup(path string) (float64, bool) {
	if in.graph != nil {
		if idx, ok := in.graph.byOutput[path]; ok && in.graph.units[idx].Round.Carry == CarryRaw {
			if raw, ok := in.graph.raw[path]; ok {
				return raw, true
			}
		}
	}
	if in.store == nil {
		return 0, false
	}
	value, ok := in.store.Get(path)
	if !ok {
		return 0, false
	}
	return numeric.Parse(value)
}

// Float returns the numeric value at path, or 0 when missing or non-numeric.
func (in Inputs) Float(path string) float64 {
	v, _ := in.Lookup(path)
	return v
}

// Value returns the raw stored value at path.
func (in Inputs) Value(path string) any {
	if in.store == nil {
		return nil
	}
	v, _ := in.store.Get(path)
	return v
}

// Div divides n by d, reporting false for a zero denominator or a non-finite
// result.
func Div(n, d float64) (float64, bool) {
	if d == 0 {
		return 0, false
	}
	q := n / d
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0, false
	}
	return q, true
}

func dedupe(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if _, ok := seen[path]; ok || path == "" {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}
