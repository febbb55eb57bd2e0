package calc

import (
	"fmt"
	"strings"
)

// Logical field names of the weight/concentration/yield chain. A Variant's
// FieldMap binds them to form paths.
const (
	FieldTotal              = "total"
	FieldBrewingTableValue  = "brewingTableValue"
	FieldSpecGrav           = "specGrav"
	FieldStandardYield      = "standardYield"
	FieldMagnesiumHydroxide = "magnesiumHydroxide"
	FieldNCRActual          = "ncrActual"
	FieldActualWeight       = "actualWeight"
	FieldDiscriminator      = "discriminator"

	FieldMultiplier        = "multiplier"
	FieldConcentration     = "concentration"
	FieldSodiumChloride    = "sodiumChloride"
	FieldFinalTotalWeight  = "finalTotalWeight"
	FieldTheoreticalWeight = "theoreticalWeight"
	FieldYieldRate         = "yieldRate"
)

// DerivedFields lists the chain outputs in dependency order.
var DerivedFields = []string{
	FieldMultiplier,
	FieldConcentration,
	FieldSodiumChloride,
	FieldFinalTotalWeight,
	FieldTheoreticalWeight,
	FieldYieldRate,
}

// FieldMap binds logical names to form paths. Unmapped names use the logical
// name as the path.
type FieldMap map[string]string

// Path resolves a logical name.
func (m FieldMap) Path(logical string) string {
	if path, ok := m[logical]; ok && strings.TrimSpace(path) != "" {
		return path
	}
	return logical
}

// MultiplierRule resolves the weight multiplier. When Table is non-empty the
// multiplier is looked up by the value of the discriminator field; otherwise
// Fixed applies.
type MultiplierRule struct {
	Fixed float64
	Table map[string]float64
}

// ByDiscriminator reports whether the rule reads the discriminator field.
func (r MultiplierRule) ByDiscriminator() bool {
	return len(r.Table) > 0
}

func (r MultiplierRule) resolve(discriminator any) (float64, bool) {
	if !r.ByDiscriminator() {
		return r.Fixed, true
	}
	if discriminator == nil {
		return 0, false
	}
	key := strings.TrimSpace(fmt.Sprint(discriminator))
	value, ok := r.Table[key]
	return value, ok
}

// RoundingTable holds per-output rounding. Outputs without an entry use
// DefaultRounding.
type RoundingTable map[string]Rounding

// For returns the rounding for a logical output.
func (t RoundingTable) For(logical string) Rounding {
	if r, ok := t[logical]; ok {
		return r
	}
	return DefaultRounding
}

// Variant configures the chain for one form sub-type.
type Variant struct {
	Name        string
	Description string
	Fields      FieldMap
	Multiplier  MultiplierRule
	Rounding    RoundingTable
	// StandardYield is used when the standard yield field is absent or zero.
	StandardYield float64
}

// Path resolves a logical field for this variant.
func (v Variant) Path(logical string) string {
	return v.Fields.Path(logical)
}

// Units wires the six-step chain for the variant.
func (v Variant) Units() []Unit {
	var (
		total         = v.Path(FieldTotal)
		brewing       = v.Path(FieldBrewingTableValue)
		specGrav      = v.Path(FieldSpecGrav)
		standardYield = v.Path(FieldStandardYield)
		magnesium     = v.Path(FieldMagnesiumHydroxide)
		ncr           = v.Path(FieldNCRActual)
		actual        = v.Path(FieldActualWeight)
		discriminator = v.Path(FieldDiscriminator)

		multiplier    = v.Path(FieldMultiplier)
		concentration = v.Path(FieldConcentration)
		sodium        = v.Path(FieldSodiumChloride)
		final         = v.Path(FieldFinalTotalWeight)
		theoretical   = v.Path(FieldTheoreticalWeight)
		yieldRate     = v.Path(FieldYieldRate)
	)

	yieldOf := func(in Inputs) float64 {
		if sy, ok := in.Lookup(standardYield); ok && sy != 0 {
			return sy
		}
		return v.StandardYield
	}

	multiplierWatch := []string{}
	if v.Multiplier.ByDiscriminator() {
		multiplierWatch = append(multiplierWatch, discriminator)
	}
	rule := v.Multiplier

	return []Unit{
		{
			Output: multiplier,
			Watch:  multiplierWatch,
			Round:  v.Rounding.For(FieldMultiplier),
			Compute: func(in Inputs) (float64, bool) {
				return rule.resolve(in.Value(discriminator))
			},
		},
		{
			Output: concentration,
			Watch:  []string{total, brewing, standardYield},
			Round:  v.Rounding.For(FieldConcentration),
			Compute: func(in Inputs) (float64, bool) {
				return Div(in.Float(total)*in.Float(brewing), yieldOf(in))
			},
		},
		{
			Output: sodium,
			Watch:  []string{total, brewing, standardYield, specGrav},
			Round:  v.Rounding.For(FieldSodiumChloride),
			Compute: func(in Inputs) (float64, bool) {
				return Div(in.Float(total)*in.Float(brewing), yieldOf(in)*in.Float(specGrav))
			},
		},
		{
			Output: final,
			Watch:  []string{total, concentration, magnesium, ncr},
			Round:  v.Rounding.For(FieldFinalTotalWeight),
			Compute: func(in Inputs) (float64, bool) {
				return in.Float(total) + in.Float(concentration) + in.Float(magnesium) + in.Float(ncr), true
			},
		},
		{
			Output: theoretical,
			Watch:  []string{final, multiplier},
			Round:  v.Rounding.For(FieldTheoreticalWeight),
			Compute: func(in Inputs) (float64, bool) {
				m, ok := in.Lookup(multiplier)
				if !ok {
					return 0, false
				}
				return in.Float(final) * m, true
			},
		},
		{
			Output: yieldRate,
			Watch:  []string{actual, theoretical},
			Round:  v.Rounding.For(FieldYieldRate),
			Compute: func(in Inputs) (float64, bool) {
				q, ok := Div(in.Float(actual), in.Float(theoretical))
				return q * 100, ok
			},
		},
	}
}

// Graph builds a fresh graph for the variant.
func (v Variant) Graph() (*Graph, error) {
	g, err := NewGraph(v.Units()...)
	if err != nil {
		return nil, fmt.Errorf("calc: variant %s: %w", v.Name, err)
	}
	return g, nil
}

// Override adjusts a catalogue variant. Nil and empty fields leave the
// original untouched.
type Override struct {
	Multiplier      *float64
	MultiplierTable map[string]float64
	StandardYield   *float64
	Fields          map[string]string
	Rounding        map[string]Rounding
}

// WithOverride returns a copy of v with o applied.
func (v Variant) WithOverride(o Override) Variant {
	out := v
	out.Fields = merge(v.Fields, o.Fields)
	out.Rounding = RoundingTable(merge(v.Rounding, o.Rounding))

	out.Multiplier = MultiplierRule{Fixed: v.Multiplier.Fixed, Table: merge(v.Multiplier.Table, nil)}
	if o.Multiplier != nil {
		out.Multiplier = MultiplierRule{Fixed: *o.Multiplier}
	}
	if len(o.MultiplierTable) > 0 {
		out.Multiplier.Table = merge(o.MultiplierTable, nil)
	}
	if o.StandardYield != nil {
		out.StandardYield = *o.StandardYield
	}
	return out
}

func merge[M ~map[string]V, V any](base M, extra map[string]V) M {
	if len(base) == 0 && len(extra) == 0 {
		return base
	}
	out := make(M, len(base)+len(extra))
	for k, val := range base {
		out[k] = val
	}
	for k, val := range extra {
		out[k] = val
	}
	return out
}
