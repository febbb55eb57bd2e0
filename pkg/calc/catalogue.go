package calc

import "sort"

// Variant names in the built-in catalogue.
const (
	VariantStandard    = "standard"
	VariantHalfBatch   = "half-batch"
	VariantConcentrate = "concentrate"
	VariantLowSodium   = "low-sodium"
	VariantByLine      = "by-line"
	VariantPilot       = "pilot"
	VariantBulk        = "bulk"
	VariantReprocess   = "reprocess"
)

// DefaultStandardYield is the fallback standard yield shared by most variants.
const DefaultStandardYield = 800

// defaultFields maps the chain onto the paths used by the stock blueprints.
var defaultFields = FieldMap{
	FieldTotal:              "weights.total",
	FieldBrewingTableValue:  "weights.brewing_table_value",
	FieldSpecGrav:           "weights.spec_grav",
	FieldStandardYield:      "weights.standard_yield",
	FieldMagnesiumHydroxide: "weights.magnesium_hydroxide",
	FieldNCRActual:          "weights.ncr_actual",
	FieldActualWeight:       "weights.actual_weight",
	FieldDiscriminator:      "batch.line",

	FieldMultiplier:        "derived.multiplier",
	FieldConcentration:     "derived.concentration",
	FieldSodiumChloride:    "derived.sodium_chloride",
	FieldFinalTotalWeight:  "derived.final_total_weight",
	FieldTheoreticalWeight: "derived.theoretical_weight",
	FieldYieldRate:         "derived.yield_rate",
}

// Rounding tables differ per variant and are kept as each form sub-type
// defines them. Variants carrying a raw concentration into the final weight
// produce different totals from those carrying the rounded value.
var catalogue = []Variant{
	{
		Name:          VariantStandard,
		Description:   "Standard batch, fixed multiplier 1.0",
		Multiplier:    MultiplierRule{Fixed: 1},
		StandardYield: DefaultStandardYield,
		Rounding: RoundingTable{
			FieldYieldRate: {Places: 1, Carry: CarryRounded},
		},
	},
	{
		Name:          VariantHalfBatch,
		Description:   "Half batch, fixed multiplier 0.5",
		Multiplier:    MultiplierRule{Fixed: 0.5},
		StandardYield: DefaultStandardYield,
		Rounding: RoundingTable{
			FieldConcentration: {Places: 1, Carry: CarryRaw},
			FieldYieldRate:     {Places: 1, Carry: CarryRounded},
		},
	},
	{
		Name:          VariantConcentrate,
		Description:   "Concentrate, fixed multiplier 1.2",
		Multiplier:    MultiplierRule{Fixed: 1.2},
		StandardYield: 750,
		Rounding: RoundingTable{
			FieldConcentration:     {Places: 1, Carry: CarryRounded},
			FieldFinalTotalWeight:  {Places: 1, Carry: CarryRounded},
			FieldTheoreticalWeight: {Places: 1, Carry: CarryRounded},
		},
	},
	{
		Name:          VariantLowSodium,
		Description:   "Low sodium, sodium chloride at three decimals",
		Multiplier:    MultiplierRule{Fixed: 1},
		StandardYield: 820,
		Rounding: RoundingTable{
			FieldSodiumChloride: {Places: 3, Carry: CarryRounded},
			FieldConcentration:  {Places: 2, Carry: CarryRaw},
		},
	},
	{
		Name:          VariantByLine,
		Description:   "Multiplier chosen by production line",
		Multiplier:    MultiplierRule{Table: map[string]float64{"A": 1.0, "B": 1.05, "C": 0.95}},
		StandardYield: DefaultStandardYield,
	},
	{
		Name:          VariantPilot,
		Description:   "Pilot run, unrounded intermediates",
		Multiplier:    MultiplierRule{Fixed: 0.1},
		StandardYield: DefaultStandardYield,
		Rounding: RoundingTable{
			FieldConcentration:    {Places: 2, Carry: CarryRaw},
			FieldFinalTotalWeight: {Places: 2, Carry: CarryRaw},
		},
	},
	{
		Name:          VariantBulk,
		Description:   "Bulk batch, whole-number weights",
		Multiplier:    MultiplierRule{Fixed: 2},
		StandardYield: DefaultStandardYield,
		Rounding: RoundingTable{
			FieldFinalTotalWeight:  {Places: 0, Carry: CarryRounded},
			FieldTheoreticalWeight: {Places: 0, Carry: CarryRounded},
		},
	},
	{
		Name:          VariantReprocess,
		Description:   "Reprocessed lot, multiplier 0.8",
		Multiplier:    MultiplierRule{Fixed: 0.8},
		StandardYield: 780,
		Rounding: RoundingTable{
			FieldConcentration: {Places: 1, Carry: CarryRounded},
		},
	},
}

// Variants returns copies of the built-in catalogue in declaration order.
func Variants() []Variant {
	out := make([]Variant, 0, len(catalogue))
	for _, v := range catalogue {
		out = append(out, v.clone())
	}
	return out
}

// Lookup returns the named catalogue variant.
func Lookup(name string) (Variant, bool) {
	for _, v := range catalogue {
		if v.Name == name {
			return v.clone(), true
		}
	}
	return Variant{}, false
}

// Names returns the catalogue variant names sorted.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for _, v := range catalogue {
		names = append(names, v.Name)
	}
	sort.Strings(names)
	return names
}

func (v Variant) clone() Variant {
	out := v
	if out.Fields == nil {
		out.Fields = defaultFields
	}
	out.Fields = merge(out.Fields, nil)
	out.Rounding = merge(v.Rounding, nil)
	out.Multiplier.Table = merge(v.Multiplier.Table, nil)
	return out
}
