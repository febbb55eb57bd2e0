// Package numeric holds the canonical rounding, formatting and parsing helpers
// used by display fields and the calculation engine.
package numeric

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPlaces is the precision used by display fields unless a unit or
// variant overrides it.
const DefaultPlaces int32 = 2

// Round rounds v half away from zero at the given number of decimal places.
// Rounding happens on the shortest decimal representation of v, so values
// such as 1.005 round to 1.01 rather than drifting on binary error.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Format renders v with exactly places decimals using the same rounding as
// Round. Negative places render the shortest exact representation.
func Format(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	if places < 0 {
		return decimal.NewFromFloat(v).String()
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatValue formats any numeric-looking value; non-numeric input yields an
// empty string.
func FormatValue(raw any, places int32) string {
	v, ok := Parse(raw)
	if !ok {
		return ""
	}
	return Format(v, places)
}

// Parse converts raw form input into a finite float64. Strings are trimmed;
// empty strings, non-numeric text, NaN and infinities are rejected.
func Parse(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case decimal.Decimal:
		return v.InexactFloat64(), true
	case json.Number:
		return Parse(string(v))
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return finite(parsed)
	default:
		return 0, false
	}
}

// OrZero returns the parsed value or 0 when raw is absent or not numeric.
func OrZero(raw any) float64 {
	v, _ := Parse(raw)
	return v
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
