package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Rounding conventions differ per field family; callers pick explicitly.
const (
	CurrencyDigits = 2
	PercentDigits  = 1
	RateDigits     = 4
)

var numberNoise = strings.NewReplacer("$", "", ",", "", " ", "", "\t", "", "\u00a0", "")

// ToNumber coerces v into a finite float. Currency symbols, thousands
// separators and whitespace are stripped from strings. ok is false when no
// finite number can be read; it never returns NaN or Inf.
func ToNumber(v any) (n float64, ok bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case int32:
		n = float64(x)
	case uint:
		n = float64(x)
	case uint64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case decimal.Decimal:
		n = x.InexactFloat64()
	case string:
		s := numberNoise.Replace(strings.TrimSpace(x))
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// ToFixedNumber is ToNumber rounded half away from zero to digits places.
func ToFixedNumber(v any, digits int) (float64, bool) {
	n, ok := ToNumber(v)
	if !ok {
		return 0, false
	}
	return Round(n, digits), true
}

// Round rounds through decimal arithmetic so 1.005 -> 1.01 as on paper.
func Round(x float64, digits int) float64 {
	f, _ := decimal.NewFromFloat(x).Round(int32(digits)).Float64()
	return f
}

// Currency reads a money amount rounded to 2 places.
func Currency(v any) (float64, bool) { return ToFixedNumber(v, CurrencyDigits) }

// ToInt reads a whole number; fractional input is truncated.
func ToInt(v any) (int, bool) {
	n, ok := ToNumber(v)
	if !ok {
		return 0, false
	}
	return int(n), true
}
