// Package normalize turns heterogeneous catalog input (free text, currency
// strings, spreadsheet cells, legacy field names) into canonical values.
//
// Every function here is total and idempotent: f(f(x)) == f(x), and no input
// makes it panic or return an error value where a canonical "empty" exists.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PathSeparator is the character that cannot appear in a storage key.
const (
	PathSeparator = "/"
	SafeSeparator = "__"
)

// NormalizeText lowercases, trims and strips diacritics (NFD + mark removal).
func NormalizeText(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeSku is the search key for a code: trimmed, lowercased, no whitespace.
func NormalizeSku(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// NormalizeCodigo is the storage form of a SKU: trimmed and uppercased.
func NormalizeCodigo(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ToSafeDocID uppercases a code and escapes the path separator.
// "HA32001/RP-UN" -> "HA32001__RP-UN"
func ToSafeDocID(s string) string {
	return strings.ReplaceAll(NormalizeCodigo(s), PathSeparator, SafeSeparator)
}

// FromSafeDocID reverses ToSafeDocID.
func FromSafeDocID(id string) string {
	return strings.ReplaceAll(id, SafeSeparator, PathSeparator)
}

// Stringify renders a loosely typed cell/field value as trimmed text.
// Integral floats render without a fractional part so "1001" survives a
// spreadsheet that typed the column as numeric.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case json.Number:
		return x.String()
	case time.Time:
		return x.Format(DateTextLayout)
	case fmt.Stringer:
		return strings.TrimSpace(x.String())
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
