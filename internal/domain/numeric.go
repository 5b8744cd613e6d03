package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var nonNumericRe = regexp.MustCompile(`[^0-9.\-]`)

// CoerceNumber converts a locale-formatted cell to a float. The comma
// decimal separator becomes a period, every character other than digits,
// periods and minus signs is stripped, and the remainder is parsed.
// ok is false for empty, unparsable or non-finite values.
func CoerceNumber(v any) (float64, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case float32:
		return CoerceNumber(float64(t))
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s = t
	default:
		return 0, false
	}

	s = strings.ReplaceAll(s, ",", ".")
	s = nonNumericRe.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Capacity coerces a capacity cell. Missing and negative values count as 0.
func Capacity(v any) float64 {
	f, ok := CoerceNumber(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

// Voltage coerces a voltage cell, keeping missing values as nil.
func Voltage(v any) *float64 {
	f, ok := CoerceNumber(v)
	if !ok {
		return nil
	}
	return &f
}

// FormatNumber renders f in plain decimal notation with the shortest
// representation that parses back to the same value.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
