package domain

import "strings"

// NormalizeString replaces CR and LF with spaces, collapses whitespace runs
// and trims the result.
func NormalizeString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeText applies NormalizeString to string values and returns any
// other value unchanged.
func NormalizeText(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return NormalizeString(s)
}

// TextField returns the normalized string form of a cell, or "" for
// missing cells.
func TextField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return NormalizeString(t)
	case float64:
		return FormatNumber(t)
	case int:
		return FormatNumber(float64(t))
	case int64:
		return FormatNumber(float64(t))
	default:
		return ""
	}
}
