package domain

import (
	"math"
	"sort"
	"strconv"
)

// VoltageUnknown is the filter label for records without a voltage.
const VoltageUnknown = "unknown"

// VoltageLabel returns the filter label for a voltage value.
func VoltageLabel(v *float64) string {
	if v == nil {
		return VoltageUnknown
	}
	return FormatNumber(*v)
}

// Filter selects records of a snapshot. Empty string fields and nil bounds
// match everything; the percentage bounds are inclusive.
type Filter struct {
	Operator     string
	Province     string
	Municipality string
	Voltage      string
	MinPct       *float64
	MaxPct       *float64
}

// Match reports whether r passes every set criterion of f.
func (f Filter) Match(r CanonicalRecord) bool {
	if f.Operator != "" && r.GridOperator != f.Operator {
		return false
	}
	if f.Province != "" && r.Province != f.Province {
		return false
	}
	if f.Municipality != "" && r.Municipality != f.Municipality {
		return false
	}
	if f.Voltage != "" && !voltageMatches(r.VoltageKV, f.Voltage) {
		return false
	}
	if f.MinPct != nil && r.AvailabilityPct < *f.MinPct {
		return false
	}
	if f.MaxPct != nil && r.AvailabilityPct > *f.MaxPct {
		return false
	}
	return true
}

func voltageMatches(v *float64, want string) bool {
	if want == VoltageUnknown {
		return v == nil
	}
	if v == nil {
		return false
	}
	w, err := strconv.ParseFloat(want, 64)
	if err != nil {
		return false
	}
	return *v == w
}

// ApplyFilter returns the records matching f, in input order.
func ApplyFilter(recs []CanonicalRecord, f Filter) []CanonicalRecord {
	out := make([]CanonicalRecord, 0, len(recs))
	for _, r := range recs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Options lists the values selectable at each filter level. Each level is
// narrowed by the selections above it: provinces by operator,
// municipalities by operator and province, voltages by all three.
type Options struct {
	Operators      []string `json:"operators"`
	Provinces      []string `json:"provinces"`
	Municipalities []string `json:"municipalities"`
	Voltages       []string `json:"voltages"`
}

// CascadingOptions computes the option lists for the selections in f.
func CascadingOptions(recs []CanonicalRecord, f Filter) Options {
	var opts Options
	opts.Operators = uniqueSorted(recs, func(r CanonicalRecord) string { return r.GridOperator })

	level := ApplyFilter(recs, Filter{Operator: f.Operator})
	opts.Provinces = uniqueSorted(level, func(r CanonicalRecord) string { return r.Province })

	level = ApplyFilter(level, Filter{Province: f.Province})
	opts.Municipalities = uniqueSorted(level, func(r CanonicalRecord) string { return r.Municipality })

	level = ApplyFilter(level, Filter{Municipality: f.Municipality})
	opts.Voltages = VoltageLevels(level)
	return opts
}

// VoltageLevels returns the distinct voltage labels of recs ordered
// numerically, with VoltageUnknown last.
func VoltageLevels(recs []CanonicalRecord) []string {
	seen := make(map[float64]bool)
	var values []float64
	unknown := false
	for _, r := range recs {
		if r.VoltageKV == nil {
			unknown = true
			continue
		}
		if !seen[*r.VoltageKV] {
			seen[*r.VoltageKV] = true
			values = append(values, *r.VoltageKV)
		}
	}
	sort.Float64s(values)
	out := make([]string, 0, len(values)+1)
	for _, v := range values {
		out = append(out, FormatNumber(v))
	}
	if unknown {
		out = append(out, VoltageUnknown)
	}
	return out
}

// UniqueOperators returns the distinct non-empty operators of recs, sorted.
func UniqueOperators(recs []CanonicalRecord) []string {
	return uniqueSorted(recs, func(r CanonicalRecord) string { return r.GridOperator })
}

// UniqueProvinces returns the distinct non-empty provinces of recs, sorted.
func UniqueProvinces(recs []CanonicalRecord) []string {
	return uniqueSorted(recs, func(r CanonicalRecord) string { return r.Province })
}

func uniqueSorted(recs []CanonicalRecord, key func(CanonicalRecord) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range recs {
		k := key(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Stats summarizes a record set.
type Stats struct {
	Count            int                 `json:"count"`
	MeanCapTotal     float64             `json:"mean_cap_total"`
	MeanAvailability float64             `json:"mean_availability_pct"`
	CenterLatitude   float64             `json:"center_latitude"`
	CenterLongitude  float64             `json:"center_longitude"`
	BucketCounts     map[ColorBucket]int `json:"bucket_counts"`
}

// Summarize computes Stats for recs. Means are zero for an empty set.
func Summarize(recs []CanonicalRecord) Stats {
	s := Stats{Count: len(recs), BucketCounts: make(map[ColorBucket]int, len(Buckets))}
	if len(recs) == 0 {
		return s
	}
	var capSum, pctSum, latSum, lonSum float64
	for _, r := range recs {
		capSum += r.CapTotal
		pctSum += r.AvailabilityPct
		latSum += r.Latitude
		lonSum += r.Longitude
		s.BucketCounts[r.ColorBucket]++
	}
	n := float64(len(recs))
	s.MeanCapTotal = Round(capSum/n, 2)
	s.MeanAvailability = Round(pctSum/n, 1)
	s.CenterLatitude = Round(latSum/n, 6)
	s.CenterLongitude = Round(lonSum/n, 6)
	return s
}

// Nearest returns the record closest to (lat, lon) by planar distance in
// degrees. ok is false for an empty set.
func Nearest(recs []CanonicalRecord, lat, lon float64) (CanonicalRecord, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, r := range recs {
		d := math.Hypot(r.Latitude-lat, r.Longitude-lon)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return CanonicalRecord{}, false
	}
	return recs[best], true
}
