package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kvPtr(v float64) *float64 { return &v }

func sampleSnapshot() []CanonicalRecord {
	return []CanonicalRecord{
		{GridOperator: "Norte", Province: "Bizkaia", Municipality: "Bilbao", VoltageKV: kvPtr(30), AvailabilityPct: 10, CapTotal: 20, Latitude: 43.26, Longitude: -2.93, ColorBucket: BucketCritical},
		{GridOperator: "Norte", Province: "Bizkaia", Municipality: "Getxo", VoltageKV: kvPtr(132), AvailabilityPct: 55, CapTotal: 40, Latitude: 43.35, Longitude: -3.01, ColorBucket: BucketModerate},
		{GridOperator: "Norte", Province: "Araba", Municipality: "Vitoria", VoltageKV: nil, AvailabilityPct: 90, CapTotal: 60, Latitude: 42.85, Longitude: -2.67, ColorBucket: BucketExcellent},
		{GridOperator: "Centro", Province: "Madrid", Municipality: "Madrid", VoltageKV: kvPtr(45), AvailabilityPct: 40, CapTotal: 80, Latitude: 40.42, Longitude: -3.70, ColorBucket: BucketLow},
		{GridOperator: "Centro", Province: "Madrid", Municipality: "Getafe", VoltageKV: kvPtr(45), AvailabilityPct: 80, CapTotal: 100, Latitude: 40.31, Longitude: -3.73, ColorBucket: BucketGood},
	}
}

func TestFilter_Match(t *testing.T) {
	recs := sampleSnapshot()

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"empty filter", Filter{}, 5},
		{"operator", Filter{Operator: "Norte"}, 3},
		{"province", Filter{Province: "Madrid"}, 2},
		{"municipality", Filter{Municipality: "Getafe"}, 1},
		{"voltage", Filter{Voltage: "45"}, 2},
		{"voltage decimal form", Filter{Voltage: "45.0"}, 2},
		{"unknown voltage", Filter{Voltage: VoltageUnknown}, 1},
		{"bad voltage", Filter{Voltage: "abc"}, 0},
		{"inclusive min", Filter{MinPct: kvPtr(40)}, 4},
		{"inclusive max", Filter{MaxPct: kvPtr(40)}, 2},
		{"range", Filter{MinPct: kvPtr(40), MaxPct: kvPtr(80)}, 3},
		{"combined", Filter{Operator: "Centro", Voltage: "45", MinPct: kvPtr(50)}, 1},
		{"no match", Filter{Operator: "Sur"}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, ApplyFilter(recs, tc.filter), tc.want)
		})
	}
}

func TestVoltageLabel(t *testing.T) {
	assert.Equal(t, "unknown", VoltageLabel(nil))
	assert.Equal(t, "132", VoltageLabel(kvPtr(132)))
	assert.Equal(t, "13.2", VoltageLabel(kvPtr(13.2)))
}

func TestCascadingOptions(t *testing.T) {
	recs := sampleSnapshot()

	t.Run("no selection", func(t *testing.T) {
		opts := CascadingOptions(recs, Filter{})
		assert.Equal(t, []string{"Centro", "Norte"}, opts.Operators)
		assert.Equal(t, []string{"Araba", "Bizkaia", "Madrid"}, opts.Provinces)
		assert.Equal(t, []string{"Bilbao", "Getafe", "Getxo", "Madrid", "Vitoria"}, opts.Municipalities)
		assert.Equal(t, []string{"30", "45", "132", "unknown"}, opts.Voltages)
	})

	t.Run("operator narrows lower levels", func(t *testing.T) {
		opts := CascadingOptions(recs, Filter{Operator: "Norte"})
		assert.Equal(t, []string{"Centro", "Norte"}, opts.Operators, "top level is never narrowed")
		assert.Equal(t, []string{"Araba", "Bizkaia"}, opts.Provinces)
		assert.Equal(t, []string{"Bilbao", "Getxo", "Vitoria"}, opts.Municipalities)
		assert.Equal(t, []string{"30", "132", "unknown"}, opts.Voltages)
	})

	t.Run("province and municipality", func(t *testing.T) {
		opts := CascadingOptions(recs, Filter{Operator: "Norte", Province: "Bizkaia", Municipality: "Getxo"})
		assert.Equal(t, []string{"Bilbao", "Getxo"}, opts.Municipalities)
		assert.Equal(t, []string{"132"}, opts.Voltages)
	})
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleSnapshot())
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 60.0, s.MeanCapTotal)
	assert.Equal(t, 55.0, s.MeanAvailability)
	assert.Equal(t, 1, s.BucketCounts[BucketLow])
	assert.InDelta(t, 42.038, s.CenterLatitude, 1e-9)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Count)
	assert.Equal(t, 0.0, empty.MeanCapTotal)
}

func TestNearest(t *testing.T) {
	recs := sampleSnapshot()

	got, ok := Nearest(recs, 40.30, -3.72)
	require.True(t, ok)
	assert.Equal(t, "Getafe", got.Municipality)

	got, ok = Nearest(recs, 43.3, -2.95)
	require.True(t, ok)
	assert.Equal(t, "Bilbao", got.Municipality)

	_, ok = Nearest(nil, 0, 0)
	assert.False(t, ok)
}

func TestUniqueHelpers(t *testing.T) {
	recs := append(sampleSnapshot(), CanonicalRecord{})
	assert.Equal(t, []string{"Centro", "Norte"}, UniqueOperators(recs))
	assert.Equal(t, []string{"Araba", "Bizkaia", "Madrid"}, UniqueProvinces(recs))
	assert.Equal(t, []string{"30", "45", "132", "unknown"}, VoltageLevels(recs))
}
