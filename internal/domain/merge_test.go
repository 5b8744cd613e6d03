package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordsWithTotals(totals ...float64) []CanonicalRecord {
	out := make([]CanonicalRecord, len(totals))
	for i, c := range totals {
		out[i] = CanonicalRecord{SubstationID: FormatNumber(c), CapTotal: c}
	}
	return out
}

func TestMerge_RecomputesRadiusOverGlobalRange(t *testing.T) {
	a := ApplyRadius(recordsWithTotals(10, 55, 100), DefaultMinRadius, DefaultMaxRadius)
	b := ApplyRadius(recordsWithTotals(50, 200), DefaultMinRadius, DefaultMaxRadius)
	require.Equal(t, 25.0, a[2].Radius, "per-source max before merge")

	merged := Merge([]SourceSet{
		{Operator: "north", Records: a},
		{Operator: "south", Records: b},
	}, DefaultMinRadius, DefaultMaxRadius)
	require.Len(t, merged, 5)

	scale := NewRadiusScale(merged, DefaultMinRadius, DefaultMaxRadius)
	assert.Equal(t, 10.0, scale.CapMin)
	assert.Equal(t, 200.0, scale.CapMax)

	for _, r := range merged {
		assert.Equal(t, Round(scale.Radius(r.CapTotal), 4), r.Radius, "cap_total=%v", r.CapTotal)
	}
	assert.Equal(t, 5.0, merged[0].Radius)
	assert.Less(t, merged[2].Radius, 25.0, "100 is no longer the maximum")
	assert.Equal(t, 25.0, merged[4].Radius)
}

func TestMerge_TagsOperator(t *testing.T) {
	a := recordsWithTotals(1, 2)
	a[1].GridOperator = "explicit"

	merged := Merge([]SourceSet{{Operator: "north", Records: a}}, DefaultMinRadius, DefaultMaxRadius)
	assert.Equal(t, "north", merged[0].GridOperator)
	assert.Equal(t, "explicit", merged[1].GridOperator)
	assert.Empty(t, a[0].GridOperator, "input records are not modified")
}

func TestMerge_OrderOnlyAffectsRowOrder(t *testing.T) {
	a := SourceSet{Operator: "north", Records: recordsWithTotals(10, 100)}
	b := SourceSet{Operator: "south", Records: recordsWithTotals(50, 200)}

	ab := Merge([]SourceSet{a, b}, DefaultMinRadius, DefaultMaxRadius)
	ba := Merge([]SourceSet{b, a}, DefaultMinRadius, DefaultMaxRadius)

	assert.ElementsMatch(t, ab, ba)
	assert.Equal(t, "north", ab[0].GridOperator)
	assert.Equal(t, "south", ba[0].GridOperator)
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge(nil, DefaultMinRadius, DefaultMaxRadius))
}
