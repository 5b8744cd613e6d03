package domain

import "math"

// ColorBucket is the availability category shown on the map.
type ColorBucket string

const (
	BucketCritical  ColorBucket = "critical"
	BucketLow       ColorBucket = "low"
	BucketModerate  ColorBucket = "moderate"
	BucketGood      ColorBucket = "good"
	BucketExcellent ColorBucket = "excellent"
)

// Buckets lists every bucket from least to most available.
var Buckets = []ColorBucket{BucketCritical, BucketLow, BucketModerate, BucketGood, BucketExcellent}

var bucketColors = map[ColorBucket]string{
	BucketCritical:  "#FF0000",
	BucketLow:       "#FF6600",
	BucketModerate:  "#FFFF00",
	BucketGood:      "#99FF00",
	BucketExcellent: "#00FF00",
}

// Color returns the marker color for the bucket.
func (b ColorBucket) Color() string {
	return bucketColors[b]
}

// BucketFor maps an availability percentage to its bucket. Upper bounds
// are inclusive: 20 is critical, 20.1 is low.
func BucketFor(pct float64) ColorBucket {
	switch {
	case pct <= 20:
		return BucketCritical
	case pct <= 40:
		return BucketLow
	case pct <= 60:
		return BucketModerate
	case pct <= 80:
		return BucketGood
	default:
		return BucketExcellent
	}
}

// TotalCapacity sums the named capacity components of r.
func TotalCapacity(r CanonicalRecord, components []string) float64 {
	var total float64
	for _, c := range components {
		switch c {
		case FieldCapAvailable:
			total += r.CapAvailable
		case FieldCapCommitted:
			total += r.CapCommitted
		case FieldCapOccupied:
			total += r.CapOccupied
		case FieldCapUnevaluated:
			total += r.CapUnevaluated
		}
	}
	return total
}

// AvailabilityPct returns available as a percentage of total, or 0 when
// total is not positive. Values above 100 are returned as-is.
func AvailabilityPct(available, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return available / total * 100
}

// Default radius bounds for map markers.
const (
	DefaultMinRadius = 5.0
	DefaultMaxRadius = 25.0
)

// RadiusScale maps total capacity onto [MinRadius, MaxRadius] on a log
// scale relative to the capacity range of a record set.
type RadiusScale struct {
	MinRadius, MaxRadius float64
	CapMin, CapMax       float64
}

// NewRadiusScale builds a scale over the capacity range of recs.
func NewRadiusScale(recs []CanonicalRecord, minRadius, maxRadius float64) RadiusScale {
	s := RadiusScale{MinRadius: minRadius, MaxRadius: maxRadius}
	for i, r := range recs {
		if i == 0 || r.CapTotal < s.CapMin {
			s.CapMin = r.CapTotal
		}
		if i == 0 || r.CapTotal > s.CapMax {
			s.CapMax = r.CapTotal
		}
	}
	return s
}

// Radius returns the marker radius for capTotal. A degenerate range yields
// MinRadius.
func (s RadiusScale) Radius(capTotal float64) float64 {
	lo := math.Log1p(s.CapMin)
	hi := math.Log1p(s.CapMax)
	if !(hi > lo) {
		return s.MinRadius
	}
	r := s.MinRadius + (s.MaxRadius-s.MinRadius)*(math.Log1p(capTotal)-lo)/(hi-lo)
	if math.IsNaN(r) {
		return s.MinRadius
	}
	return r
}

// ApplyRadius returns a copy of recs with Radius recomputed over the
// capacity range of recs itself.
func ApplyRadius(recs []CanonicalRecord, minRadius, maxRadius float64) []CanonicalRecord {
	scale := NewRadiusScale(recs, minRadius, maxRadius)
	out := make([]CanonicalRecord, len(recs))
	for i, r := range recs {
		r.Radius = Round(scale.Radius(r.CapTotal), 4)
		out[i] = r
	}
	return out
}

// Derive fills the total, percentage and bucket of r. The bucket follows
// the rounded percentage so the persisted pair is always consistent, and a
// total that rounds to zero has a zero percentage.
// Radius is left for ApplyRadius, which needs the whole record set.
func Derive(r CanonicalRecord, components []string) CanonicalRecord {
	total := TotalCapacity(r, components)
	r.CapTotal = Round(total, 2)
	r.AvailabilityPct = 0
	if r.CapTotal > 0 {
		r.AvailabilityPct = Round(AvailabilityPct(r.CapAvailable, total), 1)
	}
	r.ColorBucket = BucketFor(r.AvailabilityPct)
	return r
}
