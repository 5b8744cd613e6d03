package domain

// SourceSet is the normalized output of one source, tagged with the grid
// operator that published it.
type SourceSet struct {
	Operator string
	Records  []CanonicalRecord
}

// Merge concatenates sets in order, tags records that carry no operator
// with their set's operator, and recomputes every radius over the merged
// capacity range.
func Merge(sets []SourceSet, minRadius, maxRadius float64) []CanonicalRecord {
	n := 0
	for _, s := range sets {
		n += len(s.Records)
	}
	merged := make([]CanonicalRecord, 0, n)
	for _, s := range sets {
		for _, r := range s.Records {
			if r.GridOperator == "" {
				r.GridOperator = s.Operator
			}
			merged = append(merged, r)
		}
	}
	return ApplyRadius(merged, minRadius, maxRadius)
}
