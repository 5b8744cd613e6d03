package domain

import (
	"fmt"
	"sort"
)

// Schema describes one known source layout: its operator-specific header
// synonyms, which capacity components add up to the total, and the
// coordinate reference system of its x/y columns.
type Schema struct {
	Name        string
	Description string

	// Columns holds header variants beyond the shared reconciliation table.
	Columns map[string]string

	// TotalComponents lists the capacity fields summed into cap_total.
	TotalComponents []string

	// SourceEPSG is the CRS of the source coordinates. Geographic codes
	// (4326, 4258) read latitude/longitude columns directly.
	SourceEPSG int
}

// RequiredFields returns the canonical fields a source must provide after
// reconciliation for this schema.
func (s Schema) RequiredFields() []string {
	fields := []string{FieldSubstationName}
	if IsGeographic(s.SourceEPSG) {
		fields = append(fields, FieldLatitude, FieldLongitude)
	} else {
		fields = append(fields, FieldX, FieldY)
	}
	return append(fields, s.TotalComponents...)
}

// Reconciler returns a Reconciler for this schema's header variants.
func (s Schema) Reconciler() *Reconciler {
	return NewReconciler(s.Columns)
}

var (
	threeComponentTotal = []string{FieldCapAvailable, FieldCapOccupied, FieldCapUnevaluated}
	fourComponentTotal  = []string{FieldCapAvailable, FieldCapCommitted, FieldCapOccupied, FieldCapUnevaluated}
)

var schemas = map[string]Schema{
	"demand-v1": {
		Name:            "demand-v1",
		Description:     "Demand access capacity report, ETRS89 UTM 30N, total excludes committed capacity",
		TotalComponents: threeComponentTotal,
		SourceEPSG:      25830,
	},
	"demand-v2": {
		Name:        "demand-v2",
		Description: "Demand access capacity report, ETRS89 UTM 30N, total includes committed capacity",
		Columns: map[string]string{
			"Capacidad comprometida (MW)":               FieldCapCommitted,
			"Capacidad de demanda ocupada (MW)":         FieldCapOccupied,
			"Capacidad admitida no evaluada (MW)":       FieldCapUnevaluated,
			"Capacidad de acceso firme disponible (MW)": FieldCapAvailable,
			"Identificador Subestación":                 FieldSubstationID,
			"Subestación":                               FieldSubstationName,
		},
		TotalComponents: fourComponentTotal,
		SourceEPSG:      25830,
	},
	"canonical": {
		Name:            "canonical",
		Description:     "Previously normalized table with WGS84 coordinates",
		TotalComponents: fourComponentTotal,
		SourceEPSG:      4326,
	},
}

// DefaultSchema is used when a source does not name one.
const DefaultSchema = "demand-v1"

// LookupSchema returns the registered schema with the given name.
func LookupSchema(name string) (Schema, error) {
	if name == "" {
		name = DefaultSchema
	}
	s, ok := schemas[name]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return s, nil
}

// SchemaNames returns the registered schema names in sorted order.
func SchemaNames() []string {
	names := make([]string, 0, len(schemas))
	for n := range schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
