package domain

// RawRecord is one row as extracted from a source file, keyed by the
// source's own column header. Values are strings or numbers.
type RawRecord map[string]any

// Canonical field names. These are also the canonical CSV header names.
const (
	FieldGridOperator    = "grid_operator"
	FieldSubstationName  = "substation_name"
	FieldSubstationID    = "substation_id"
	FieldProvince        = "province"
	FieldMunicipality    = "municipality"
	FieldLatitude        = "latitude"
	FieldLongitude       = "longitude"
	FieldVoltageKV       = "voltage_kv"
	FieldCapAvailable    = "cap_available"
	FieldCapCommitted    = "cap_committed"
	FieldCapOccupied     = "cap_occupied"
	FieldCapUnevaluated  = "cap_unevaluated"
	FieldCapTotal        = "cap_total"
	FieldAvailabilityPct = "availability_pct"
	FieldColorBucket     = "color_bucket"
	FieldRadius          = "radius"
	FieldComments        = "comments"

	// Projected source coordinates, consumed by the coordinate transform
	// and never written to the canonical table.
	FieldX = "x"
	FieldY = "y"
)

// CanonicalHeader is the column order of the persisted canonical table.
var CanonicalHeader = []string{
	FieldGridOperator,
	FieldSubstationName,
	FieldSubstationID,
	FieldProvince,
	FieldMunicipality,
	FieldLatitude,
	FieldLongitude,
	FieldVoltageKV,
	FieldCapAvailable,
	FieldCapCommitted,
	FieldCapOccupied,
	FieldCapUnevaluated,
	FieldCapTotal,
	FieldAvailabilityPct,
	FieldColorBucket,
	FieldRadius,
	FieldComments,
}

// CanonicalRecord is one substation connection point after normalization.
// Records are produced by a pipeline run and not modified afterwards;
// operations that change derived fields return new slices.
type CanonicalRecord struct {
	GridOperator   string `json:"grid_operator"`
	SubstationName string `json:"substation_name"`
	SubstationID   string `json:"substation_id"`
	Province       string `json:"province"`
	Municipality   string `json:"municipality"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// VoltageKV is nil when the source cell was empty or unparsable.
	VoltageKV *float64 `json:"voltage_kv"`

	CapAvailable   float64 `json:"cap_available"`
	CapCommitted   float64 `json:"cap_committed"`
	CapOccupied    float64 `json:"cap_occupied"`
	CapUnevaluated float64 `json:"cap_unevaluated"`

	CapTotal        float64     `json:"cap_total"`
	AvailabilityPct float64     `json:"availability_pct"`
	ColorBucket     ColorBucket `json:"color_bucket"`
	Radius          float64     `json:"radius"`

	Comments string `json:"comments,omitempty"`
}

// Key identifies a record within a merged snapshot.
func (r CanonicalRecord) Key() string {
	return r.GridOperator + "|" + r.SubstationID
}

// RawTable is the extracted content of one source file.
type RawTable struct {
	Source  string
	Headers []string
	Records []RawRecord
}
