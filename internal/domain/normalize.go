package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// NormalizeResult holds the kept records of one source and the count of
// dropped rows per reason.
type NormalizeResult struct {
	Records []CanonicalRecord
	Dropped map[DropReason]int
}

// DroppedTotal returns the number of dropped rows.
func (r NormalizeResult) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Normalizer turns the raw table of one source into canonical records
// according to a Schema.
type Normalizer struct {
	schema      Schema
	reconciler  *Reconciler
	transformer CoordinateTransformer
	logger      *slog.Logger
	minRadius   float64
	maxRadius   float64
}

// NewNormalizer creates a Normalizer for schema. transformer may be nil for
// geographic schemas.
func NewNormalizer(schema Schema, transformer CoordinateTransformer, logger *slog.Logger, minRadius, maxRadius float64) *Normalizer {
	return &Normalizer{
		schema:      schema,
		reconciler:  schema.Reconciler(),
		transformer: transformer,
		logger:      logger,
		minRadius:   minRadius,
		maxRadius:   maxRadius,
	}
}

// Normalize reconciles headers, cleans text, coerces numbers, projects
// coordinates and derives presentation fields for every row of t. Rows
// without usable coordinates are dropped and counted. Radius is computed
// over this source only; Merge recomputes it for the combined set.
func (n *Normalizer) Normalize(ctx context.Context, operator string, t RawTable) (NormalizeResult, error) {
	if err := n.checkHeaders(t); err != nil {
		return NormalizeResult{}, err
	}

	rows := make([]RawRecord, len(t.Records))
	for i, raw := range t.Records {
		rec := n.reconciler.Apply(raw)
		for k, v := range rec {
			rec[k] = NormalizeText(v)
		}
		rows[i] = rec
	}

	coords, err := ProjectCoordinates(ctx, n.transformer, n.schema.SourceEPSG, rows)
	if err != nil {
		return NormalizeResult{}, fmt.Errorf("project coordinates: %w", err)
	}

	res := NormalizeResult{
		Records: make([]CanonicalRecord, 0, len(rows)),
		Dropped: make(map[DropReason]int),
	}
	for i, row := range rows {
		c := coords[i]
		if !c.OK() {
			res.Dropped[c.Drop]++
			n.logger.Debug("row dropped",
				"source", t.Source,
				"row", i,
				"reason", c.Drop,
				"substation", TextField(row[FieldSubstationName]),
			)
			continue
		}
		res.Records = append(res.Records, n.build(operator, row, c))
	}

	res.Records = ApplyRadius(res.Records, n.minRadius, n.maxRadius)
	return res, nil
}

func (n *Normalizer) build(operator string, row RawRecord, c Coordinate) CanonicalRecord {
	rec := CanonicalRecord{
		GridOperator:   TextField(row[FieldGridOperator]),
		SubstationName: TextField(row[FieldSubstationName]),
		SubstationID:   TextField(row[FieldSubstationID]),
		Province:       TextField(row[FieldProvince]),
		Municipality:   TextField(row[FieldMunicipality]),
		Latitude:       Round(c.Lat, 6),
		Longitude:      Round(c.Lon, 6),
		VoltageKV:      Voltage(row[FieldVoltageKV]),
		CapAvailable:   Capacity(row[FieldCapAvailable]),
		CapCommitted:   Capacity(row[FieldCapCommitted]),
		CapOccupied:    Capacity(row[FieldCapOccupied]),
		CapUnevaluated: Capacity(row[FieldCapUnevaluated]),
		Comments:       TextField(row[FieldComments]),
	}
	if rec.GridOperator == "" {
		rec.GridOperator = operator
	}
	return Derive(rec, n.schema.TotalComponents)
}

func (n *Normalizer) checkHeaders(t RawTable) error {
	present := make(map[string]bool, len(t.Headers))
	for _, h := range t.Headers {
		if name, ok := n.reconciler.Canonical(h); ok {
			present[name] = true
		}
	}
	var missing []string
	for _, f := range n.schema.RequiredFields() {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: schema %s missing %s", ErrSchemaMismatch, n.schema.Name, strings.Join(missing, ", "))
}
