package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/jszwec/csvutil"
)

// csvRecord mirrors one row of the canonical table. Voltage stays a string
// so an empty cell can be told apart from 0.
type csvRecord struct {
	GridOperator    string  `csv:"grid_operator"`
	SubstationName  string  `csv:"substation_name"`
	SubstationID    string  `csv:"substation_id"`
	Province        string  `csv:"province"`
	Municipality    string  `csv:"municipality"`
	Latitude        float64 `csv:"latitude"`
	Longitude       float64 `csv:"longitude"`
	VoltageKV       string  `csv:"voltage_kv"`
	CapAvailable    float64 `csv:"cap_available"`
	CapCommitted    float64 `csv:"cap_committed"`
	CapOccupied     float64 `csv:"cap_occupied"`
	CapUnevaluated  float64 `csv:"cap_unevaluated"`
	CapTotal        float64 `csv:"cap_total"`
	AvailabilityPct float64 `csv:"availability_pct"`
	ColorBucket     string  `csv:"color_bucket"`
	Radius          float64 `csv:"radius"`
	Comments        string  `csv:"comments"`
}

func (c csvRecord) canonical() domain.CanonicalRecord {
	return domain.CanonicalRecord{
		GridOperator:    c.GridOperator,
		SubstationName:  c.SubstationName,
		SubstationID:    c.SubstationID,
		Province:        c.Province,
		Municipality:    c.Municipality,
		Latitude:        c.Latitude,
		Longitude:       c.Longitude,
		VoltageKV:       domain.Voltage(c.VoltageKV),
		CapAvailable:    c.CapAvailable,
		CapCommitted:    c.CapCommitted,
		CapOccupied:     c.CapOccupied,
		CapUnevaluated:  c.CapUnevaluated,
		CapTotal:        c.CapTotal,
		AvailabilityPct: c.AvailabilityPct,
		ColorBucket:     domain.ColorBucket(c.ColorBucket),
		Radius:          c.Radius,
		Comments:        c.Comments,
	}
}

// ReadCSV decodes a canonical table written by WriteCSV.
func ReadCSV(r io.Reader) ([]domain.CanonicalRecord, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read canonical header: %w", err)
	}

	var rows []csvRecord
	if err := dec.Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode canonical table: %w", err)
	}

	recs := make([]domain.CanonicalRecord, len(rows))
	for i, row := range rows {
		recs[i] = row.canonical()
	}
	return recs, nil
}

// ReadCSVFile decodes the canonical table at path.
func ReadCSVFile(path string) ([]domain.CanonicalRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
