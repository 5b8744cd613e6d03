// Package output persists the canonical capacity table and reads it back.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
)

// WriteCSV writes recs as the canonical table: UTF-8, comma separated,
// header first, numbers in plain decimal notation and \n line endings.
func WriteCSV(w io.Writer, recs []domain.CanonicalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.CanonicalHeader); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutputWrite, err)
	}
	for _, r := range recs {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrOutputWrite, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutputWrite, err)
	}
	return nil
}

// WriteCSVFile writes recs to path through a temporary file in the same
// directory, so readers never observe a partially written table.
func WriteCSVFile(path string, recs []domain.CanonicalRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutputWrite, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutputWrite, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, recs); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutputWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrOutputWrite, err)
	}
	return nil
}

func csvRow(r domain.CanonicalRecord) []string {
	voltage := ""
	if r.VoltageKV != nil {
		voltage = domain.FormatNumber(*r.VoltageKV)
	}
	return []string{
		r.GridOperator,
		r.SubstationName,
		r.SubstationID,
		r.Province,
		r.Municipality,
		domain.FormatNumber(r.Latitude),
		domain.FormatNumber(r.Longitude),
		voltage,
		domain.FormatNumber(r.CapAvailable),
		domain.FormatNumber(r.CapCommitted),
		domain.FormatNumber(r.CapOccupied),
		domain.FormatNumber(r.CapUnevaluated),
		domain.FormatNumber(r.CapTotal),
		domain.FormatNumber(r.AvailabilityPct),
		string(r.ColorBucket),
		domain.FormatNumber(r.Radius),
		r.Comments,
	}
}
