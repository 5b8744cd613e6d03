package output

import (
	"fmt"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "capacity"

// WriteXLSX exports recs to a workbook with one sheet laid out like the
// canonical table. Numeric columns are written as numbers; a missing
// voltage is an empty cell.
func WriteXLSX(path string, recs []domain.CanonicalRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	header := make([]any, len(domain.CanonicalHeader))
	for i, h := range domain.CanonicalHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	if err := f.SetPanes(xlsxSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("xlsx panes: %w", err)
	}

	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx row %d: %w", i, err)
		}
		row := xlsxRow(r)
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func xlsxRow(r domain.CanonicalRecord) []any {
	var voltage any
	if r.VoltageKV != nil {
		voltage = *r.VoltageKV
	}
	return []any{
		r.GridOperator,
		r.SubstationName,
		r.SubstationID,
		r.Province,
		r.Municipality,
		r.Latitude,
		r.Longitude,
		voltage,
		r.CapAvailable,
		r.CapCommitted,
		r.CapOccupied,
		r.CapUnevaluated,
		r.CapTotal,
		r.AvailabilityPct,
		string(r.ColorBucket),
		r.Radius,
		r.Comments,
	}
}
