package source

import (
	"context"
	"fmt"
	"io"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first sheet that contains a recognizable header.
// Raw cell values are used so number formats do not leak into the data.
func readXLSX(_ context.Context, r io.Reader, source string, rec *domain.Reconciler) (domain.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("open %s: %w", source, err)
	}
	defer f.Close()

	var fallback *domain.RawTable
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return domain.RawTable{}, fmt.Errorf("read %s sheet %q: %w", source, sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		t := tableFromRows(source, rows, rec)
		if rec.Recognized(t.Headers) >= minRecognized {
			return t, nil
		}
		if fallback == nil {
			fallback = &t
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return domain.RawTable{Source: source}, nil
}
