package source

import (
	"context"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
)

// readHTML reads the first <table> whose header reconciles, falling back
// to the first table in the document.
func readHTML(_ context.Context, r io.Reader, source string, rec *domain.Reconciler) (domain.RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("parse %s: %w", source, err)
	}

	var tables []domain.RawTable
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, cell.Text())
			})
			rows = append(rows, cells)
		})
		tables = append(tables, tableFromRows(source, rows, rec))
	})

	for _, t := range tables {
		if rec.Recognized(t.Headers) >= minRecognized {
			return t, nil
		}
	}
	if len(tables) > 0 {
		return tables[0], nil
	}
	return domain.RawTable{Source: source}, nil
}
