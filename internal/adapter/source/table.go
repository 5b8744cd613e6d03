package source

import (
	"strconv"
	"strings"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
)

// headerScanRows bounds how far into a sheet the header row is searched.
const headerScanRows = 25

// minRecognized is the number of reconciled columns that marks a header row.
const minRecognized = 2

// tableFromRows turns a grid of cells into a RawTable. The header is the
// row among the first headerScanRows with the most recognized columns;
// rows above it are discarded, as are blank rows and repeated headers.
func tableFromRows(source string, rows [][]string, rec *domain.Reconciler) domain.RawTable {
	t := domain.RawTable{Source: source}

	hdrIdx := findHeaderRow(rows, rec)
	if hdrIdx < 0 {
		return t
	}
	t.Headers = uniqueHeaders(rows[hdrIdx])
	headerKey := strings.Join(rows[hdrIdx], "\x00")

	for _, row := range rows[hdrIdx+1:] {
		if isBlankRow(row) || strings.Join(row, "\x00") == headerKey {
			continue
		}
		t.Records = append(t.Records, recordFromCells(t.Headers, row))
	}
	return t
}

func findHeaderRow(rows [][]string, rec *domain.Reconciler) int {
	best, bestScore := -1, 0
	firstNonBlank := -1
	for i, row := range rows {
		if i >= headerScanRows {
			break
		}
		if isBlankRow(row) {
			continue
		}
		if firstNonBlank < 0 {
			firstNonBlank = i
		}
		if score := rec.Recognized(row); score > bestScore {
			best, bestScore = i, score
		}
	}
	if bestScore >= minRecognized {
		return best
	}
	return firstNonBlank
}

// uniqueHeaders suffixes repeated header names with a footnote-style
// counter so each column keeps its own key; reconciliation strips the
// suffix again.
func uniqueHeaders(row []string) []string {
	seen := make(map[string]int, len(row))
	out := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h += " (" + strconv.Itoa(n) + ")"
		}
		out[i] = h
	}
	return out
}

func recordFromCells(headers, row []string) domain.RawRecord {
	rec := make(domain.RawRecord, len(headers))
	for i, h := range headers {
		if i < len(row) {
			rec[h] = row[i]
		} else {
			rec[h] = ""
		}
	}
	return rec
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
