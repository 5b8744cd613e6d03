package source

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/ledongthuc/pdf"
)

// PDFOptions tunes table reconstruction from PDF text.
type PDFOptions struct {
	// Password opens encrypted reports.
	Password string
	// MaxPages limits the pages read; 0 reads all.
	MaxPages int
	// RowTolerance is the vertical distance, in points, within which text
	// belongs to the same row.
	RowTolerance float64
	// ColumnTolerance is the horizontal distance, in points, within which
	// text starts belong to the same column.
	ColumnTolerance float64
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.RowTolerance <= 0 {
		o.RowTolerance = 2
	}
	if o.ColumnTolerance <= 0 {
		o.ColumnTolerance = 10
	}
	return o
}

// PDFExtractor rebuilds tables from the positioned text of a PDF report.
type PDFExtractor struct {
	opts   PDFOptions
	logger *slog.Logger
}

// NewPDFExtractor creates a PDFExtractor.
func NewPDFExtractor(opts PDFOptions, logger *slog.Logger) *PDFExtractor {
	return &PDFExtractor{opts: opts.withDefaults(), logger: logger}
}

// fragment is one positioned text run.
type fragment struct {
	X, Y float64
	S    string
}

// Extract reads every page of the report at path and returns the table it
// contains. Pages without a recognizable header continue the previous
// page's table.
func (e *PDFExtractor) Extract(ctx context.Context, path string, rec *domain.Reconciler) (_ domain.RawTable, err error) {
	// The reader panics on malformed object streams.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed pdf %s: %v", path, p)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return domain.RawTable{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return domain.RawTable{}, err
	}

	pw := e.opts.Password
	r, err := pdf.NewReaderEncrypted(f, fi.Size(), func() string {
		p := pw
		pw = ""
		return p
	})
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("open pdf %s: %w", path, err)
	}

	pages, err := e.readPages(ctx, r)
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("read pdf %s: %w", path, err)
	}

	rows, skipped := layoutRows(pages, e.opts, rec)
	if skipped > 0 {
		e.logger.Warn("pdf pages without a table header skipped", "source", path, "pages", skipped)
	}
	return tableFromRows(path, rows, rec), nil
}

func (e *PDFExtractor) readPages(ctx context.Context, r *pdf.Reader) ([][]fragment, error) {
	var pages [][]fragment
	n := r.NumPage()
	if e.opts.MaxPages > 0 && n > e.opts.MaxPages {
		n = e.opts.MaxPages
	}
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		var frags []fragment
		for _, row := range rows {
			for _, t := range row.Content {
				if strings.TrimSpace(t.S) == "" {
					continue
				}
				frags = append(frags, fragment{X: t.X, Y: t.Y, S: t.S})
			}
		}
		pages = append(pages, frags)
	}
	return pages, nil
}

var numericCellRe = regexp.MustCompile(`^\s*-?[\d.,]+\s*$`)

// minNumericCells marks a row as a data row.
const minNumericCells = 3

type pdfRow []fragment

func (r pdfRow) isData() bool {
	n := 0
	for _, f := range r {
		if numericCellRe.MatchString(f.S) {
			n++
		}
	}
	return n >= minNumericCells
}

// groupRows clusters fragments into rows from top to bottom, each sorted
// left to right.
func groupRows(frags []fragment, tol float64) []pdfRow {
	sorted := append([]fragment(nil), frags...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var rows []pdfRow
	var rowY float64
	for _, f := range sorted {
		if len(rows) == 0 || math.Abs(rowY-f.Y) > tol {
			rows = append(rows, pdfRow{f})
			rowY = f.Y
			continue
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], f)
	}
	for _, r := range rows {
		sort.SliceStable(r, func(i, j int) bool { return r[i].X < r[j].X })
	}
	return rows
}

// columnAnchors returns the left edge of each column seen in rows.
func columnAnchors(rows []pdfRow, tol float64) []float64 {
	var xs []float64
	for _, r := range rows {
		for _, f := range r {
			xs = append(xs, f.X)
		}
	}
	sort.Float64s(xs)

	var anchors []float64
	for _, x := range xs {
		if len(anchors) == 0 || x-anchors[len(anchors)-1] > tol {
			anchors = append(anchors, x)
		}
	}
	return anchors
}

// column returns the index of the anchor a fragment starting at x falls in.
func column(anchors []float64, x, tol float64) int {
	idx := 0
	for i, a := range anchors {
		if a <= x+tol {
			idx = i
		}
	}
	return idx
}

func cells(row pdfRow, anchors []float64, tol float64) []string {
	out := make([]string, len(anchors))
	for _, f := range row {
		i := column(anchors, f.X, tol)
		out[i] = strings.TrimSpace(out[i] + " " + f.S)
	}
	return out
}

// headerCells builds header text from the rows above the first data row.
// Report titles often sit above the header, so the suffix of those rows
// with the most recognized columns is used.
func headerCells(rows []pdfRow, anchors []float64, tol float64, rec *domain.Reconciler) ([]string, int) {
	var best []string
	bestScore := -1
	for k := 1; k <= len(rows); k++ {
		hdr := make([]string, len(anchors))
		for _, r := range rows[len(rows)-k:] {
			for i, c := range cells(r, anchors, tol) {
				if c != "" {
					hdr[i] = strings.TrimSpace(hdr[i] + " " + c)
				}
			}
		}
		if score := rec.Recognized(hdr); score > bestScore {
			best, bestScore = hdr, score
		}
	}
	return best, bestScore
}

// layoutRows turns positioned text into a grid whose first row is the
// header. Non-data rows that follow a data row are wrapped cell text and
// are appended to that row. It returns the number of pages skipped for
// lack of a header.
func layoutRows(pages [][]fragment, opts PDFOptions, rec *domain.Reconciler) ([][]string, int) {
	opts = opts.withDefaults()

	var (
		header  []string
		anchors []float64
		colMap  []int
		out     [][]string
		skipped int
	)
	for _, frags := range pages {
		rows := groupRows(frags, opts.RowTolerance)

		first := -1
		var dataRows []pdfRow
		for i, r := range rows {
			if r.isData() {
				if first < 0 {
					first = i
				}
				dataRows = append(dataRows, r)
			}
		}
		if first < 0 {
			continue
		}

		if first > 0 {
			pageAnchors := columnAnchors(dataRows, opts.ColumnTolerance)
			hdr, score := headerCells(rows[:first], pageAnchors, opts.ColumnTolerance, rec)
			if score >= minRecognized {
				if header == nil {
					header = hdr
					out = append(out, hdr)
				}
				anchors = pageAnchors
				colMap = mapColumns(hdr, header, rec)
			}
		}
		if header == nil {
			skipped++
			continue
		}

		prev := -1
		for _, r := range rows[first:] {
			c := remap(cells(r, anchors, opts.ColumnTolerance), colMap, len(header))
			if r.isData() {
				out = append(out, c)
				prev = len(out) - 1
				continue
			}
			if prev < 0 {
				continue
			}
			for i, text := range c {
				if text != "" && i < len(out[prev]) {
					out[prev][i] = strings.TrimSpace(out[prev][i] + " " + text)
				}
			}
		}
	}
	return out, skipped
}

// mapColumns maps each column of a page header onto the column of the
// first header with the same canonical field, or the same text when the
// column is not recognized. Unmatched columns map to -1.
func mapColumns(hdr, first []string, rec *domain.Reconciler) []int {
	key := func(h string) string {
		if c, ok := rec.Canonical(h); ok {
			return c
		}
		return domain.CleanHeader(h)
	}
	pos := make(map[string]int, len(first))
	for i, h := range first {
		if _, dup := pos[key(h)]; !dup {
			pos[key(h)] = i
		}
	}
	m := make([]int, len(hdr))
	for i, h := range hdr {
		j, ok := pos[key(h)]
		if !ok {
			j = -1
		}
		m[i] = j
	}
	return m
}

func remap(c []string, colMap []int, width int) []string {
	out := make([]string, width)
	for i, text := range c {
		if i < len(colMap) && colMap[i] >= 0 {
			out[colMap[i]] = text
		}
	}
	return out
}
