package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV parses a delimited text table. The delimiter is sniffed from the
// first line; latin1 decodes ISO-8859-1 input.
func readCSV(_ context.Context, r io.Reader, source string, latin1 bool, rec *domain.Reconciler) (domain.RawTable, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	br := bufio.NewReader(r)

	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return domain.RawTable{}, fmt.Errorf("read %s: %w", source, err)
	}
	if bytes.HasPrefix(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return domain.RawTable{}, fmt.Errorf("read %s: %w", source, err)
		}
		head = head[len(utf8BOM):]
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("parse %s: %w", source, err)
	}
	return tableFromRows(source, rows, rec), nil
}

// sniffDelimiter picks the most frequent of ';', '\t' and ',' in the first
// record, skipping quoted text so a header cell with an embedded line break
// still counts. Semicolons win ties since comma-decimal exports use them.
func sniffDelimiter(head []byte) rune {
	counts := map[byte]int{}
	quoted := false
scan:
	for _, b := range head {
		switch {
		case b == '"':
			quoted = !quoted
		case quoted:
		case b == '\n':
			break scan
		case b == ';', b == '\t', b == ',':
			counts[b]++
		}
	}

	best, bestCount := rune(';'), counts[';']
	for _, d := range []byte{'\t', ','} {
		if counts[d] > bestCount {
			best, bestCount = rune(d), counts[d]
		}
	}
	if bestCount == 0 {
		return ','
	}
	return best
}
