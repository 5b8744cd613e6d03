package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/couchcryptid/grid-capacity-etl/internal/observability"
)

// Format identifies a source file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Supported encodings for delimited text.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// ErrUnsupportedFormat is returned for file extensions no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Input names one file to load.
type Input struct {
	Path string
	// Encoding applies to delimited text; empty uses the loader default.
	Encoding string
}

// Loader reads source files into RawTables. The PDF extractor is only
// constructed when the first PDF source is loaded.
type Loader struct {
	encoding string
	metrics  *observability.Metrics
	logger   *slog.Logger

	newPDF  func() *PDFExtractor
	pdfOnce sync.Once
	pdf     *PDFExtractor
}

// NewLoader creates a Loader. encoding is the default for delimited text.
func NewLoader(encoding string, pdfOpts PDFOptions, metrics *observability.Metrics, logger *slog.Logger) *Loader {
	return &Loader{
		encoding: encoding,
		metrics:  metrics,
		logger:   logger,
		newPDF: func() *PDFExtractor {
			logger.Info("initializing pdf extractor", "max_pages", pdfOpts.MaxPages, "row_tolerance", pdfOpts.RowTolerance)
			return NewPDFExtractor(pdfOpts, logger)
		},
	}
}

// Load reads in and returns its table with headers as found in the file.
// A missing file yields an error wrapping domain.ErrMissingSource.
func (l *Loader) Load(ctx context.Context, in Input, rec *domain.Reconciler) (domain.RawTable, error) {
	format, err := FormatOf(in.Path)
	if err != nil {
		return domain.RawTable{}, err
	}

	if _, err := os.Stat(in.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.RawTable{}, fmt.Errorf("%w: %s", domain.ErrMissingSource, in.Path)
		}
		return domain.RawTable{}, fmt.Errorf("stat %s: %w", in.Path, err)
	}

	start := time.Now()
	t, err := l.read(ctx, format, in, rec)
	l.metrics.SourceDuration.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.RawTable{}, err
	}

	l.logger.Debug("source loaded", "source", in.Path, "format", format, "rows", len(t.Records), "columns", len(t.Headers))
	return t, nil
}

func (l *Loader) read(ctx context.Context, format Format, in Input, rec *domain.Reconciler) (domain.RawTable, error) {
	if format == FormatPDF {
		return l.pdfExtractor().Extract(ctx, in.Path, rec)
	}

	f, err := os.Open(in.Path)
	if err != nil {
		return domain.RawTable{}, err
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		enc := in.Encoding
		if enc == "" {
			enc = l.encoding
		}
		return readCSV(ctx, f, in.Path, isLatin1(enc), rec)
	case FormatXLSX:
		return readXLSX(ctx, f, in.Path, rec)
	default:
		return readHTML(ctx, f, in.Path, rec)
	}
}

func (l *Loader) pdfExtractor() *PDFExtractor {
	l.pdfOnce.Do(func() {
		l.pdf = l.newPDF()
	})
	return l.pdf
}

func isLatin1(enc string) bool {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case EncodingLatin1, "latin1", "iso-8859-1", "iso8859-1":
		return true
	}
	return false
}
