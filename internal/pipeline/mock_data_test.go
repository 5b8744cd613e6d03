package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/source"
	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/stretchr/testify/require"
)

// demandHeaders is the header row of a demand access capacity report.
var demandHeaders = []string{
	"Gestor",
	"Provincia",
	"Municipio",
	"Coordenadas X (m) (ETRS89)",
	"Coordenadas Y (m) (ETRS89)",
	"Identificador de la subestación",
	"Nombre Subestación",
	"Nivel de tensión (kV)",
	"Capacidad firme disponible (MW)",
	"Capacidad comprometida por cuestiones regulatorias",
	"Capacidad de acceso firme de demanda ocupada (MW)",
	"Capacidad de acceso firme admitida y no evaluada (MW)",
	"Comentario Regulatorio",
}

// writeDemandCSV writes a semicolon separated report with a title line
// above the header, the way operators publish them.
func writeDemandCSV(t *testing.T, dir, name string, rows [][]string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Capacidad de acceso de demanda;;;\n")
	b.WriteString(strings.Join(demandHeaders, ";") + "\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r, ";") + "\n")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

// canonicalTable builds a raw table in the canonical layout, which needs no
// coordinate projection.
func canonicalTable(src string, rows ...domain.RawRecord) domain.RawTable {
	return domain.RawTable{
		Source: src,
		Headers: []string{
			domain.FieldSubstationName, domain.FieldSubstationID,
			domain.FieldLatitude, domain.FieldLongitude,
			domain.FieldCapAvailable, domain.FieldCapCommitted,
			domain.FieldCapOccupied, domain.FieldCapUnevaluated,
		},
		Records: rows,
	}
}

func canonicalRow(id string, lat, lon, available, total string) domain.RawRecord {
	return domain.RawRecord{
		domain.FieldSubstationName: "SE " + id,
		domain.FieldSubstationID:   id,
		domain.FieldLatitude:       lat,
		domain.FieldLongitude:      lon,
		domain.FieldCapAvailable:   available,
		domain.FieldCapCommitted:   "0",
		domain.FieldCapOccupied:    total,
		domain.FieldCapUnevaluated: "0",
	}
}

// fakeLoader serves tables by path.
type fakeLoader struct {
	mu     sync.Mutex
	tables map[string]domain.RawTable
	errs   map[string]error
	delays map[string]time.Duration
	calls  atomic.Int64
}

func (f *fakeLoader) Load(ctx context.Context, in source.Input, _ *domain.Reconciler) (domain.RawTable, error) {
	f.calls.Add(1)
	f.mu.Lock()
	t, ok := f.tables[in.Path]
	err := f.errs[in.Path]
	d := f.delays[in.Path]
	f.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return domain.RawTable{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.RawTable{}, err
	}
	if !ok {
		return domain.RawTable{}, domain.ErrMissingSource
	}
	return t, nil
}
