package source

import (
	"testing"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReconciler() *domain.Reconciler {
	return domain.NewReconciler(nil)
}

func TestTableFromRows_HeaderBelowTitle(t *testing.T) {
	rows := [][]string{
		{"Capacidad de acceso de demanda", "", ""},
		{"", "", ""},
		{"Nombre Subestación", "Provincia", "Municipio"},
		{"ALMERIA", "Almería", "Almería"},
		{"", "", ""},
		{"Nombre Subestación", "Provincia", "Municipio"},
		{"BAZA", "Granada", "Baza"},
	}

	tbl := tableFromRows("report.csv", rows, testReconciler())

	assert.Equal(t, "report.csv", tbl.Source)
	assert.Equal(t, []string{"Nombre Subestación", "Provincia", "Municipio"}, tbl.Headers)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, "ALMERIA", tbl.Records[0]["Nombre Subestación"])
	assert.Equal(t, "Baza", tbl.Records[1]["Municipio"])
}

func TestTableFromRows_NoRecognizedHeader(t *testing.T) {
	rows := [][]string{
		{"", ""},
		{"a", "b"},
		{"1", "2"},
	}

	tbl := tableFromRows("x.csv", rows, testReconciler())

	assert.Equal(t, []string{"a", "b"}, tbl.Headers)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, domain.RawRecord{"a": "1", "b": "2"}, tbl.Records[0])
}

func TestTableFromRows_Empty(t *testing.T) {
	tbl := tableFromRows("x.csv", nil, testReconciler())
	assert.Empty(t, tbl.Headers)
	assert.Empty(t, tbl.Records)
}

func TestTableFromRows_ShortRowsPadded(t *testing.T) {
	rows := [][]string{
		{"Provincia", "Municipio", "Comentarios"},
		{"Jaén", "Úbeda"},
	}

	tbl := tableFromRows("x.csv", rows, testReconciler())

	require.Len(t, tbl.Records, 1)
	assert.Equal(t, "", tbl.Records[0]["Comentarios"])
}

func TestUniqueHeaders(t *testing.T) {
	got := uniqueHeaders([]string{"Provincia", " ", "Provincia", "Provincia", ""})
	assert.Equal(t, []string{"Provincia", "column_2", "Provincia (2)", "Provincia (3)", "column_5"}, got)
}

func TestUniqueHeaders_SuffixReconcilesToSameField(t *testing.T) {
	rec := testReconciler()
	hdrs := uniqueHeaders([]string{"Provincia", "Provincia"})

	for _, h := range hdrs {
		name, ok := rec.Canonical(h)
		require.True(t, ok, h)
		assert.Equal(t, domain.FieldProvince, name)
	}
}
