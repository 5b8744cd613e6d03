package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Provincia", "provincia"},
		{"  Provincia  ", "provincia"},
		{"Nombre\r\nSubestación", "nombre subestación"},
		{"Capacidad firme\ndisponible   (MW)", "capacidad firme disponible (mw)"},
		{"Capacidad firme disponible (MW) [2]", "capacidad firme disponible (mw)"},
		{"Municipio (1)", "municipio"},
		{"Provincia *", "provincia"},
		{"Nivel de tensión (kV) [1] *", "nivel de tensión (kv)"},
		{"Coordenadas X (m) (ETRS89)", "coordenadas x (m) (etrs89)"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanHeader(tc.in))
		})
	}
}

func TestReconciler_Canonical(t *testing.T) {
	r := NewReconciler(nil)

	tests := []struct {
		header string
		want   string
	}{
		{"Provincia", FieldProvince},
		{"Municipio", FieldMunicipality},
		{"Coordenadas X (m) (ETRS89)", FieldX},
		{"Coordenadas Y (m) (ETRS89)", FieldY},
		{"Identificador de la subestación", FieldSubstationID},
		{"Nombre Subestación", FieldSubstationName},
		{"Nivel de tensión (kV)", FieldVoltageKV},
		{"Capacidad firme disponible (MW)", FieldCapAvailable},
		{"Capacidad disponible (MW)", FieldCapAvailable},
		{"Capacidad firme disponible (MW) [2]", FieldCapAvailable},
		{"Capacidad comprometida por cuestiones regulatorias", FieldCapCommitted},
		{"Capacidad de acceso firme de demanda ocupada (MW)", FieldCapOccupied},
		{"Capacidad de acceso firme admitida y no evaluada (MW)", FieldCapUnevaluated},
		{"Comentario Regulatorio", FieldComments},
		{"gestor_red", FieldGridOperator},
	}
	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			got, ok := r.Canonical(tc.header)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReconciler_UnrecognizedPassThrough(t *testing.T) {
	r := NewReconciler(nil)
	rename := r.Rename([]string{"Denominación del Punto de Conexión", "Provincia"})
	assert.Equal(t, "Denominación del Punto de Conexión", rename["Denominación del Punto de Conexión"])
	assert.Equal(t, FieldProvince, rename["Provincia"])
}

func TestReconciler_NoOpOnCanonicalHeaders(t *testing.T) {
	r := NewReconciler(nil)
	rename := r.Rename(CanonicalHeader)
	for _, h := range CanonicalHeader {
		assert.Equal(t, h, rename[h])
	}
}

func TestReconciler_StableUnderReordering(t *testing.T) {
	r := NewReconciler(nil)
	headers := []string{
		"Provincia", "Municipio", "Coordenadas X (m) (ETRS89)", "Coordenadas Y (m) (ETRS89)",
		"Nombre Subestación", "Capacidad firme disponible (MW) [2]", "Otra columna",
	}
	want := r.Rename(headers)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]string(nil), headers...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, r.Rename(shuffled))
	}
}

func TestReconciler_ExtraColumns(t *testing.T) {
	r := NewReconciler(map[string]string{"Cap. libre (MW)": FieldCapAvailable})
	got, ok := r.Canonical("CAP. LIBRE (MW) [3]")
	require.True(t, ok)
	assert.Equal(t, FieldCapAvailable, got)

	_, ok = NewReconciler(nil).Canonical("Cap. libre (MW)")
	assert.False(t, ok, "extra entries must not leak into the shared table")
}

func TestReconciler_Apply(t *testing.T) {
	r := NewReconciler(nil)

	t.Run("renames and keeps unknown columns", func(t *testing.T) {
		out := r.Apply(RawRecord{"Provincia": "Madrid", "Extra": "x"})
		assert.Equal(t, RawRecord{FieldProvince: "Madrid", "Extra": "x"}, out)
	})

	t.Run("non-empty value wins on conflict", func(t *testing.T) {
		out := r.Apply(RawRecord{
			"Capacidad disponible (MW)":       "",
			"Capacidad firme disponible (MW)": "12,5",
		})
		assert.Equal(t, "12,5", out[FieldCapAvailable])
	})

	t.Run("smallest header wins between non-empty values", func(t *testing.T) {
		out := r.Apply(RawRecord{"cap_disp": "1", "Capacidad disponible (MW)": "2"})
		assert.Equal(t, "2", out[FieldCapAvailable])
	})
}
