package source

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_SemicolonLatin1(t *testing.T) {
	// "Almería" and "Subestación" in ISO-8859-1.
	data := "Nombre Subestaci\xf3n;Provincia;Capacidad firme disponible (MW)\n" +
		"ALMERIA;Almer\xeda;12,5\n"

	tbl, err := readCSV(context.Background(), strings.NewReader(data), "in.csv", true, testReconciler())

	require.NoError(t, err)
	assert.Equal(t, []string{"Nombre Subestación", "Provincia", "Capacidad firme disponible (MW)"}, tbl.Headers)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, "Almería", tbl.Records[0]["Provincia"])
	assert.Equal(t, "12,5", tbl.Records[0]["Capacidad firme disponible (MW)"])
}

func TestReadCSV_BOMAndComma(t *testing.T) {
	data := "\xEF\xBB\xBFprovince,municipality\nGranada,Baza\n"

	tbl, err := readCSV(context.Background(), strings.NewReader(data), "in.csv", false, testReconciler())

	require.NoError(t, err)
	assert.Equal(t, []string{"province", "municipality"}, tbl.Headers)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, "Baza", tbl.Records[0]["municipality"])
}

func TestReadCSV_QuotedMultilineHeader(t *testing.T) {
	data := "\"Nombre\nSubestación\";Provincia\nBAZA;Granada\n"

	tbl, err := readCSV(context.Background(), strings.NewReader(data), "in.csv", false, testReconciler())

	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	name, ok := testReconciler().Canonical(tbl.Headers[0])
	require.True(t, ok)
	assert.Equal(t, "substation_name", name)
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name string
		head string
		want rune
	}{
		{"semicolon", "a;b;c\n1,5;2;3", ';'},
		{"comma", "a,b,c\n1;2;3", ','},
		{"tab", "a\tb\tc", '\t'},
		{"tie prefers semicolon", "a;b,c", ';'},
		{"no delimiter", "single", ','},
		{"empty", "", ','},
		{"line break inside quoted header", "\"Nombre\nSubestación\";Provincia;Municipio\nBAZA;Granada;Baza", ';'},
		{"delimiters inside quotes ignored", "\"a,b,c\";d\n1;2", ';'},
		{"escaped quotes", "\"a \"\"x,y\"\"\";b;c\n", ';'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffDelimiter([]byte(tt.head)))
		})
	}
}
