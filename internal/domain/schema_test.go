package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSchema(t *testing.T) {
	s, err := LookupSchema("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema, s.Name)
	assert.Equal(t, 25830, s.SourceEPSG)

	_, err = LookupSchema("nope")
	require.ErrorIs(t, err, ErrUnknownSchema)
}

func TestSchemaNames(t *testing.T) {
	assert.Equal(t, []string{"canonical", "demand-v1", "demand-v2"}, SchemaNames())
}

func TestSchema_RequiredFields(t *testing.T) {
	v1, err := LookupSchema("demand-v1")
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{FieldSubstationName, FieldX, FieldY, FieldCapAvailable, FieldCapOccupied, FieldCapUnevaluated},
		v1.RequiredFields())

	c, err := LookupSchema("canonical")
	require.NoError(t, err)
	assert.Contains(t, c.RequiredFields(), FieldLatitude)
	assert.NotContains(t, c.RequiredFields(), FieldX)
}

func TestSchema_OperatorColumns(t *testing.T) {
	v2, err := LookupSchema("demand-v2")
	require.NoError(t, err)

	got, ok := v2.Reconciler().Canonical("Capacidad de demanda ocupada (MW) [1]")
	require.True(t, ok)
	assert.Equal(t, FieldCapOccupied, got)
}
