package domain

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type recordingTransformer struct {
	calls []Point
	lon   float64
	lat   float64
}

func (m *recordingTransformer) Transform(_ context.Context, _, _ int, x, y float64) (float64, float64, error) {
	m.calls = append(m.calls, Point{X: x, Y: y})
	switch {
	case x < 0:
		return 0, 0, errors.New("outside projection domain")
	case y == 1:
		return m.lon, 95, nil
	case y == 2:
		return math.NaN(), m.lat, nil
	}
	return m.lon, m.lat, nil
}

type batchTransformer struct {
	recordingTransformer
	batches int
}

func (m *batchTransformer) TransformBatch(ctx context.Context, from, to int, pts []Point) ([]Point, []error) {
	m.batches++
	out := make([]Point, len(pts))
	errs := make([]error, len(pts))
	for i, p := range pts {
		lon, lat, err := m.recordingTransformer.Transform(ctx, from, to, p.X, p.Y)
		out[i] = Point{X: lon, Y: lat}
		errs[i] = err
	}
	return out, errs
}

// --- tests ---

func TestProjectCoordinates_CoercesCommaDecimals(t *testing.T) {
	tr := &recordingTransformer{lon: -3.5, lat: 37.25}
	recs := []RawRecord{{FieldX: "509123,45", FieldY: "4123456,78"}}

	coords, err := ProjectCoordinates(context.Background(), tr, 25830, recs)
	require.NoError(t, err)
	require.Len(t, tr.calls, 1)
	assert.Equal(t, Point{X: 509123.45, Y: 4123456.78}, tr.calls[0])
	assert.True(t, coords[0].OK())
	assert.Equal(t, -3.5, coords[0].Lon)
	assert.Equal(t, 37.25, coords[0].Lat)
}

func TestProjectCoordinates_DropReasons(t *testing.T) {
	recs := []RawRecord{
		{FieldX: "500000", FieldY: "4000000"},
		{FieldX: "", FieldY: "4000000"},
		{FieldX: "n/d", FieldY: "n/d"},
		{FieldX: "-1", FieldY: "4000000"},
		{FieldX: "500000", FieldY: "1"},
		{FieldX: "500000", FieldY: "2"},
	}
	want := []DropReason{"", DropInvalidCoordinates, DropInvalidCoordinates, DropTransformFailed, DropTransformFailed, DropTransformFailed}

	t.Run("row-wise", func(t *testing.T) {
		tr := &recordingTransformer{lon: -3, lat: 36}
		coords, err := ProjectCoordinates(context.Background(), tr, 25830, recs)
		require.NoError(t, err)
		for i, c := range coords {
			assert.Equal(t, want[i], c.Drop, "row %d", i)
		}
		assert.Len(t, tr.calls, 4, "rows with invalid input are not sent to the transformer")
	})

	t.Run("batched", func(t *testing.T) {
		tr := &batchTransformer{recordingTransformer: recordingTransformer{lon: -3, lat: 36}}
		coords, err := ProjectCoordinates(context.Background(), tr, 25830, recs)
		require.NoError(t, err)
		assert.Equal(t, 1, tr.batches)
		for i, c := range coords {
			assert.Equal(t, want[i], c.Drop, "row %d", i)
		}
	})
}

func TestProjectCoordinates_Geographic(t *testing.T) {
	recs := []RawRecord{
		{FieldLatitude: "40,416775", FieldLongitude: "-3,703790"},
		{FieldLatitude: "", FieldLongitude: "-3.7"},
		{FieldLatitude: "140", FieldLongitude: "-3.7"},
	}
	coords, err := ProjectCoordinates(context.Background(), nil, EPSGWGS84, recs)
	require.NoError(t, err)

	assert.True(t, coords[0].OK())
	assert.Equal(t, 40.416775, coords[0].Lat)
	assert.Equal(t, -3.70379, coords[0].Lon)
	assert.Equal(t, DropInvalidCoordinates, coords[1].Drop)
	assert.Equal(t, DropTransformFailed, coords[2].Drop)
}

func TestProjectCoordinates_NoTransformer(t *testing.T) {
	_, err := ProjectCoordinates(context.Background(), nil, 25830, []RawRecord{{FieldX: "1", FieldY: "2"}})
	require.ErrorIs(t, err, ErrNoTransformer)
}

func TestProjectCoordinates_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ProjectCoordinates(ctx, &recordingTransformer{}, 25830, []RawRecord{{FieldX: "1", FieldY: "2"}})
	require.ErrorIs(t, err, context.Canceled)
}
