package domain

import "context"

// EPSG codes the pipeline targets.
const (
	EPSGWGS84  = 4326
	EPSGETRS89 = 4258
)

// CoordinateTransformer projects a coordinate pair between reference
// systems identified by EPSG code. Results are (longitude, latitude) for
// geographic targets.
type CoordinateTransformer interface {
	Transform(ctx context.Context, fromEPSG, toEPSG int, x, y float64) (lon, lat float64, err error)
}

// BatchTransformer is implemented by transformers that can project many
// points in one call. Failed points carry a non-nil error at their index.
type BatchTransformer interface {
	TransformBatch(ctx context.Context, fromEPSG, toEPSG int, pts []Point) ([]Point, []error)
}

// Point is an x/y (or lon/lat) pair.
type Point struct {
	X, Y float64
}

// IsGeographic reports whether epsg is a latitude/longitude system the
// pipeline accepts without projection.
func IsGeographic(epsg int) bool {
	return epsg == EPSGWGS84 || epsg == EPSGETRS89
}
