package domain

import (
	"context"
	"fmt"
	"math"
)

// Coordinate is the projected location of one row, or the reason it could
// not be located.
type Coordinate struct {
	Lon, Lat float64
	Drop     DropReason
}

// OK reports whether the coordinate can be kept.
func (c Coordinate) OK() bool { return c.Drop == "" }

// ProjectCoordinates resolves WGS84 coordinates for each record. Projected
// sources read the x/y fields, geographic sources read latitude/longitude.
// A row whose inputs do not coerce is marked DropInvalidCoordinates; a row
// whose projection fails or leaves the valid range is marked
// DropTransformFailed. The batch path is used when t supports it.
func ProjectCoordinates(ctx context.Context, t CoordinateTransformer, fromEPSG int, recs []RawRecord) ([]Coordinate, error) {
	out := make([]Coordinate, len(recs))

	if IsGeographic(fromEPSG) {
		for i, r := range recs {
			lat, okLat := CoerceNumber(r[FieldLatitude])
			lon, okLon := CoerceNumber(r[FieldLongitude])
			if !okLat || !okLon {
				out[i].Drop = DropInvalidCoordinates
				continue
			}
			out[i] = checkRange(lon, lat)
		}
		return out, nil
	}

	if t == nil {
		return nil, fmt.Errorf("%w: EPSG:%d", ErrNoTransformer, fromEPSG)
	}

	pts := make([]Point, 0, len(recs))
	idx := make([]int, 0, len(recs))
	for i, r := range recs {
		x, okX := CoerceNumber(r[FieldX])
		y, okY := CoerceNumber(r[FieldY])
		if !okX || !okY {
			out[i].Drop = DropInvalidCoordinates
			continue
		}
		pts = append(pts, Point{X: x, Y: y})
		idx = append(idx, i)
	}

	if bt, ok := t.(BatchTransformer); ok {
		res, errs := bt.TransformBatch(ctx, fromEPSG, EPSGWGS84, pts)
		for k, i := range idx {
			if errs[k] != nil {
				out[i].Drop = DropTransformFailed
				continue
			}
			out[i] = checkRange(res[k].X, res[k].Y)
		}
		return out, ctx.Err()
	}

	for k, i := range idx {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lon, lat, err := t.Transform(ctx, fromEPSG, EPSGWGS84, pts[k].X, pts[k].Y)
		if err != nil {
			out[i].Drop = DropTransformFailed
			continue
		}
		out[i] = checkRange(lon, lat)
	}
	return out, nil
}

func checkRange(lon, lat float64) Coordinate {
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Coordinate{Drop: DropTransformFailed}
	}
	return Coordinate{Lon: lon, Lat: lat}
}
