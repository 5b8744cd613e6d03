// Package projection converts between UTM grid coordinates and geographic
// longitude/latitude for the EPSG codes used by capacity reports.
package projection

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
)

// ErrUnsupportedCRS is returned for EPSG pairs the projector cannot handle.
var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

// ErrOutOfDomain is returned for coordinates the series cannot invert.
var ErrOutOfDomain = errors.New("coordinate outside projection domain")

const (
	utmScale         = 0.9996
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0

	// Accepted distance from the central meridian and the equator, in
	// metres. Wider than a nominal zone so extended-zone national grids
	// still project.
	maxEastingOffset = 1000000.0
	maxNorthing      = 10000000.0
)

type ellipsoid struct {
	a, f float64
}

var (
	grs80 = ellipsoid{a: 6378137, f: 1 / 298.257222101}
	wgs84 = ellipsoid{a: 6378137, f: 1 / 298.257223563}
)

// utmZone is one transverse Mercator zone on an ellipsoid. The ETRS89 and
// WGS84 datums are treated as coincident.
type utmZone struct {
	zone  int
	north bool
	ell   ellipsoid
}

// zoneFor resolves an EPSG code to its UTM zone:
// 25828-25838 (ETRS89 / UTM 28N-38N), 32601-32660 and 32701-32760
// (WGS 84 / UTM north and south).
func zoneFor(epsg int) (utmZone, bool) {
	switch {
	case epsg >= 25828 && epsg <= 25838:
		return utmZone{zone: epsg - 25800, north: true, ell: grs80}, true
	case epsg >= 32601 && epsg <= 32660:
		return utmZone{zone: epsg - 32600, north: true, ell: wgs84}, true
	case epsg >= 32701 && epsg <= 32760:
		return utmZone{zone: epsg - 32700, north: false, ell: wgs84}, true
	}
	return utmZone{}, false
}

func (z utmZone) centralMeridian() float64 {
	return float64(z.zone*6-183) * math.Pi / 180
}

func (z utmZone) falseNorthing() float64 {
	if z.north {
		return 0
	}
	return utmFalseNorthing
}

// series holds the Krüger coefficients for one ellipsoid, to fourth order
// in the third flattening n.
type series struct {
	n     float64
	A     float64 // rectifying radius
	alpha [4]float64
	beta  [4]float64
	delta [4]float64
}

func newSeries(e ellipsoid) series {
	n := e.f / (2 - e.f)
	n2, n3, n4 := n*n, n*n*n, n*n*n*n
	return series{
		n: n,
		A: e.a / (1 + n) * (1 + n2/4 + n4/64),
		alpha: [4]float64{
			n/2 - 2*n2/3 + 5*n3/16 + 41*n4/180,
			13*n2/48 - 3*n3/5 + 557*n4/1440,
			61*n3/240 - 103*n4/140,
			49561 * n4 / 161280,
		},
		beta: [4]float64{
			n/2 - 2*n2/3 + 37*n3/96 - n4/360,
			n2/48 + n3/15 - 437*n4/1440,
			17*n3/480 - 37*n4/840,
			4397 * n4 / 161280,
		},
		delta: [4]float64{
			2*n - 2*n2/3 - 2*n3 + 116*n4/45,
			7*n2/3 - 8*n3/5 - 227*n4/45,
			56*n3/15 - 136*n4/35,
			4279 * n4 / 630,
		},
	}
}

var seriesByEllipsoid = map[ellipsoid]series{
	grs80: newSeries(grs80),
	wgs84: newSeries(wgs84),
}

// inverse converts easting/northing to longitude/latitude in degrees.
func (z utmZone) inverse(easting, northing float64) (lon, lat float64, err error) {
	if math.IsNaN(easting) || math.IsNaN(northing) ||
		math.Abs(easting-utmFalseEasting) > maxEastingOffset ||
		math.Abs(northing-z.falseNorthing()) > maxNorthing {
		return 0, 0, fmt.Errorf("%w: E=%v N=%v", ErrOutOfDomain, easting, northing)
	}
	s := seriesByEllipsoid[z.ell]
	xi := (northing - z.falseNorthing()) / (utmScale * s.A)
	eta := (easting - utmFalseEasting) / (utmScale * s.A)

	xiP, etaP := xi, eta
	for j := 1; j <= 4; j++ {
		b := s.beta[j-1]
		k := float64(2 * j)
		xiP -= b * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= b * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	sinChi := math.Sin(xiP) / math.Cosh(etaP)
	if math.IsNaN(sinChi) || sinChi < -1 || sinChi > 1 {
		return 0, 0, fmt.Errorf("%w: E=%v N=%v", ErrOutOfDomain, easting, northing)
	}
	chi := math.Asin(sinChi)

	phi := chi
	for j := 1; j <= 4; j++ {
		phi += s.delta[j-1] * math.Sin(float64(2*j)*chi)
	}
	lambda := z.centralMeridian() + math.Atan2(math.Sinh(etaP), math.Cos(xiP))

	lon, lat = lambda*180/math.Pi, phi*180/math.Pi
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return 0, 0, fmt.Errorf("%w: E=%v N=%v", ErrOutOfDomain, easting, northing)
	}
	return lon, lat, nil
}

// forward converts longitude/latitude in degrees to easting/northing.
func (z utmZone) forward(lon, lat float64) (easting, northing float64, err error) {
	if lat <= -90 || lat >= 90 {
		return 0, 0, fmt.Errorf("%w: lat=%v", ErrOutOfDomain, lat)
	}
	s := seriesByEllipsoid[z.ell]
	phi := lat * math.Pi / 180
	dLambda := lon*math.Pi/180 - z.centralMeridian()

	c := 2 * math.Sqrt(s.n) / (1 + s.n)
	sinPhi := math.Sin(phi)
	t := math.Sinh(math.Atanh(sinPhi) - c*math.Atanh(c*sinPhi))
	xiP := math.Atan(t / math.Cos(dLambda))
	etaP := math.Atanh(math.Sin(dLambda) / math.Sqrt(1+t*t))

	xi, eta := xiP, etaP
	for j := 1; j <= 4; j++ {
		a := s.alpha[j-1]
		k := float64(2 * j)
		xi += a * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += a * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}

	easting = utmFalseEasting + utmScale*s.A*eta
	northing = z.falseNorthing() + utmScale*s.A*xi
	if math.IsNaN(easting) || math.IsInf(easting, 0) || math.IsNaN(northing) || math.IsInf(northing, 0) {
		return 0, 0, fmt.Errorf("%w: lon=%v lat=%v", ErrOutOfDomain, lon, lat)
	}
	return easting, northing, nil
}

// UTM projects between UTM zones and geographic coordinates. It implements
// domain.CoordinateTransformer and domain.BatchTransformer.
type UTM struct{}

// NewUTM returns a UTM projector.
func NewUTM() *UTM { return &UTM{} }

// Transform converts (x, y) from fromEPSG to toEPSG. Projected to
// geographic returns (lon, lat); geographic to projected takes x as
// longitude and y as latitude and returns (easting, northing).
func (u *UTM) Transform(ctx context.Context, fromEPSG, toEPSG int, x, y float64) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if fromEPSG == toEPSG {
		return x, y, nil
	}
	if z, ok := zoneFor(fromEPSG); ok && domain.IsGeographic(toEPSG) {
		return z.inverse(x, y)
	}
	if z, ok := zoneFor(toEPSG); ok && domain.IsGeographic(fromEPSG) {
		return z.forward(x, y)
	}
	if domain.IsGeographic(fromEPSG) && domain.IsGeographic(toEPSG) {
		return x, y, nil
	}
	return 0, 0, fmt.Errorf("%w: EPSG:%d to EPSG:%d", ErrUnsupportedCRS, fromEPSG, toEPSG)
}

// TransformBatch projects every point, reporting failures per index.
func (u *UTM) TransformBatch(ctx context.Context, fromEPSG, toEPSG int, pts []domain.Point) ([]domain.Point, []error) {
	out := make([]domain.Point, len(pts))
	errs := make([]error, len(pts))
	for i, p := range pts {
		x, y, err := u.Transform(ctx, fromEPSG, toEPSG, p.X, p.Y)
		out[i] = domain.Point{X: x, Y: y}
		errs[i] = err
	}
	return out, errs
}
