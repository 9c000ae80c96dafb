package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	// SquareMetersPerAcre is the international acre.
	SquareMetersPerAcre = 4046.8564224
	// SquareMetersPerHectare is one hectare.
	SquareMetersPerHectare = 10000.0
)

// WGS84 ellipsoid.
const (
	wgs84SemiMajor  = 6378137.0
	wgs84Flattening = 1 / 298.257223563
)

var wgs84EccSq = wgs84Flattening * (2 - wgs84Flattening)

// ComputeArea returns the area of the shape in square metres.
//
// The ring is measured with the spherical excess formula of orb/geo (the same
// one turf.js uses) and the result is rescaled from orb's equatorial sphere to
// a sphere with the Gaussian mean radius of curvature of the WGS84 ellipsoid
// at the ring's mid latitude. For field-sized shapes this agrees with the
// ellipsoidal area to better than 0.001% at every latitude; for continental
// shapes the error grows with the latitude span.
//
// Vertices go through Validate first, so a latitude beyond the poles is an
// ErrInvalidGeometry rather than being clamped.
func ComputeArea(s Shape) (float64, error) {
	vertices, err := Validate(s.Kind, s.Vertices)
	if err != nil {
		return 0, err
	}
	return ringArea(ToRing(vertices)), nil
}

func ringArea(ring orb.Ring) float64 {
	b := ring.Bound()
	scale := gaussianRadius((b.Min.Lat()+b.Max.Lat())/2) / orb.EarthRadius
	return geo.Area(ring) * scale * scale
}

// gaussianRadius is sqrt(M*N) of the WGS84 ellipsoid at lat degrees.
func gaussianRadius(lat float64) float64 {
	s := math.Sin(lat * math.Pi / 180)
	return wgs84SemiMajor * math.Sqrt(1-wgs84EccSq) / (1 - wgs84EccSq*s*s)
}

// ToAcres converts square metres to acres. No rounding is applied.
func ToAcres(squareMeters float64) float64 {
	return squareMeters / SquareMetersPerAcre
}

// ToHectares converts square metres to hectares.
func ToHectares(squareMeters float64) float64 {
	return squareMeters / SquareMetersPerHectare
}
