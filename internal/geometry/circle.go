package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Circle approximates a circle of radius metres around center with a ring of
// segments vertices, starting due north and running clockwise. It is used for
// the illustrative project areas, so a spherical earth is close enough.
func Circle(center LatLng, radius float64, segments int) []LatLng {
	if segments < 3 {
		segments = 3
	}
	out := make([]LatLng, segments)
	c := orb.Point{center.Lon, center.Lat}
	for i := range out {
		bearing := 360 * float64(i) / float64(segments)
		out[i] = NormalizeLatLon(FromPoint(geo.PointAtBearingAndDistance(c, bearing, radius)))
	}
	return out
}
