// Package geometry holds the coordinate and area utilities behind drawn map
// annotations: vertex validation, longitude/latitude normalisation and
// geodesic area.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidGeometry is returned for shapes that cannot be registered.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Kind is the drawing tool that produced a shape.
type Kind string

const (
	Polygon   Kind = "polygon"
	Rectangle Kind = "rectangle"
)

// ParseKind accepts the drawing tool's layer type names, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Polygon:
		return Polygon, nil
	case Rectangle:
		return Rectangle, nil
	}
	return "", fmt.Errorf("%w: unknown shape kind %q", ErrInvalidGeometry, s)
}

// Title returns the display name used in popups.
func (k Kind) Title() string {
	switch k {
	case Rectangle:
		return "Rectangle"
	case Polygon:
		return "Polygon"
	}
	return string(k)
}

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat" minimum:"-90" maximum:"90" doc:"Latitude in degrees" example:"37.0"`
	Lon float64 `json:"lon" doc:"Longitude in degrees" example:"-122.0"`
}

// Point returns the coordinate in orb's (lon, lat) order.
func (ll LatLng) Point() orb.Point {
	return orb.Point{ll.Lon, ll.Lat}
}

// FromPoint converts an orb point back to a LatLng.
func FromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lon: p.Lon()}
}

// Shape is a user-drawn polygon or rectangle.
type Shape struct {
	ID               string   `json:"id" doc:"Shape identifier" example:"5b0e2b86-8d4b-4bb2-9a0c-0b8f3c1f9e2a"`
	Kind             Kind     `json:"kind" enum:"polygon,rectangle" doc:"Drawing tool that produced the shape" example:"rectangle"`
	Vertices         []LatLng `json:"vertices" minItems:"3" doc:"Ring vertices in drawing order, not closed"`
	AreaSquareMeters float64  `json:"areaSquareMeters" doc:"Geodesic area in square metres"`
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	s.Vertices = append([]LatLng(nil), s.Vertices...)
	return s
}

// AreaAcres returns the shape's area in acres.
func (s Shape) AreaAcres() float64 {
	return ToAcres(s.AreaSquareMeters)
}

// Ring returns the shape's vertices as a closed orb ring.
func (s Shape) Ring() orb.Ring {
	return ToRing(s.Vertices)
}

// NormalizeLatLon wraps longitude into [-180, 180) and clamps latitude into
// [-90, 90].
func NormalizeLatLon(ll LatLng) LatLng {
	lon := math.Mod(ll.Lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return LatLng{
		Lat: math.Max(-90, math.Min(90, ll.Lat)),
		Lon: lon - 180,
	}
}

// ToRing builds a closed orb ring from vertices. Longitudes are unwrapped so
// that a ring crossing the antimeridian stays contiguous.
func ToRing(vertices []LatLng) orb.Ring {
	if len(vertices) == 0 {
		return nil
	}
	ring := make(orb.Ring, 0, len(vertices)+1)
	prev := vertices[0].Lon
	for _, v := range vertices {
		lon := v.Lon
		for lon-prev > 180 {
			lon -= 360
		}
		for lon-prev < -180 {
			lon += 360
		}
		ring = append(ring, orb.Point{lon, v.Lat})
		prev = lon
	}
	if !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}

// Centroid returns the area-weighted centre of the vertices.
func Centroid(vertices []LatLng) LatLng {
	c, _ := planar.CentroidArea(ToRing(vertices))
	return NormalizeLatLon(FromPoint(c))
}

// Bound returns the bounding box of the vertices.
func Bound(vertices []LatLng) orb.Bound {
	return ToRing(vertices).Bound()
}

// IsClockwise reports the winding of the ring in (lon, lat) space.
func IsClockwise(vertices []LatLng) bool {
	return ToRing(vertices).Orientation() == orb.CW
}

// Validate checks a draw against the shape rules and returns normalised
// vertices. Longitudes wrap into [-180, 180); latitudes outside [-90, 90]
// are rejected. A closing vertex equal to the first one is dropped.
func Validate(kind Kind, vertices []LatLng) ([]LatLng, error) {
	if kind != Polygon && kind != Rectangle {
		return nil, fmt.Errorf("%w: unknown shape kind %q", ErrInvalidGeometry, kind)
	}

	out := make([]LatLng, 0, len(vertices))
	for i, v := range vertices {
		if math.IsNaN(v.Lat) || math.IsNaN(v.Lon) || math.IsInf(v.Lat, 0) || math.IsInf(v.Lon, 0) {
			return nil, fmt.Errorf("%w: vertex %d is not a finite coordinate", ErrInvalidGeometry, i)
		}
		if v.Lat < -90 || v.Lat > 90 {
			return nil, fmt.Errorf("%w: vertex %d latitude %v outside [-90, 90]", ErrInvalidGeometry, i, v.Lat)
		}
		out = append(out, NormalizeLatLon(v))
	}
	if n := len(out); n > 1 && out[0] == out[n-1] {
		out = out[:n-1]
	}

	if len(out) < 3 {
		return nil, fmt.Errorf("%w: %s needs at least 3 vertices, got %d", ErrInvalidGeometry, kind, len(out))
	}
	for i := range out {
		if out[i] == out[(i+1)%len(out)] {
			return nil, fmt.Errorf("%w: vertex %d repeats its neighbour", ErrInvalidGeometry, i)
		}
	}
	if kind == Rectangle {
		if err := checkRectangle(out); err != nil {
			return nil, err
		}
	}

	ring := ToRing(out)
	if selfIntersects(ring) {
		return nil, fmt.Errorf("%w: ring is self-intersecting", ErrInvalidGeometry)
	}
	if planar.Area(ring) == 0 {
		return nil, fmt.Errorf("%w: ring has zero area", ErrInvalidGeometry)
	}
	return out, nil
}

func checkRectangle(vs []LatLng) error {
	if len(vs) != 4 {
		return fmt.Errorf("%w: rectangle needs 4 corners, got %d", ErrInvalidGeometry, len(vs))
	}
	lats := map[float64]struct{}{}
	lons := map[float64]struct{}{}
	for i, v := range vs {
		lats[v.Lat] = struct{}{}
		lons[v.Lon] = struct{}{}
		next := vs[(i+1)%4]
		if v.Lat != next.Lat && v.Lon != next.Lon {
			return fmt.Errorf("%w: rectangle edge %d is not axis-aligned", ErrInvalidGeometry, i)
		}
	}
	if len(lats) != 2 || len(lons) != 2 {
		return fmt.Errorf("%w: rectangle corners must span two latitudes and two longitudes", ErrInvalidGeometry)
	}
	return nil
}
