// Package mapview translates between geographic shapes and a rendering
// surface's pixel space. It owns no shapes or markers; it only draws what it
// is given.
package mapview

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/project"

	"github.com/soilledger/soilmap/internal/geometry"
)

const (
	// MaxLatitude is the Web Mercator latitude limit.
	MaxLatitude = 85.05112878
	// TileSize is the pixel size of one map tile.
	TileSize = 256
)

// half the Web Mercator world width in metres
var mercatorHalf = math.Pi * orb.EarthRadius

// Pixel is a position in the surface's coordinate space, origin top-left.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the visible part of the map.
type Viewport struct {
	Center geometry.LatLng `json:"center" yaml:"center"`
	Zoom   float64         `json:"zoom" yaml:"zoom"`
	Width  int             `json:"width" yaml:"width"`
	Height int             `json:"height" yaml:"height"`
}

func (v Viewport) worldSize() float64 {
	return TileSize * math.Exp2(v.Zoom)
}

func (v Viewport) origin() Pixel {
	c := toWorld(v.Center, v.worldSize())
	return Pixel{X: c.X - float64(v.Width)/2, Y: c.Y - float64(v.Height)/2}
}

// Project maps a coordinate to a surface pixel.
func (v Viewport) Project(ll geometry.LatLng) Pixel {
	o := v.origin()
	w := toWorld(ll, v.worldSize())
	return Pixel{X: w.X - o.X, Y: w.Y - o.Y}
}

// ProjectPath maps vertices to pixels, keeping rings that cross the
// antimeridian contiguous.
func (v Viewport) ProjectPath(vertices []geometry.LatLng) []Pixel {
	ring := geometry.ToRing(vertices)
	if len(ring) > 0 {
		ring = ring[:len(ring)-1]
	}
	o := v.origin()
	size := v.worldSize()
	out := make([]Pixel, len(ring))
	for i, p := range ring {
		w := toWorld(geometry.LatLng{Lat: p.Lat(), Lon: p.Lon()}, size)
		out[i] = Pixel{X: w.X - o.X, Y: w.Y - o.Y}
	}
	return out
}

// MetersPerPixel is the ground distance one pixel covers at latitude lat.
func (v Viewport) MetersPerPixel(lat float64) float64 {
	lat = math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
	return 2 * mercatorHalf * math.Cos(lat*math.Pi/180) / v.worldSize()
}

// Unproject maps a surface pixel back to a coordinate.
func (v Viewport) Unproject(p Pixel) geometry.LatLng {
	o := v.origin()
	size := v.worldSize()
	m := orb.Point{
		((o.X+p.X)/size - 0.5) * 2 * mercatorHalf,
		(0.5 - (o.Y+p.Y)/size) * 2 * mercatorHalf,
	}
	return geometry.NormalizeLatLon(geometry.FromPoint(project.Mercator.ToWGS84(m)))
}

// Tiles returns the tiles at the viewport's integer zoom that cover it.
// Columns wrap across the antimeridian; rows are clipped to the world.
func (v Viewport) Tiles() []maptile.Tile {
	z := maptile.Zoom(math.Max(0, math.Floor(v.Zoom)))
	n := int64(1) << z
	// world pixels per tile at z
	span := v.worldSize() / float64(n)

	o := v.origin()
	x0 := int64(math.Floor(o.X / span))
	x1 := int64(math.Floor((o.X + float64(v.Width) - 1e-9) / span))
	y0 := max(0, int64(math.Floor(o.Y/span)))
	y1 := min(n-1, int64(math.Floor((o.Y+float64(v.Height)-1e-9)/span)))
	if x1-x0+1 > n {
		x0, x1 = 0, n-1
	}

	var tiles []maptile.Tile
	for x := x0; x <= x1; x++ {
		wx := ((x % n) + n) % n
		for y := y0; y <= y1; y++ {
			tiles = append(tiles, maptile.New(uint32(wx), uint32(y), z))
		}
	}
	return tiles
}

// toWorld returns the Web Mercator world pixel of a coordinate. Longitude is
// not wrapped so that unwrapped rings stay contiguous.
func toWorld(ll geometry.LatLng, size float64) Pixel {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, ll.Lat))
	m := project.WGS84.ToMercator(orb.Point{ll.Lon, lat})
	return Pixel{
		X: (m[0]/(2*mercatorHalf) + 0.5) * size,
		Y: (0.5 - m[1]/(2*mercatorHalf)) * size,
	}
}
