// Package overlay encodes the drawn shapes and project markers as Mapbox
// Vector Tiles, so a vector map client can draw the annotation overlay
// without a popup per feature.
//
// Tiles are built per request from the current session state. Nothing is
// cached; the overlay is small and changes on every draw.
package overlay

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/mapview"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/theme"
)

// Layer names in the encoded tile.
const (
	ShapesLayer  = "shapes"
	MarkersLayer = "markers"
	AreasLayer   = "areas"
)

// MaxZoom is the deepest zoom a tile is rendered for.
const MaxZoom = 22

// minArea is the smallest polygon, in square tile units, kept as a polygon.
// Smaller shapes are encoded as a point at their centroid.
const minArea = 0.5

// Tile renders the overlay for tile z/x/y as a gzipped MVT. Markers and
// project areas follow the visibility in show; drawn shapes are always
// included. It returns nil when nothing visible touches the tile.
func Tile(shapes []geometry.Shape, markers []project.Marker, t maptile.Tile, show mapview.Overlays) ([]byte, error) {
	if t.Z > MaxZoom || !t.Valid() {
		return nil, fmt.Errorf("tile %d/%d/%d out of range", t.Z, t.X, t.Y)
	}
	bound := t.Bound()

	var layers mvt.Layers
	if l := shapeLayer(shapes, t, bound); l != nil {
		layers = append(layers, l)
	}
	if show.Areas {
		if l := areaLayer(markers, t, bound); l != nil {
			layers = append(layers, l)
		}
	}
	if show.Markers {
		if l := markerLayer(markers, t, bound); l != nil {
			layers = append(layers, l)
		}
	}
	if len(layers) == 0 {
		return nil, nil
	}

	data, err := mvt.MarshalGzipped(layers)
	if err != nil {
		return nil, fmt.Errorf("encoding tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return data, nil
}

// FeatureCollection returns the shapes as GeoJSON polygons with their kind,
// area and style as properties.
func FeatureCollection(shapes []geometry.Shape) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range shapes {
		f := shapeFeature(s, s.Ring())
		f.ID = s.ID
		fc.Append(f)
	}
	return fc
}

func shapeFeature(s geometry.Shape, ring orb.Ring) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{ring})
	style := theme.ShapeStyle(s.Kind)
	f.Properties["id"] = s.ID
	f.Properties["kind"] = string(s.Kind)
	f.Properties["areaSquareMeters"] = s.AreaSquareMeters
	f.Properties["areaAcres"] = s.AreaAcres()
	f.Properties["stroke"] = style.StrokeColor
	f.Properties["fill"] = style.FillColor
	return f
}

func shapeLayer(shapes []geometry.Shape, t maptile.Tile, bound orb.Bound) *mvt.Layer {
	eps := simplifyEpsilon(t.Z)
	fc := geojson.NewFeatureCollection()
	for _, s := range shapes {
		// a ring unwrapped past the antimeridian is tried at both copies
		for _, ring := range worldCopies(s.Ring()) {
			if !ring.Bound().Intersects(bound) {
				continue
			}
			fc.Append(shapeFeature(s, simplifyRing(ring, eps)))
		}
	}
	return polygonLayer(ShapesLayer, fc, t, bound)
}

func areaLayer(markers []project.Marker, t maptile.Tile, bound orb.Bound) *mvt.Layer {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		ring := geometry.ToRing(m.Area())
		if !ring.Bound().Intersects(bound) {
			continue
		}
		style := theme.StyleForStatus(m.Status)
		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties["id"] = m.ID
		f.Properties["status"] = m.Status.String()
		f.Properties["radius"] = float64(project.AreaRadiusMeters)
		f.Properties["fill"] = style.FillColor
		f.Properties["stroke"] = style.StrokeColor
		f.Properties["weight"] = style.StrokeWeight
		f.Properties["opacity"] = style.Opacity
		f.Properties["fillOpacity"] = style.FillOpacity
		if name := m.Field("name"); name != "" {
			f.Properties["name"] = name
		}
		fc.Append(f)
	}
	return polygonLayer(AreasLayer, fc, t, bound)
}

// polygonLayer clips and projects polygon features into tile space. A
// polygon too small to survive at this zoom is kept as its centroid point,
// flagged "collapsed", so small fields stay visible when zoomed out.
func polygonLayer(name string, fc *geojson.FeatureCollection, t maptile.Tile, bound orb.Bound) *mvt.Layer {
	if len(fc.Features) == 0 {
		return nil
	}
	// the layer compacts fc.Features in place, so keep the full list
	all := append([]*geojson.Feature(nil), fc.Features...)
	centroids := make(map[*geojson.Feature]orb.Point, len(all))
	for _, f := range all {
		centroids[f], _ = planar.CentroidArea(f.Geometry)
	}

	layer := mvt.NewLayer(name, fc)
	layer.Clip(bound)
	layer.ProjectToTile(t)
	layer.RemoveEmpty(minArea, minArea)

	kept := make(map[*geojson.Feature]bool, len(layer.Features))
	for _, f := range layer.Features {
		kept[f] = true
	}
	points := geojson.NewFeatureCollection()
	for _, f := range all {
		c := centroids[f]
		if kept[f] || !bound.Contains(c) {
			continue
		}
		p := geojson.NewFeature(c)
		for k, v := range f.Properties {
			p.Properties[k] = v
		}
		p.Properties["collapsed"] = true
		points.Append(p)
	}
	if len(points.Features) > 0 {
		pl := mvt.NewLayer(name, points)
		pl.ProjectToTile(t)
		layer.Features = append(layer.Features, pl.Features...)
	}

	if len(layer.Features) == 0 {
		return nil
	}
	return layer
}

// simplifyRing runs Douglas-Peucker on rings comfortably larger than the
// tolerance. Smaller rings would collapse to a line, so they are left alone.
func simplifyRing(ring orb.Ring, eps float64) orb.Ring {
	if eps <= 0 {
		return ring
	}
	b := ring.Bound()
	if b.Max[0]-b.Min[0] < 4*eps || b.Max[1]-b.Min[1] < 4*eps {
		return ring
	}
	return simplify.DouglasPeucker(eps).Ring(ring)
}

func markerLayer(markers []project.Marker, t maptile.Tile, bound orb.Bound) *mvt.Layer {
	fc := geojson.NewFeatureCollection()
	for _, m := range markers {
		p := m.Coordinates.Point()
		if !bound.Contains(p) {
			continue
		}
		style := theme.StyleForStatus(m.Status)
		f := geojson.NewFeature(p)
		f.Properties["id"] = m.ID
		f.Properties["status"] = m.Status.String()
		f.Properties["color"] = style.FillColor
		f.Properties["icon"] = style.Icon
		for k, v := range m.DisplayFields {
			f.Properties[k] = v
		}
		fc.Append(f)
	}
	if len(fc.Features) == 0 {
		return nil
	}

	layer := mvt.NewLayer(MarkersLayer, fc)
	layer.ProjectToTile(t)
	return layer
}

// worldCopies returns fresh copies of ring, shifted back into [-180, 180]
// when it was unwrapped past the antimeridian. The MVT encoder mutates
// geometry in place, so callers always get their own points.
func worldCopies(ring orb.Ring) []orb.Ring {
	b := ring.Bound()
	out := []orb.Ring{cloneRing(ring, 0)}
	if b.Max[0] > 180 {
		out = append(out, cloneRing(ring, -360))
	}
	if b.Min[0] < -180 {
		out = append(out, cloneRing(ring, 360))
	}
	return out
}

func cloneRing(ring orb.Ring, shift float64) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		out[i] = orb.Point{p[0] + shift, p[1]}
	}
	return out
}

// simplifyEpsilon is the Douglas-Peucker tolerance in degrees. Drawn fields
// are small, so low zooms still keep their outline.
func simplifyEpsilon(z maptile.Zoom) float64 {
	switch {
	case z >= 12:
		return 0
	case z >= 8:
		return 0.00001
	case z >= 4:
		return 0.0001
	default:
		return 0.001
	}
}
