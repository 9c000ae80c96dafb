package mapview

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rs/zerolog/log"

	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/templates"
	"github.com/soilledger/soilmap/internal/theme"
)

// ShapeOverlay is a drawn shape in surface coordinates.
type ShapeOverlay struct {
	ID    string        `json:"id"`
	Kind  geometry.Kind `json:"kind"`
	Path  []Pixel       `json:"path" doc:"Ring in surface pixels, not closed"`
	Style theme.Style   `json:"style"`
	Popup string        `json:"popup" doc:"Popup HTML"`
}

// MarkerOverlay is a project marker in surface coordinates.
type MarkerOverlay struct {
	ID     string       `json:"id"`
	At     Pixel        `json:"at"`
	Status theme.Status `json:"status"`
	Style  theme.Style  `json:"style"`
	Popup  string       `json:"popup" doc:"Popup HTML"`
}

// AreaOverlay is the illustrative circle around a project marker.
type AreaOverlay struct {
	ID     string       `json:"id" doc:"Project ID"`
	Center Pixel        `json:"center"`
	Radius float64      `json:"radius" doc:"Radius in surface pixels"`
	Path   []Pixel      `json:"path" doc:"Circle approximated as a ring, not closed"`
	Status theme.Status `json:"status"`
	Style  theme.Style  `json:"style"`
	Popup  string       `json:"popup" doc:"Popup HTML"`
}

// Overlays selects which toggleable overlays are drawn. Drawn shapes are
// always shown.
type Overlays struct {
	Markers bool `json:"markers" doc:"Show project markers"`
	Areas   bool `json:"areas" doc:"Show project areas"`
}

// DefaultOverlays shows the markers and hides the project areas.
func DefaultOverlays() Overlays {
	return Overlays{Markers: true}
}

// Surface is a rendering target: a browser map, a tile encoder, a test
// recorder. Draw calls are fire-and-forget.
type Surface interface {
	Clear()
	SetBaseLayer(src TileSource)
	SetFilter(f theme.Filter)
	DrawProjectArea(a AreaOverlay)
	DrawMarker(m MarkerOverlay)
	DrawShape(s ShapeOverlay)
}

// Scene is the input of one render pass.
type Scene struct {
	Viewport Viewport
	Shapes   []geometry.Shape
	Markers  []project.Marker
	Mode     theme.Mode
	Overlays Overlays
}

// Adapter renders scenes onto surfaces.
type Adapter struct {
	layers   *BaseLayers
	renderer *templates.Renderer
}

// NewAdapter creates an adapter drawing base layers from layers and popups
// from renderer.
func NewAdapter(layers *BaseLayers, renderer *templates.Renderer) *Adapter {
	return &Adapter{layers: layers, renderer: renderer}
}

// Layers returns the base layer switcher.
func (a *Adapter) Layers() *BaseLayers {
	return a.layers
}

// Render redraws the whole scene. It is idempotent: rendering the same scene
// twice leaves the surface in the same state.
func (a *Adapter) Render(s Surface, sc Scene) error {
	_, src := a.layers.Active()
	filter := theme.FilterForMode(sc.Mode)
	if filter.Fallback {
		log.Warn().Int("mode", int(sc.Mode)).Msg("Unrecognised theme mode, using light")
	}

	var areas []AreaOverlay
	if sc.Overlays.Areas {
		for _, m := range sc.Markers {
			o, err := a.areaOverlay(sc, m)
			if err != nil {
				return err
			}
			areas = append(areas, o)
		}
	}
	var markers []MarkerOverlay
	if sc.Overlays.Markers {
		for _, m := range sc.Markers {
			o, err := a.markerOverlay(sc, m)
			if err != nil {
				return err
			}
			markers = append(markers, o)
		}
	}
	shapes := make([]ShapeOverlay, 0, len(sc.Shapes))
	for _, sh := range sc.Shapes {
		o, err := a.shapeOverlay(sc, sh)
		if err != nil {
			return err
		}
		shapes = append(shapes, o)
	}

	s.Clear()
	s.SetBaseLayer(src)
	s.SetFilter(filter)
	for _, ar := range areas {
		s.DrawProjectArea(ar)
	}
	for _, m := range markers {
		s.DrawMarker(m)
	}
	for _, sh := range shapes {
		s.DrawShape(sh)
	}
	return nil
}

func (a *Adapter) markerOverlay(sc Scene, m project.Marker) (MarkerOverlay, error) {
	style := theme.StyleForStatus(m.Status)
	if style.Fallback {
		log.Warn().Str("marker", m.ID).Int("status", int(m.Status)).Msg("Unrecognised project status, using default style")
	}
	popup, err := a.renderer.Render("marker-popup", map[string]any{
		"Marker": m,
		"Dark":   sc.Mode == theme.Dark,
	})
	if err != nil {
		return MarkerOverlay{}, fmt.Errorf("rendering marker %s popup: %w", m.ID, err)
	}
	return MarkerOverlay{
		ID:     m.ID,
		At:     sc.Viewport.Project(m.Coordinates),
		Status: m.Status,
		Style:  style,
		Popup:  popup,
	}, nil
}

func (a *Adapter) areaOverlay(sc Scene, m project.Marker) (AreaOverlay, error) {
	popup, err := a.renderer.Render("area-popup", m)
	if err != nil {
		return AreaOverlay{}, fmt.Errorf("rendering area %s popup: %w", m.ID, err)
	}
	return AreaOverlay{
		ID:     m.ID,
		Center: sc.Viewport.Project(m.Coordinates),
		Radius: project.AreaRadiusMeters / sc.Viewport.MetersPerPixel(m.Coordinates.Lat),
		Path:   sc.Viewport.ProjectPath(m.Area()),
		Status: m.Status,
		Style:  theme.StyleForStatus(m.Status),
		Popup:  popup,
	}, nil
}

func (a *Adapter) shapeOverlay(sc Scene, sh geometry.Shape) (ShapeOverlay, error) {
	popup, err := a.renderer.Render("shape-popup", sh)
	if err != nil {
		return ShapeOverlay{}, fmt.Errorf("rendering shape %s popup: %w", sh.ID, err)
	}
	return ShapeOverlay{
		ID:    sh.ID,
		Kind:  sh.Kind,
		Path:  sc.Viewport.ProjectPath(sh.Vertices),
		Style: theme.ShapeStyle(sh.Kind),
		Popup: popup,
	}, nil
}

// Pick returns the topmost shape under a surface pixel. Shapes later in the
// slice are drawn above earlier ones.
func (a *Adapter) Pick(v Viewport, p Pixel, shapes []geometry.Shape) (geometry.Shape, bool) {
	ll := v.Unproject(p)
	for i := len(shapes) - 1; i >= 0; i-- {
		ring := shapes[i].Ring()
		for _, shift := range []float64{0, 360, -360} {
			if planar.RingContains(ring, orb.Point{ll.Lon + shift, ll.Lat}) {
				return shapes[i], true
			}
		}
	}
	return geometry.Shape{}, false
}
