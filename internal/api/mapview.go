package api

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/mapview"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/theme"
)

type ModeInput struct {
	Mode string `query:"mode" doc:"Theme mode: light or dark. Unrecognised values fall back to light." example:"dark"`
}

// resolve returns the requested mode, the default when none was given, and
// whether an unrecognised value was replaced.
func (in ModeInput) resolve(def theme.Mode) (theme.Mode, bool) {
	if in.Mode == "" {
		return def, false
	}
	m, ok := theme.ParseMode(in.Mode)
	if !ok {
		log.Warn().Str("mode", in.Mode).Msg("Unrecognised theme mode, using light")
	}
	return m, !ok
}

type MarkerBody struct {
	project.Marker
	Style theme.Style `json:"style" doc:"Marker style for the project status"`
}

type MarkersBody struct {
	Mode    string       `json:"mode" doc:"Resolved theme mode" example:"light"`
	Markers []MarkerBody `json:"markers" doc:"Project markers"`
}

type ThemeBody struct {
	Mode     string             `json:"mode" doc:"Resolved theme mode" example:"dark"`
	Fallback bool               `json:"fallback" doc:"Whether the requested mode was unrecognised"`
	Filter   theme.Filter       `json:"filter" doc:"Tile filter parameters"`
	CSS      string             `json:"css" doc:"Tile filter as a CSS filter value" example:"invert(92%) hue-rotate(180deg) brightness(95%) contrast(85%)"`
	Legend   []theme.LegendItem `json:"legend" doc:"Status legend entries"`
}

type BaseMapsBody struct {
	Active string                  `json:"active" doc:"Active base layer key" example:"street"`
	Layers []mapview.BaseLayerInfo `json:"layers" doc:"Available base layers"`
}

type SelectBaseMapInput struct {
	Body struct {
		Layer string `json:"layer" doc:"Layer key or display name" example:"satellite"`
	}
}

type ViewportInput struct {
	ModeInput
	Lat    string `query:"lat" doc:"Viewport centre latitude; configured default when empty" example:"39.8283"`
	Lon    string `query:"lon" doc:"Viewport centre longitude; configured default when empty" example:"-98.5795"`
	Zoom   string `query:"zoom" doc:"Zoom level; configured default when empty" example:"4"`
	Width  int    `query:"width" minimum:"0" maximum:"8192" doc:"Surface width in pixels"`
	Height int    `query:"height" minimum:"0" maximum:"8192" doc:"Surface height in pixels"`
}

func (in ViewportInput) viewport(def mapview.Viewport) (mapview.Viewport, error) {
	v := def
	for _, f := range []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"lat", in.Lat, &v.Center.Lat},
		{"lon", in.Lon, &v.Center.Lon},
		{"zoom", in.Zoom, &v.Zoom},
	} {
		if f.raw == "" {
			continue
		}
		n, err := strconv.ParseFloat(f.raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return v, huma.Error422UnprocessableEntity(fmt.Sprintf("%s: not a number: %q", f.name, f.raw))
		}
		*f.dst = n
	}
	if v.Zoom < 0 || v.Zoom > 22 {
		return v, huma.Error422UnprocessableEntity(fmt.Sprintf("zoom %v out of range", v.Zoom))
	}
	if in.Width > 0 {
		v.Width = in.Width
	}
	if in.Height > 0 {
		v.Height = in.Height
	}
	return v, nil
}

// SceneBody is one rendered frame of the map overlay.
type SceneBody struct {
	Viewport mapview.Viewport        `json:"viewport"`
	BaseMap  mapview.TileSource      `json:"baseMap"`
	Filter   string                  `json:"filter" doc:"CSS filter applied to base tiles"`
	Overlays mapview.Overlays        `json:"overlays"`
	Areas    []mapview.AreaOverlay   `json:"areas"`
	Markers  []mapview.MarkerOverlay `json:"markers"`
	Shapes   []mapview.ShapeOverlay  `json:"shapes"`
	Tiles    []string                `json:"tiles" doc:"Base tile URLs covering the viewport"`
}

// sceneRecorder is a Surface that keeps the last frame.
type sceneRecorder struct {
	body SceneBody
}

func (r *sceneRecorder) Clear() {
	r.body.Areas = []mapview.AreaOverlay{}
	r.body.Markers = []mapview.MarkerOverlay{}
	r.body.Shapes = []mapview.ShapeOverlay{}
}
func (r *sceneRecorder) SetBaseLayer(src mapview.TileSource) { r.body.BaseMap = src }
func (r *sceneRecorder) SetFilter(f theme.Filter) { r.body.Filter = f.CSS() }
func (r *sceneRecorder) DrawProjectArea(a mapview.AreaOverlay) {
	r.body.Areas = append(r.body.Areas, a)
}
func (r *sceneRecorder) DrawMarker(m mapview.MarkerOverlay) {
	r.body.Markers = append(r.body.Markers, m)
}
func (r *sceneRecorder) DrawShape(s mapview.ShapeOverlay) {
	r.body.Shapes = append(r.body.Shapes, s)
}

type OverlaysInput struct {
	Body mapview.Overlays
}

type PickInput struct {
	ViewportInput
	X float64 `query:"x" doc:"Pixel x from the left edge"`
	Y float64 `query:"y" doc:"Pixel y from the top edge"`
}

type PickBody struct {
	At    geometry.LatLng `json:"at" doc:"Coordinate under the pixel"`
	Found bool            `json:"found"`
	Shape *ShapeBody      `json:"shape,omitempty"`
}

// MapHandler serves markers, theming, base maps and rendered scenes.
type MapHandler struct {
	svc *Services
}

func NewMapHandler(svc *Services) *MapHandler {
	return &MapHandler{svc: svc}
}

func (h *MapHandler) RegisterMarkers(api huma.API) {
	huma.Get(api, "/api/v1/markers", h.ListMarkers, huma.OperationTags("map"))
}

func (h *MapHandler) RegisterTheme(api huma.API) {
	huma.Get(api, "/api/v1/theme", h.GetTheme, huma.OperationTags("map"))
}

func (h *MapHandler) RegisterBaseMaps(api huma.API) {
	huma.Get(api, "/api/v1/basemaps", h.ListBaseMaps, huma.OperationTags("map"))
	huma.Put(api, "/api/v1/basemaps/active", h.SelectBaseMap, huma.OperationTags("map"))
}

func (h *MapHandler) RegisterScene(api huma.API) {
	huma.Get(api, "/api/v1/scene", h.GetScene, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/pick", h.Pick, huma.OperationTags("map"))
}

func (h *MapHandler) RegisterOverlays(api huma.API) {
	huma.Get(api, "/api/v1/overlays", h.GetOverlays, huma.OperationTags("map"))
	huma.Put(api, "/api/v1/overlays", h.SetOverlays, huma.OperationTags("map"))
}

func (h *MapHandler) ListMarkers(ctx context.Context, input *ModeInput) (*struct{ Body MarkersBody }, error) {
	mode, _ := input.resolve(h.svc.DefaultMode)
	markers := h.svc.Session.Markers()
	out := MarkersBody{Mode: mode.String(), Markers: make([]MarkerBody, len(markers))}
	for i, m := range markers {
		style := theme.StyleForStatus(m.Status)
		if style.Fallback {
			log.Warn().Str("marker", m.ID).Msg("Unrecognised project status, using default style")
		}
		out.Markers[i] = MarkerBody{Marker: m, Style: style}
	}
	return &struct{ Body MarkersBody }{Body: out}, nil
}

func (h *MapHandler) GetTheme(ctx context.Context, input *ModeInput) (*struct{ Body ThemeBody }, error) {
	mode, fallback := input.resolve(h.svc.DefaultMode)
	f := theme.FilterForMode(mode)
	return &struct{ Body ThemeBody }{Body: ThemeBody{
		Mode:     mode.String(),
		Fallback: fallback,
		Filter:   f,
		CSS:      f.CSS(),
		Legend:   theme.Legend(),
	}}, nil
}

func (h *MapHandler) layers() *mapview.BaseLayers {
	return h.svc.Session.Adapter().Layers()
}

func (h *MapHandler) baseMaps() BaseMapsBody {
	active, _ := h.layers().Active()
	return BaseMapsBody{Active: active.String(), Layers: h.layers().List()}
}

func (h *MapHandler) ListBaseMaps(ctx context.Context, input *struct{}) (*struct{ Body BaseMapsBody }, error) {
	return &struct{ Body BaseMapsBody }{Body: h.baseMaps()}, nil
}

func (h *MapHandler) SelectBaseMap(ctx context.Context, input *SelectBaseMapInput) (*struct{ Body BaseMapsBody }, error) {
	layer, err := mapview.ParseBaseLayer(input.Body.Layer)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if err := h.layers().Select(layer); err != nil {
		return nil, toHTTPError(err)
	}
	log.Info().Str("layer", layer.String()).Msg("Base layer selected")
	return &struct{ Body BaseMapsBody }{Body: h.baseMaps()}, nil
}

func (h *MapHandler) GetOverlays(ctx context.Context, input *struct{}) (*struct{ Body mapview.Overlays }, error) {
	return &struct{ Body mapview.Overlays }{Body: h.svc.Session.Overlays()}, nil
}

// SetOverlays replaces the overlay visibility used by scenes and tiles.
func (h *MapHandler) SetOverlays(ctx context.Context, input *OverlaysInput) (*struct{ Body mapview.Overlays }, error) {
	h.svc.Session.SetOverlays(input.Body)
	log.Info().Bool("markers", input.Body.Markers).Bool("areas", input.Body.Areas).Msg("Overlay visibility set")
	return &struct{ Body mapview.Overlays }{Body: h.svc.Session.Overlays()}, nil
}

func (h *MapHandler) GetScene(ctx context.Context, input *ViewportInput) (*struct{ Body SceneBody }, error) {
	mode, _ := input.resolve(h.svc.DefaultMode)
	v, err := input.viewport(h.svc.Viewport)
	if err != nil {
		return nil, err
	}

	rec := &sceneRecorder{}
	if err := h.svc.Session.Render(rec, mode, v); err != nil {
		return nil, toHTTPError(err)
	}
	rec.body.Viewport = v
	rec.body.Overlays = h.svc.Session.Overlays()
	rec.body.Tiles = []string{}
	for _, t := range v.Tiles() {
		rec.body.Tiles = append(rec.body.Tiles, rec.body.BaseMap.TileURL(t))
	}
	return &struct{ Body SceneBody }{Body: rec.body}, nil
}

func (h *MapHandler) Pick(ctx context.Context, input *PickInput) (*struct{ Body PickBody }, error) {
	v, err := input.viewport(h.svc.Viewport)
	if err != nil {
		return nil, err
	}
	p := mapview.Pixel{X: input.X, Y: input.Y}
	out := PickBody{At: v.Unproject(p)}
	if s, ok := h.svc.Session.Adapter().Pick(v, p, h.svc.Session.Shapes()); ok {
		body := newShapeBody(s)
		out.Found = true
		out.Shape = &body
	}
	return &struct{ Body PickBody }{Body: out}, nil
}
