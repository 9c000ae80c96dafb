package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soilledger/soilmap/internal/annotate"
	"github.com/soilledger/soilmap/internal/api"
	"github.com/soilledger/soilmap/internal/db"
	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/humastar"
	"github.com/soilledger/soilmap/internal/mapview"
	"github.com/soilledger/soilmap/internal/overlay"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/registry"
	"github.com/soilledger/soilmap/internal/templates"
	"github.com/soilledger/soilmap/internal/theme"
)

var field = []geometry.LatLng{
	{Lat: 37.0, Lon: -122.0},
	{Lat: 37.0, Lon: -122.001},
	{Lat: 37.001, Lon: -122.001},
	{Lat: 37.001, Lon: -122.0},
}

type options struct {
	strict  bool
	markers []project.Marker
	mirror  *db.Mirror
}

func setup(t *testing.T, opts options) (humatest.TestAPI, *annotate.Session) {
	t.Helper()
	layers, err := mapview.NewBaseLayers(mapview.Street)
	require.NoError(t, err)
	session, err := annotate.NewSession(context.Background(), annotate.Options{
		Registry: registry.New(registry.Config{StrictRemove: opts.strict}),
		Markers:  project.NewStaticLoader(opts.markers),
		Adapter:  mapview.NewAdapter(layers, templates.Must(templates.New())),
	})
	require.NoError(t, err)

	links := humastar.NewLinks()
	config := huma.DefaultConfig("soilmap test", api.Version)
	config.Transformers = append(config.Transformers, links.Transformer())
	hapi := humago.New(http.NewServeMux(), config)
	api.RegisterRoutes(hapi, &api.Services{
		Session:     session,
		Mirror:      opts.mirror,
		Viewport:    mapview.Viewport{Center: geometry.LatLng{Lat: 37.0005, Lon: -122.0005}, Zoom: 17, Width: 512, Height: 512},
		DefaultMode: theme.Light,
	})
	links.Build(hapi)
	return humatest.Wrap(t, hapi), session
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestHealth(t *testing.T) {
	tapi, _ := setup(t, options{})

	resp := tapi.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[api.HealthBody](t, resp.Body.Bytes())
	assert.Equal(t, "ok", body.Status)
	assert.Contains(t, resp.Header().Values("Link"), `</api/v1/shapes>; rel="shapes"`)
}

func TestDrawShape(t *testing.T) {
	tapi, session := setup(t, options{})

	resp := tapi.Post("/api/v1/shapes", map[string]any{"kind": "rectangle", "vertices": field})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	drawn := decode[annotate.AreaDrawn](t, resp.Body.Bytes())
	assert.InEpsilon(t, 2.441, drawn.AreaAcres, 0.01)
	assert.Equal(t, "/api/v1/shapes/"+drawn.ID, resp.Header().Get("Location"))
	require.Len(t, session.Shapes(), 1)

	resp = tapi.Get("/api/v1/shapes/" + drawn.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	shape := decode[api.ShapeBody](t, resp.Body.Bytes())
	assert.Equal(t, geometry.Rectangle, shape.Kind)
	assert.InDelta(t, drawn.AreaAcres, shape.AreaAcres, 1e-9)
	assert.Contains(t, resp.Header().Values("Link"),
		`</api/v1/shapes/`+drawn.ID+`>; rel="delete"; method="DELETE"; title="Delete shape"`)
}

func TestDrawShapeInvalid(t *testing.T) {
	tapi, session := setup(t, options{})

	resp := tapi.Post("/api/v1/shapes", map[string]any{"kind": "polygon", "vertices": []geometry.LatLng{
		{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 0}, {Lat: 0, Lon: 1},
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "self-intersecting")
	assert.Empty(t, session.Shapes())
}

func TestGetShapeNotFound(t *testing.T) {
	tapi, _ := setup(t, options{})
	assert.Equal(t, http.StatusNotFound, tapi.Get("/api/v1/shapes/nope").Code)
}

func TestDeleteShape(t *testing.T) {
	t.Run("lenient", func(t *testing.T) {
		tapi, session := setup(t, options{})
		drawn, err := session.HandleDraw(annotate.DrawEvent{Kind: geometry.Rectangle, Vertices: field})
		require.NoError(t, err)

		resp := tapi.Delete("/api/v1/shapes/" + drawn.ID)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, decode[api.RemoveBody](t, resp.Body.Bytes()).Removed)

		resp = tapi.Delete("/api/v1/shapes/" + drawn.ID)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.False(t, decode[api.RemoveBody](t, resp.Body.Bytes()).Removed)
	})

	t.Run("strict", func(t *testing.T) {
		tapi, _ := setup(t, options{strict: true})
		assert.Equal(t, http.StatusNotFound, tapi.Delete("/api/v1/shapes/nope").Code)
	})
}

func TestListShapesPaginates(t *testing.T) {
	tapi, session := setup(t, options{})
	for i := 0; i < 3; i++ {
		lon := float64(i * 2)
		_, err := session.HandleDraw(annotate.DrawEvent{Kind: geometry.Polygon, Vertices: []geometry.LatLng{
			{Lat: 1, Lon: lon}, {Lat: 1, Lon: lon + 1}, {Lat: 2, Lon: lon + 1},
		}})
		require.NoError(t, err)
	}

	resp := tapi.Get("/api/v1/shapes?offset=1&limit=1")
	require.Equal(t, http.StatusOK, resp.Code)
	page := decode[humastar.PageBody[api.ShapeBody]](t, resp.Body.Bytes())
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, session.Shapes()[1].ID, page.Data[0].ID)

	headers := resp.Header().Values("Link")
	assert.Contains(t, headers, `</api/v1/shapes?offset=2&limit=1>; rel="next"`)
	assert.Contains(t, headers, `</api/v1/shapes?offset=0&limit=1>; rel="prev"`)
	assert.Contains(t, headers, `</api/v1/shapes/{id}>; rel="item"`)
}

func TestMarkersAndThemeFallback(t *testing.T) {
	tapi, _ := setup(t, options{markers: project.Sample()})

	resp := tapi.Get("/api/v1/markers?mode=dark")
	require.Equal(t, http.StatusOK, resp.Code)
	markers := decode[api.MarkersBody](t, resp.Body.Bytes())
	assert.Equal(t, "dark", markers.Mode)
	require.Len(t, markers.Markers, len(project.Sample()))
	assert.Equal(t, theme.StyleForStatus(markers.Markers[0].Status), markers.Markers[0].Style)

	resp = tapi.Get("/api/v1/theme?mode=sepia")
	require.Equal(t, http.StatusOK, resp.Code)
	th := decode[api.ThemeBody](t, resp.Body.Bytes())
	assert.Equal(t, "light", th.Mode)
	assert.True(t, th.Fallback)
	assert.Equal(t, "none", th.CSS)

	resp = tapi.Get("/api/v1/theme?mode=dark")
	th = decode[api.ThemeBody](t, resp.Body.Bytes())
	assert.Equal(t, "invert(92%) hue-rotate(180deg) brightness(95%) contrast(85%)", th.CSS)
	assert.False(t, th.Fallback)
}

func TestSelectBaseMap(t *testing.T) {
	tapi, _ := setup(t, options{})

	resp := tapi.Put("/api/v1/basemaps/active", map[string]any{"layer": "watercolor"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "street", decode[api.BaseMapsBody](t, tapi.Get("/api/v1/basemaps").Body.Bytes()).Active)

	resp = tapi.Put("/api/v1/basemaps/active", map[string]any{"layer": "Terrain"})
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[api.BaseMapsBody](t, resp.Body.Bytes())
	assert.Equal(t, "terrain", body.Active)
	assert.Len(t, body.Layers, 3)
}

func TestTiles(t *testing.T) {
	tapi, session := setup(t, options{})

	resp := tapi.Get("/api/v1/tiles/0/0/0")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	_, err := session.HandleDraw(annotate.DrawEvent{Kind: geometry.Rectangle, Vertices: field})
	require.NoError(t, err)

	resp = tapi.Get("/api/v1/tiles/0/0/0")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/vnd.mapbox-vector-tile", resp.Header().Get("Content-Type"))
	assert.Equal(t, "gzip", resp.Header().Get("Content-Encoding"))
	assert.NotEmpty(t, resp.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, tapi.Get("/api/v1/tiles/1/2/0").Code)
}

func TestOverlayVisibility(t *testing.T) {
	tapi, session := setup(t, options{markers: project.Sample()})

	resp := tapi.Get("/api/v1/overlays")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, mapview.DefaultOverlays(), decode[mapview.Overlays](t, resp.Body.Bytes()))

	scene := decode[api.SceneBody](t, tapi.Get("/api/v1/scene?lat=37.7749&lon=-122.4194&zoom=13").Body.Bytes())
	assert.Empty(t, scene.Areas)
	assert.NotEmpty(t, scene.Markers)

	resp = tapi.Put("/api/v1/overlays", map[string]any{"markers": false, "areas": true})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, mapview.Overlays{Areas: true}, session.Overlays())

	scene = decode[api.SceneBody](t, tapi.Get("/api/v1/scene?lat=37.7749&lon=-122.4194&zoom=13").Body.Bytes())
	assert.True(t, scene.Overlays.Areas)
	assert.Empty(t, scene.Markers)
	require.Len(t, scene.Areas, len(project.Sample()))
	a := scene.Areas[0]
	assert.Equal(t, "1", a.ID)
	assert.EqualValues(t, 2, a.Style.StrokeWeight)
	assert.EqualValues(t, 0.7, a.Style.Opacity)
	assert.EqualValues(t, 0.4, a.Style.FillOpacity)
	assert.Contains(t, a.Popup, "250 acres")

	// the marker tile now carries only the areas layer
	resp = tapi.Get("/api/v1/tiles/13/1310/3166")
	require.Equal(t, http.StatusOK, resp.Code)
	layers, err := mvt.UnmarshalGzipped(resp.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, overlay.AreasLayer, layers[0].Name)

	tapi.Put("/api/v1/overlays", map[string]any{"markers": false, "areas": false})
	assert.Equal(t, http.StatusNoContent, tapi.Get("/api/v1/tiles/13/1310/3166").Code)
}

func TestGeoJSON(t *testing.T) {
	tapi, session := setup(t, options{})
	drawn, err := session.HandleDraw(annotate.DrawEvent{Kind: geometry.Rectangle, Vertices: field})
	require.NoError(t, err)

	resp := tapi.Get("/api/v1/shapes.geojson")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/geo+json", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Body.String(), `"FeatureCollection"`)
	assert.Contains(t, resp.Body.String(), drawn.ID)
}

func TestSceneAndPick(t *testing.T) {
	tapi, session := setup(t, options{markers: project.Sample()})
	drawn, err := session.HandleDraw(annotate.DrawEvent{Kind: geometry.Rectangle, Vertices: field})
	require.NoError(t, err)

	resp := tapi.Get("/api/v1/scene?mode=dark")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	scene := decode[api.SceneBody](t, resp.Body.Bytes())
	assert.Equal(t, "invert(92%) hue-rotate(180deg) brightness(95%) contrast(85%)", scene.Filter)
	require.Len(t, scene.Shapes, 1)
	assert.Equal(t, drawn.ID, scene.Shapes[0].ID)
	assert.Len(t, scene.Markers, len(project.Sample()))
	assert.NotEmpty(t, scene.Tiles)

	resp = tapi.Get("/api/v1/scene?zoom=abc")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = tapi.Get("/api/v1/pick?x=256&y=256")
	require.Equal(t, http.StatusOK, resp.Code)
	pick := decode[api.PickBody](t, resp.Body.Bytes())
	require.True(t, pick.Found)
	assert.Equal(t, drawn.ID, pick.Shape.ID)

	resp = tapi.Get("/api/v1/pick?x=0&y=0&zoom=10")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, decode[api.PickBody](t, resp.Body.Bytes()).Found)
}

func TestInfo(t *testing.T) {
	tapi, _ := setup(t, options{strict: true, markers: project.Sample()})

	resp := tapi.Get("/api/v1/info")
	require.Equal(t, http.StatusOK, resp.Code)
	info := decode[api.InfoBody](t, resp.Body.Bytes())
	assert.Equal(t, "soilmap", info.Name)
	assert.True(t, info.StrictRemove)
	assert.False(t, info.DB)
	assert.Equal(t, len(project.Sample()), info.Markers)
	assert.NotContains(t, info.Features, "duckdb")
}

func TestQueryWithoutDatabase(t *testing.T) {
	tapi, _ := setup(t, options{})

	assert.Equal(t, http.StatusServiceUnavailable, tapi.Get("/api/v1/tables").Code)
	resp := tapi.Post("/api/v1/query", map[string]any{"query": "SELECT 1"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestQueryMirror(t *testing.T) {
	conn, err := db.Open(context.Background(), db.Config{Extensions: []string{}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	mirror := db.NewMirror(conn)

	tapi, session := setup(t, options{mirror: mirror})
	_, err = session.HandleDraw(annotate.DrawEvent{Kind: geometry.Rectangle, Vertices: field})
	require.NoError(t, err)
	require.NoError(t, mirror.Sync(context.Background(), session.Shapes(), session.Markers()))

	resp := tapi.Get("/api/v1/tables")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "shapes")

	resp = tapi.Post("/api/v1/query", map[string]any{"query": "SELECT kind, area_acres FROM shapes"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	res := decode[db.Result](t, resp.Body.Bytes())
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "rectangle", res.Rows[0]["kind"])

	resp = tapi.Post("/api/v1/query", map[string]any{"query": "SELECT * FROM nowhere"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
