package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/maptile"

	"github.com/soilledger/soilmap/internal/overlay"
)

type TileInput struct {
	Z int `path:"z" minimum:"0" maximum:"22" doc:"Zoom"`
	X int `path:"x" minimum:"0" doc:"Column"`
	Y int `path:"y" minimum:"0" doc:"Row"`
}

type TileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	CacheControl    string `header:"Cache-Control"`
	Body            []byte
}

type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// TileHandler serves the annotation overlay as vector tiles and GeoJSON.
type TileHandler struct {
	svc *Services
}

func NewTileHandler(svc *Services) *TileHandler {
	return &TileHandler{svc: svc}
}

func (h *TileHandler) RegisterTiles(api huma.API) {
	huma.Get(api, "/api/v1/tiles/{z}/{x}/{y}", h.GetTile, huma.OperationTags("tiles"))
	huma.Get(api, "/api/v1/shapes.geojson", h.GetGeoJSON, huma.OperationTags("tiles"))
}

func (h *TileHandler) GetTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	n := 1 << input.Z
	if input.X >= n || input.Y >= n {
		return nil, huma.Error404NotFound(fmt.Sprintf("tile %d/%d/%d does not exist", input.Z, input.X, input.Y))
	}
	t := maptile.New(uint32(input.X), uint32(input.Y), maptile.Zoom(input.Z))

	data, err := overlay.Tile(h.svc.Session.Shapes(), h.svc.Session.Markers(), t, h.svc.Session.Overlays())
	if err != nil {
		return nil, toHTTPError(err)
	}
	if data == nil {
		return &TileOutput{Status: http.StatusNoContent, CacheControl: "no-store"}, nil
	}
	return &TileOutput{
		Status:          http.StatusOK,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		CacheControl:    "no-store",
		Body:            data,
	}, nil
}

func (h *TileHandler) GetGeoJSON(ctx context.Context, input *struct{}) (*GeoJSONOutput, error) {
	data, err := overlay.FeatureCollection(h.svc.Session.Shapes()).MarshalJSON()
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Body: data}, nil
}
