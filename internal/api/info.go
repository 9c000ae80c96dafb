package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	svc *Services
}

func NewInfoHandler(svc *Services) *InfoHandler {
	return &InfoHandler{svc: svc}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name         string   `json:"name" doc:"Service name"`
	Version      string   `json:"version" doc:"Service version"`
	DB           bool     `json:"db" doc:"Whether the SQL mirror is available"`
	StrictRemove bool     `json:"strictRemove" doc:"Whether deleting an unknown shape is an error"`
	Shapes       int      `json:"shapes" doc:"Number of drawn shapes"`
	Markers      int      `json:"markers" doc:"Number of project markers"`
	Features     []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"draw", "geojson", "mvt", "scene"}
	if h.svc.Mirror != nil {
		features = append(features, "duckdb")
	}
	reg := h.svc.Session.Registry()
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:         "soilmap",
		Version:      Version,
		DB:           h.svc.Mirror != nil,
		StrictRemove: reg.StrictRemove(),
		Shapes:       reg.Len(),
		Markers:      len(h.svc.Session.Markers()),
		Features:     features,
	}}, nil
}
