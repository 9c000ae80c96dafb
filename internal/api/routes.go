// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/soilledger/soilmap/internal/annotate"
	"github.com/soilledger/soilmap/internal/db"
	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/humastar"
	"github.com/soilledger/soilmap/internal/mapview"
	"github.com/soilledger/soilmap/internal/registry"
	"github.com/soilledger/soilmap/internal/theme"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.3.0"

// Services holds the dependencies of the API handlers.
type Services struct {
	Session *annotate.Session
	// Mirror is nil when DuckDB is unavailable.
	Mirror *db.Mirror
	// Viewport is used by scene and pick requests that omit one.
	Viewport    mapview.Viewport
	DefaultMode theme.Mode
}

// RegisterRoutes registers every REST handler on api.
func RegisterRoutes(api huma.API, svc *Services) {
	for _, h := range []any{
		NewAPIHandler(svc),
		NewMapHandler(svc),
		NewTileHandler(svc),
		NewInfoHandler(svc),
		NewDBHandler(svc.Mirror),
	} {
		huma.AutoRegister(api, h)
	}
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Shape ID" example:"5b0e2b86-8d4b-4bb2-9a0c-0b8f3c1f9e2a"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.3.0"`
}

// ShapeBody is a registered shape with its display values.
type ShapeBody struct {
	geometry.Shape
	AreaAcres float64     `json:"areaAcres" doc:"Area in acres"`
	Style     theme.Style `json:"style" doc:"Overlay style"`
}

var shapeActions = []humastar.ActionDef{
	{Rel: "delete", Pattern: "/api/v1/shapes/%s", Method: http.MethodDelete, Title: "Delete shape"},
}

// Actions implements humastar.Actor.
func (b ShapeBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, shapeActions)
}

func newShapeBody(s geometry.Shape) ShapeBody {
	return ShapeBody{Shape: s, AreaAcres: s.AreaAcres(), Style: theme.ShapeStyle(s.Kind)}
}

type DrawInput struct {
	Body annotate.DrawEvent
}

type DrawOutput struct {
	Location string `header:"Location" doc:"URL of the registered shape"`
	Body     annotate.AreaDrawn
}

type RemoveBody struct {
	ID      string `json:"id" doc:"Shape ID"`
	Removed bool   `json:"removed" doc:"Whether a shape was removed"`
}

// APIHandler holds the REST handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterShapes registers the drawn shape routes.
func (h *APIHandler) RegisterShapes(api huma.API) {
	huma.Get(api, "/api/v1/shapes", h.ListShapes, huma.OperationTags("shapes"))
	huma.Register(api, huma.Operation{
		OperationID:   "draw-shape",
		Method:        http.MethodPost,
		Path:          "/api/v1/shapes",
		Summary:       "Register a drawn polygon or rectangle",
		Tags:          []string{"shapes"},
		DefaultStatus: http.StatusCreated,
	}, h.DrawShape)
	huma.Get(api, "/api/v1/shapes/{id}", h.GetShape, huma.OperationTags("shapes"))
	huma.Delete(api, "/api/v1/shapes/{id}", h.DeleteShape, huma.OperationTags("shapes"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) ListShapes(ctx context.Context, input *humastar.PageInput) (*struct {
	Body humastar.PageBody[ShapeBody]
}, error) {
	shapes := h.svc.Session.Shapes()
	bodies := make([]ShapeBody, len(shapes))
	for i, s := range shapes {
		bodies[i] = newShapeBody(s)
	}
	return &struct {
		Body humastar.PageBody[ShapeBody]
	}{Body: humastar.Paginate(bodies, input.Offset, input.Limit)}, nil
}

func (h *APIHandler) DrawShape(ctx context.Context, input *DrawInput) (*DrawOutput, error) {
	drawn, err := h.svc.Session.HandleDraw(input.Body)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &DrawOutput{Location: "/api/v1/shapes/" + drawn.ID, Body: drawn}, nil
}

func (h *APIHandler) GetShape(ctx context.Context, input *IDInput) (*struct{ Body ShapeBody }, error) {
	s, err := h.svc.Session.Registry().Get(input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &struct{ Body ShapeBody }{Body: newShapeBody(s)}, nil
}

func (h *APIHandler) DeleteShape(ctx context.Context, input *IDInput) (*struct{ Body RemoveBody }, error) {
	removed, err := h.svc.Session.Delete(input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &struct{ Body RemoveBody }{Body: RemoveBody{ID: input.ID, Removed: removed}}, nil
}

// toHTTPError maps domain errors onto Huma status errors.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, geometry.ErrInvalidGeometry):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, registry.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, mapview.ErrUnknownBaseLayer):
		return huma.Error422UnprocessableEntity(err.Error())
	}
	log.Error().Err(err).Msg("Unhandled API error")
	return huma.Error500InternalServerError("internal error", err)
}
