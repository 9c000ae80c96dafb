// Package editor contains Datastar SSE handlers for the drawing UI.
package editor

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/soilledger/soilmap/internal/annotate"
	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/humastar"
	"github.com/soilledger/soilmap/internal/mapview"
	"github.com/soilledger/soilmap/internal/templates"
)

// Signal names. Datastar lowercases bound signal names.
const (
	SignalDrawKind     = "drawkind"
	SignalDrawVertices = "drawvertices"
	SignalLastArea     = "lastarea"
	SignalLastKind     = "lastkind"
	SignalBaseMap      = "basemap"
	SignalShowMarkers  = "showmarkers"
	SignalShowAreas    = "showareas"
)

// ShapeHandler lets the map page draw, list and delete shapes over SSE.
type ShapeHandler struct {
	humastar.Handler
	session *annotate.Session
}

func NewShapeHandler(session *annotate.Session, renderer *templates.Renderer) *ShapeHandler {
	return &ShapeHandler{
		Handler: humastar.Handler{Renderer: renderer},
		session: session,
	}
}

func (h *ShapeHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/shapes", h.ListShapes, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/draw", h.Draw, huma.OperationTags("editor"))
	huma.Delete(api, "/api/v1/editor/shapes/{id}", h.DeleteShape, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/basemap", h.SelectBaseMap, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/overlays", h.ToggleOverlays, huma.OperationTags("editor"))
}

func (h *ShapeHandler) ListShapes(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		sse.Inner("#area-list", h.renderShapeList())
	}), nil
}

// Draw registers the shape in the draw signals and reports its area back as
// signals.
func (h *ShapeHandler) Draw(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.Signals()
	if err != nil {
		return nil, err
	}
	kind, err := geometry.ParseKind(signals.String(SignalDrawKind))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	var vertices []geometry.LatLng
	if err := signals.Decode(SignalDrawVertices, &vertices); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	return h.Stream(func(sse humastar.SSE) {
		drawn, err := h.session.HandleDraw(annotate.DrawEvent{Kind: kind, Vertices: vertices})
		if err != nil {
			sse.Fail(err.Error())
			return
		}

		sse.Signals(map[string]any{
			SignalLastArea:     fmt.Sprintf("%.2f", drawn.AreaAcres),
			SignalLastKind:     string(drawn.Kind),
			SignalDrawVertices: []geometry.LatLng{},
			humastar.NoticeSignal: fmt.Sprintf("%s drawn: %.2f acres", drawn.Kind.Title(), drawn.AreaAcres),
			humastar.ErrorSignal:  "",
		})
		sse.Inner("#area-list", h.renderShapeList())
	}), nil
}

type DeleteShapeInput struct {
	ID string `path:"id" doc:"Shape ID to delete"`
}

func (h *ShapeHandler) DeleteShape(ctx context.Context, input *DeleteShapeInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		removed, err := h.session.Delete(input.ID)
		if err != nil {
			sse.Fail(err.Error())
			return
		}
		if !removed {
			sse.Notice("Shape already removed")
			return
		}
		sse.RemoveElementByID("shape-" + input.ID)
		sse.Notice("Shape deleted")
	}), nil
}

func (h *ShapeHandler) SelectBaseMap(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.Signals()
	if err != nil {
		return nil, err
	}
	layer, err := mapview.ParseBaseLayer(signals.String(SignalBaseMap))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	return h.Stream(func(sse humastar.SSE) {
		layers := h.session.Adapter().Layers()
		if err := layers.Select(layer); err != nil {
			sse.Fail(err.Error())
			return
		}
		_, src := layers.Active()
		sse.Signals(map[string]any{
			SignalBaseMap: layer.String(),
			"tileurl":     src.URL,
			"attribution": src.Attribution,
		})
	}), nil
}

// ToggleOverlays applies the Project Markers and Project Areas checkboxes.
// A checkbox the page did not send keeps its current state.
func (h *ShapeHandler) ToggleOverlays(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.Signals()
	if err != nil {
		return nil, err
	}
	cur := h.session.Overlays()
	next := mapview.Overlays{
		Markers: signals.Bool(SignalShowMarkers, cur.Markers),
		Areas:   signals.Bool(SignalShowAreas, cur.Areas),
	}
	h.session.SetOverlays(next)

	return h.Stream(func(sse humastar.SSE) {
		sse.Signals(map[string]any{
			SignalShowMarkers: next.Markers,
			SignalShowAreas:   next.Areas,
		})
		sse.DispatchCustomEvent("overlays-changed", next)
	}), nil
}

func (h *ShapeHandler) renderShapeList() string {
	shapes := h.session.Shapes()
	items := make([]any, len(shapes))
	for i, s := range shapes {
		items[i] = s
	}
	return h.RenderList("area-drawn", items, humastar.EmptyState{
		Title:   "No areas drawn",
		Message: "Draw a polygon or rectangle on the map",
	})
}
