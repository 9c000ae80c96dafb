package editor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/soilledger/soilmap/internal/annotate"
	"github.com/soilledger/soilmap/internal/humastar"
	"github.com/soilledger/soilmap/internal/templates"
)

// EventHandler streams registry changes to the Datastar UI via SSE.
type EventHandler struct {
	shapes *ShapeHandler
}

// NewEventHandler creates a new event handler.
func NewEventHandler(session *annotate.Session, renderer *templates.Renderer) *EventHandler {
	return &EventHandler{shapes: NewShapeHandler(session, renderer)}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/events", h.Events,
		huma.OperationTags("editor"),
	)
}

func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	bus := h.shapes.session.Registry().Bus()
	return h.shapes.Stream(func(sse humastar.SSE) {
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				sse.Inner("#area-list", h.shapes.renderShapeList())
				sse.DispatchCustomEvent("shape-changed", map[string]any{
					"action": ev.Action,
					"id":     ev.ID,
				})
			}
		}
	}), nil
}
