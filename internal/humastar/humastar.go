// Package humastar serves Datastar hypermedia from Huma operations.
//
// Editor handlers embed [Handler] and answer with [Handler.Stream], which
// hands them an [SSE] writer bound to the Huma response. Datastar posts its
// signals as a flat JSON body; [SignalsInput] reads them. [Links] derives
// RFC 8288 Link headers from the OpenAPI document.
//
//	func (h *ShapeHandler) ListShapes(ctx context.Context, in *humastar.EmptyInput) (*huma.StreamResponse, error) {
//		return h.Stream(func(sse humastar.SSE) {
//			sse.Inner("#area-list", h.RenderList("area-drawn", items, empty))
//		}), nil
//	}
package humastar

import (
	"bytes"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/soilledger/soilmap/internal/templates"
)

// EmptyInput is the input of operations that take no parameters.
type EmptyInput struct{}

// Handler is embedded by editor handlers that answer over SSE.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream wraps fn as a Huma streaming response.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{Body: func(ctx huma.Context) {
		fn(NewSSE(ctx))
	}}
}

// EmptyState is shown in place of a list with no items.
type EmptyState struct {
	Title   string
	Message string
}

// RenderList renders each item with tmpl, or the empty-state fragment when
// there are none. A template failure is logged and the item skipped.
func (h *Handler) RenderList(tmpl string, items []any, empty EmptyState) string {
	var buf bytes.Buffer
	if len(items) == 0 {
		if err := h.Renderer.RenderToBuffer(&buf, "empty-state", empty); err != nil {
			log.Error().Err(err).Msg("Rendering empty state")
		}
		return buf.String()
	}
	for _, item := range items {
		if err := h.Renderer.RenderToBuffer(&buf, tmpl, item); err != nil {
			log.Error().Err(err).Str("template", tmpl).Msg("Rendering list item")
		}
	}
	return buf.String()
}
