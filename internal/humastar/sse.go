package humastar

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
)

// Signal names the editor page binds its toast messages to.
const (
	ErrorSignal  = "error"
	NoticeSignal = "success"
)

// SSE writes Datastar events to a streaming Huma response.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE starts an event stream on the response behind ctx.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Inner swaps the children of the element matched by selector.
func (s SSE) Inner(selector, html string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
		datastar.WithViewTransitions(),
	)
}

// Signals merges values into the page signals.
func (s SSE) Signals(values map[string]any) {
	s.MarshalAndPatchSignals(values)
}

// Fail shows msg as an error toast and clears any notice.
func (s SSE) Fail(msg string) {
	s.Signals(map[string]any{ErrorSignal: msg, NoticeSignal: ""})
}

// Notice shows msg as a success toast and clears any error.
func (s SSE) Notice(msg string) {
	s.Signals(map[string]any{NoticeSignal: msg, ErrorSignal: ""})
}
