// Package annotate ties the drawing tools to the shape registry. A Session
// turns draw events into registered shapes and reports the drawn area to a
// single callback.
package annotate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/mapview"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/registry"
	"github.com/soilledger/soilmap/internal/theme"
)

// DrawEvent is a completed polygon or rectangle from the drawing tools.
type DrawEvent struct {
	Kind     geometry.Kind     `json:"kind" enum:"polygon,rectangle" doc:"Drawing tool" example:"rectangle"`
	Vertices []geometry.LatLng `json:"vertices" minItems:"3" doc:"Ring vertices in drawing order"`
}

// AreaDrawn is reported once for every accepted draw.
type AreaDrawn struct {
	ID        string            `json:"id" doc:"Registered shape identifier"`
	Kind      geometry.Kind     `json:"kind" doc:"Drawing tool"`
	AreaAcres float64           `json:"areaAcres" doc:"Geodesic area in acres" example:"2.44"`
	Vertices  []geometry.LatLng `json:"vertices" doc:"Normalised ring vertices"`
}

// Options configures a Session.
type Options struct {
	Registry *registry.Registry
	Markers  project.Loader
	Adapter  *mapview.Adapter
	// OnAreaDraw is called synchronously after a shape is registered.
	OnAreaDraw func(AreaDrawn)
}

// Session is one map instance's drawing state.
type Session struct {
	reg     *registry.Registry
	adapter *mapview.Adapter
	markers []project.Marker

	mu         sync.Mutex
	onAreaDraw func(AreaDrawn)
	overlays   mapview.Overlays
}

// NewSession loads the project markers and returns a ready session.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Registry == nil {
		opts.Registry = registry.New(registry.Config{})
	}
	var markers []project.Marker
	if opts.Markers != nil {
		var err error
		markers, err = opts.Markers.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading markers: %w", err)
		}
	}
	return &Session{
		reg:        opts.Registry,
		adapter:    opts.Adapter,
		markers:    markers,
		onAreaDraw: opts.OnAreaDraw,
		overlays:   mapview.DefaultOverlays(),
	}, nil
}

// Registry returns the session's shape registry.
func (s *Session) Registry() *registry.Registry {
	return s.reg
}

// Adapter returns the session's map adapter, which may be nil.
func (s *Session) Adapter() *mapview.Adapter {
	return s.adapter
}

// HandleDraw registers the drawn shape and reports its area. A rejected draw
// registers nothing and does not call the callback.
func (s *Session) HandleDraw(ev DrawEvent) (AreaDrawn, error) {
	shape, err := s.reg.Add(geometry.Shape{Kind: ev.Kind, Vertices: ev.Vertices})
	if err != nil {
		log.Debug().Err(err).Str("kind", string(ev.Kind)).Int("vertices", len(ev.Vertices)).Msg("Draw rejected")
		return AreaDrawn{}, err
	}

	drawn := AreaDrawn{
		ID:        shape.ID,
		Kind:      shape.Kind,
		AreaAcres: shape.AreaAcres(),
		Vertices:  shape.Vertices,
	}

	s.mu.Lock()
	cb := s.onAreaDraw
	s.mu.Unlock()
	if cb != nil {
		cb(drawn)
	}
	return drawn, nil
}

// Delete removes a drawn shape.
func (s *Session) Delete(id string) (bool, error) {
	return s.reg.Remove(id)
}

// Shapes returns the drawn shapes in the order they were drawn.
func (s *Session) Shapes() []geometry.Shape {
	return s.reg.List()
}

// Markers returns copies of the project markers.
func (s *Session) Markers() []project.Marker {
	out := make([]project.Marker, len(s.markers))
	for i, m := range s.markers {
		out[i] = m.Clone()
	}
	return out
}

// Overlays returns which toggleable overlays are visible.
func (s *Session) Overlays() mapview.Overlays {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlays
}

// SetOverlays changes overlay visibility for later renders and tiles.
func (s *Session) SetOverlays(o mapview.Overlays) {
	s.mu.Lock()
	s.overlays = o
	s.mu.Unlock()
	log.Debug().Bool("markers", o.Markers).Bool("areas", o.Areas).Msg("Overlays changed")
}

// Scene assembles the render input for the current state.
func (s *Session) Scene(mode theme.Mode, v mapview.Viewport) mapview.Scene {
	return mapview.Scene{
		Viewport: v,
		Shapes:   s.Shapes(),
		Markers:  s.Markers(),
		Mode:     mode,
		Overlays: s.Overlays(),
	}
}

// Render draws the current state onto a surface.
func (s *Session) Render(surface mapview.Surface, mode theme.Mode, v mapview.Viewport) error {
	if s.adapter == nil {
		return fmt.Errorf("session has no map adapter")
	}
	return s.adapter.Render(surface, s.Scene(mode, v))
}

// Teardown drops every drawn shape and detaches the callback.
func (s *Session) Teardown() {
	s.reg.Clear()
	s.mu.Lock()
	s.onAreaDraw = nil
	s.mu.Unlock()
}
