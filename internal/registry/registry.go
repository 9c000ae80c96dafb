// Package registry is the in-memory store of user-drawn shapes for one map
// session.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/soilledger/soilmap/internal/geometry"
)

// ErrNotFound is returned for lookups of unknown shape IDs.
var ErrNotFound = errors.New("shape not found")

// Config controls registry behaviour.
type Config struct {
	// StrictRemove makes Remove of an unknown ID fail with ErrNotFound
	// instead of returning false.
	StrictRemove bool
	// Bus receives change events. A private bus is created when nil.
	Bus *EventBus
}

// Registry holds shapes keyed by ID and remembers insertion order.
type Registry struct {
	cfg    Config
	bus    *EventBus
	shapes map[string]geometry.Shape
	order  []string
	mu     sync.RWMutex
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	bus := cfg.Bus
	if bus == nil {
		bus = NewEventBus()
	}
	return &Registry{
		cfg:    cfg,
		bus:    bus,
		shapes: make(map[string]geometry.Shape),
	}
}

// Bus returns the event bus the registry publishes to.
func (r *Registry) Bus() *EventBus {
	return r.bus
}

// StrictRemove reports whether Remove fails on unknown IDs.
func (r *Registry) StrictRemove() bool {
	return r.cfg.StrictRemove
}

// Add validates the shape, computes its area and stores it under a fresh ID.
// Any ID or area on the input is ignored. Invalid shapes are not stored.
func (r *Registry) Add(s geometry.Shape) (geometry.Shape, error) {
	vertices, err := geometry.Validate(s.Kind, s.Vertices)
	if err != nil {
		return geometry.Shape{}, err
	}
	shape := geometry.Shape{Kind: s.Kind, Vertices: vertices}
	if shape.AreaSquareMeters, err = geometry.ComputeArea(shape); err != nil {
		return geometry.Shape{}, err
	}

	r.mu.Lock()
	shape.ID = uuid.NewString()
	r.shapes[shape.ID] = shape
	r.order = append(r.order, shape.ID)
	r.mu.Unlock()

	log.Debug().
		Str("id", shape.ID).
		Str("kind", string(shape.Kind)).
		Float64("area_m2", shape.AreaSquareMeters).
		Msg("Shape added")
	r.bus.Publish(Event{Action: Added, ID: shape.ID})
	return shape.Clone(), nil
}

// Get returns a shape by ID.
func (r *Registry) Get(id string) (geometry.Shape, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shapes[id]
	if !ok {
		return geometry.Shape{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s.Clone(), nil
}

// Remove deletes a shape by ID and reports whether it existed. With
// StrictRemove an unknown ID returns ErrNotFound.
func (r *Registry) Remove(id string) (bool, error) {
	r.mu.Lock()
	if _, ok := r.shapes[id]; !ok {
		r.mu.Unlock()
		if r.cfg.StrictRemove {
			return false, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return false, nil
	}
	delete(r.shapes, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	r.mu.Unlock()

	log.Debug().Str("id", id).Msg("Shape removed")
	r.bus.Publish(Event{Action: Removed, ID: id})
	return true, nil
}

// List returns all shapes in insertion order.
func (r *Registry) List() []geometry.Shape {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]geometry.Shape, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.shapes[id].Clone())
	}
	return result
}

// Len returns the number of shapes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear drops every shape. Used on session teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	n := len(r.order)
	r.shapes = make(map[string]geometry.Shape)
	r.order = nil
	r.mu.Unlock()

	log.Debug().Int("count", n).Msg("Shapes cleared")
	r.bus.Publish(Event{Action: Cleared})
}
