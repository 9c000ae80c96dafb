// Package project holds the carbon-project markers shown on the map.
package project

import (
	"context"
	"maps"
	"slices"

	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/theme"
)

// Marker is the point representation of a registry project. Markers are
// owned by whoever loaded them; the map only reads them.
type Marker struct {
	ID            string            `json:"id" yaml:"id" doc:"Project identifier" example:"1"`
	Coordinates   geometry.LatLng   `json:"coordinates" yaml:"coordinates" doc:"Marker position"`
	Status        theme.Status      `json:"status" yaml:"status" doc:"Project status: Active, Pending or Completed" example:"Active"`
	DisplayFields map[string]string `json:"displayFields,omitempty" yaml:"display,omitempty" doc:"Popup fields: name, location, area, carbon"`
}

// AreaRadiusMeters is the radius of the illustrative project area drawn
// around each marker. Real project boundaries are not modelled.
const AreaRadiusMeters = 500

// areaSegments is the vertex count of the project area ring.
const areaSegments = 48

// Area returns the project's illustrative area as a ring around the marker.
func (m Marker) Area() []geometry.LatLng {
	return geometry.Circle(m.Coordinates, AreaRadiusMeters, areaSegments)
}

// Field returns a display field or "".
func (m Marker) Field(key string) string {
	return m.DisplayFields[key]
}

// Clone returns a copy that shares nothing with m.
func (m Marker) Clone() Marker {
	m.DisplayFields = maps.Clone(m.DisplayFields)
	return m
}

// Loader supplies the markers for a map page.
type Loader interface {
	Load(ctx context.Context) ([]Marker, error)
}

// StaticLoader serves a fixed marker list.
type StaticLoader struct {
	markers []Marker
}

// NewStaticLoader creates a loader over markers. The slice is copied.
func NewStaticLoader(markers []Marker) *StaticLoader {
	return &StaticLoader{markers: cloneAll(markers)}
}

// Load returns a copy of the markers.
func (l *StaticLoader) Load(ctx context.Context) ([]Marker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneAll(l.markers), nil
}

func cloneAll(markers []Marker) []Marker {
	out := slices.Clone(markers)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

// Sample returns the demonstration projects shown on a fresh dashboard.
func Sample() []Marker {
	return []Marker{
		{
			ID:          "1",
			Coordinates: geometry.LatLng{Lat: 37.7749, Lon: -122.4194},
			Status:      theme.StatusActive,
			DisplayFields: map[string]string{
				"name": "Farm A Carbon Project", "location": "California",
				"area": "250 acres", "carbon": "82.3 tons",
			},
		},
		{
			ID:          "2",
			Coordinates: geometry.LatLng{Lat: 44.0582, Lon: -121.3153},
			Status:      theme.StatusPending,
			DisplayFields: map[string]string{
				"name": "Woodland Restoration", "location": "Oregon",
				"area": "120 acres", "carbon": "45.1 tons",
			},
		},
		{
			ID:          "3",
			Coordinates: geometry.LatLng{Lat: 47.6062, Lon: -122.3321},
			Status:      theme.StatusCompleted,
			DisplayFields: map[string]string{
				"name": "Agroforestry Initiative", "location": "Washington",
				"area": "180 acres", "carbon": "63.7 tons",
			},
		},
		{
			ID:          "4",
			Coordinates: geometry.LatLng{Lat: 46.8797, Lon: -110.3626},
			Status:      theme.StatusActive,
			DisplayFields: map[string]string{
				"name": "Sustainable Grazing Project", "location": "Montana",
				"area": "350 acres", "carbon": "95.2 tons",
			},
		},
	}
}
