package mapview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/paulmach/orb/maptile"
)

// ErrUnknownBaseLayer is returned when selecting a layer that does not exist.
var ErrUnknownBaseLayer = errors.New("unknown base layer")

// BaseLayer identifies one of the mutually exclusive background tile sources.
type BaseLayer int

const (
	Street BaseLayer = iota
	Satellite
	Terrain
	numBaseLayers
)

var baseLayerNames = [numBaseLayers]string{"street", "satellite", "terrain"}

func (b BaseLayer) String() string {
	if b < 0 || b >= numBaseLayers {
		return "BaseLayer(" + strconv.Itoa(int(b)) + ")"
	}
	return baseLayerNames[b]
}

// ParseBaseLayer accepts layer keys and the display names of the default
// sources ("OpenStreetMap" for street).
func ParseBaseLayer(s string) (BaseLayer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "street", "streets", "openstreetmap", "osm":
		return Street, nil
	case "satellite", "imagery":
		return Satellite, nil
	case "terrain", "topo", "opentopomap":
		return Terrain, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBaseLayer, s)
}

// TileSource describes a raster XYZ tile service.
type TileSource struct {
	Name        string   `json:"name" yaml:"name" doc:"Display name" example:"OpenStreetMap"`
	URL         string   `json:"url" yaml:"url" doc:"XYZ URL template with {s}, {z}, {x}, {y}" example:"https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"`
	Attribution string   `json:"attribution" yaml:"attribution" doc:"Attribution HTML"`
	Subdomains  []string `json:"subdomains,omitempty" yaml:"subdomains,omitempty" doc:"Values substituted for {s}"`
	MaxZoom     int      `json:"maxZoom" yaml:"max_zoom" doc:"Highest zoom served" example:"19"`
}

// TileURL expands the URL template for a tile. Subdomains rotate with the
// tile position so neighbouring tiles spread over hosts.
func (s TileSource) TileURL(t maptile.Tile) string {
	sub := ""
	if len(s.Subdomains) > 0 {
		sub = s.Subdomains[int(t.X+t.Y)%len(s.Subdomains)]
	}
	return strings.NewReplacer(
		"{s}", sub,
		"{z}", strconv.Itoa(int(t.Z)),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
	).Replace(s.URL)
}

// DefaultSources returns the street, satellite and terrain sources.
func DefaultSources() [numBaseLayers]TileSource {
	return [numBaseLayers]TileSource{
		Street: {
			Name:        "OpenStreetMap",
			URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
			Subdomains:  []string{"a", "b", "c"},
			MaxZoom:     19,
		},
		Satellite: {
			Name:        "Satellite",
			URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
			Attribution: `&copy; <a href="https://www.esri.com">Esri</a>`,
			MaxZoom:     19,
		},
		Terrain: {
			Name:        "Terrain",
			URL:         "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
			Attribution: `&copy; <a href="https://www.opentopomap.org">OpenTopoMap</a> contributors`,
			Subdomains:  []string{"a", "b", "c"},
			MaxZoom:     17,
		},
	}
}

// BaseLayerInfo is a tile source together with its key and selection state.
type BaseLayerInfo struct {
	Key    string     `json:"key" doc:"Layer key" example:"street"`
	Active bool       `json:"active" doc:"Whether this is the visible base layer"`
	Source TileSource `json:"source"`
}

// BaseLayers holds the base layer sources and which one is visible. Exactly
// one layer is active at any time; Select is the only transition.
type BaseLayers struct {
	mu      sync.RWMutex
	sources [numBaseLayers]TileSource
	active  BaseLayer
}

// NewBaseLayers creates the switcher with the default sources.
func NewBaseLayers(active BaseLayer) (*BaseLayers, error) {
	if active < 0 || active >= numBaseLayers {
		return nil, fmt.Errorf("%w: %v", ErrUnknownBaseLayer, active)
	}
	return &BaseLayers{sources: DefaultSources(), active: active}, nil
}

// SetSource replaces the tile source of a layer.
func (b *BaseLayers) SetSource(layer BaseLayer, src TileSource) error {
	if layer < 0 || layer >= numBaseLayers {
		return fmt.Errorf("%w: %v", ErrUnknownBaseLayer, layer)
	}
	b.mu.Lock()
	b.sources[layer] = src
	b.mu.Unlock()
	return nil
}

// Active returns the visible layer and its source.
func (b *BaseLayers) Active() (BaseLayer, TileSource) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active, b.sources[b.active]
}

// Select makes layer the visible one. Unknown layers leave the state as is.
func (b *BaseLayers) Select(layer BaseLayer) error {
	if layer < 0 || layer >= numBaseLayers {
		return fmt.Errorf("%w: %v", ErrUnknownBaseLayer, layer)
	}
	b.mu.Lock()
	b.active = layer
	b.mu.Unlock()
	return nil
}

// List returns every layer in display order.
func (b *BaseLayers) List() []BaseLayerInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]BaseLayerInfo, 0, numBaseLayers)
	for l := Street; l < numBaseLayers; l++ {
		out = append(out, BaseLayerInfo{Key: l.String(), Active: l == b.active, Source: b.sources[l]})
	}
	return out
}
