// Package config loads the map defaults from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soilledger/soilmap/internal/geometry"
	"github.com/soilledger/soilmap/internal/mapview"
	"github.com/soilledger/soilmap/internal/project"
	"github.com/soilledger/soilmap/internal/theme"
)

// Config represents the root configuration file structure.
type Config struct {
	Center       geometry.LatLng `yaml:"center"`
	Zoom         float64         `yaml:"zoom"`
	BaseLayer    string          `yaml:"base_layer"`
	Mode         string          `yaml:"mode"`
	StrictRemove bool            `yaml:"strict_remove"`
	// Sources overrides tile sources by layer key (street, satellite, terrain).
	Sources map[string]mapview.TileSource `yaml:"sources,omitempty"`
	// Markers replaces the sample projects when set.
	Markers []project.Marker `yaml:"markers,omitempty"`
}

// Default returns the built-in configuration: the contiguous United States
// on the street map in light mode.
func Default() *Config {
	return &Config{
		Center:    geometry.LatLng{Lat: 39.8283, Lon: -98.5795},
		Zoom:      4,
		BaseLayer: mapview.Street.String(),
		Mode:      theme.Light.String(),
	}
}

// Load reads and parses the YAML configuration file at path. Keys missing
// from the file keep their defaults; a missing file yields Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if _, err := mapview.ParseBaseLayer(c.BaseLayer); err != nil {
		return err
	}
	if _, ok := theme.ParseMode(c.Mode); !ok {
		return fmt.Errorf("unknown theme mode %q", c.Mode)
	}
	for key := range c.Sources {
		if _, err := mapview.ParseBaseLayer(key); err != nil {
			return fmt.Errorf("sources: %w", err)
		}
	}
	if c.Zoom < 0 || c.Zoom > 22 {
		return fmt.Errorf("zoom %v out of range", c.Zoom)
	}
	return nil
}

// ThemeMode returns the configured default mode.
func (c *Config) ThemeMode() theme.Mode {
	m, _ := theme.ParseMode(c.Mode)
	return m
}

// BaseLayers builds the layer switcher with the configured default and
// source overrides.
func (c *Config) BaseLayers() (*mapview.BaseLayers, error) {
	active, err := mapview.ParseBaseLayer(c.BaseLayer)
	if err != nil {
		return nil, err
	}
	layers, err := mapview.NewBaseLayers(active)
	if err != nil {
		return nil, err
	}
	for key, src := range c.Sources {
		l, err := mapview.ParseBaseLayer(key)
		if err != nil {
			return nil, err
		}
		if err := layers.SetSource(l, src); err != nil {
			return nil, err
		}
	}
	return layers, nil
}

// MarkerLoader returns the configured markers, or the sample projects when
// the file lists none.
func (c *Config) MarkerLoader() project.Loader {
	if len(c.Markers) > 0 {
		return project.NewStaticLoader(c.Markers)
	}
	return project.NewStaticLoader(project.Sample())
}
