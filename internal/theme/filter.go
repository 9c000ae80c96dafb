package theme

import "fmt"

// Filter is a CSS filter applied to the map container.
type Filter struct {
	Invert     float64 `json:"invert" doc:"invert() percentage"`
	HueRotate  float64 `json:"hueRotate" doc:"hue-rotate() degrees"`
	Brightness float64 `json:"brightness" doc:"brightness() percentage"`
	Contrast   float64 `json:"contrast" doc:"contrast() percentage"`
	Fallback   bool    `json:"fallback,omitempty" doc:"Whether the light filter was used for an unrecognised mode"`
}

var (
	lightFilter = Filter{Brightness: 100, Contrast: 100}
	darkFilter  = Filter{Invert: 92, HueRotate: 180, Brightness: 95, Contrast: 85}
)

// FilterForMode returns the map filter for a display mode. Modes outside the
// enum resolve to the light filter with Fallback set.
func FilterForMode(m Mode) Filter {
	switch m {
	case Light:
		return lightFilter
	case Dark:
		return darkFilter
	}
	f := lightFilter
	f.Fallback = true
	return f
}

// IsIdentity reports whether the filter leaves the map unchanged.
func (f Filter) IsIdentity() bool {
	return f.Invert == 0 && f.HueRotate == 0 && f.Brightness == 100 && f.Contrast == 100
}

// CSS renders the filter as a CSS filter property value.
func (f Filter) CSS() string {
	if f.IsIdentity() {
		return "none"
	}
	return fmt.Sprintf("invert(%g%%) hue-rotate(%gdeg) brightness(%g%%) contrast(%g%%)",
		f.Invert, f.HueRotate, f.Brightness, f.Contrast)
}
