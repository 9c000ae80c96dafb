package theme

import "github.com/soilledger/soilmap/internal/geometry"

// Style is the vector/marker styling for one project status.
type Style struct {
	FillColor    string  `json:"fillColor" doc:"Fill colour (CSS)" example:"#4CAF50"`
	StrokeColor  string  `json:"strokeColor" doc:"Stroke colour (CSS)" example:"#4CAF50"`
	StrokeWeight float64 `json:"strokeWeight" doc:"Stroke width in pixels" example:"2"`
	Opacity      float64 `json:"opacity" doc:"Stroke opacity (0-1)" example:"0.7"`
	FillOpacity  float64 `json:"fillOpacity" doc:"Fill opacity (0-1)" example:"0.4"`
	Icon         string  `json:"icon" doc:"Marker icon URL" example:"/icons/marker-green.png"`
	// Fallback is set when the status was not recognised and the default
	// style was used.
	Fallback bool `json:"fallback,omitempty" doc:"Whether the default style was used for an unrecognised status"`
}

var statusStyles = [...]Style{
	StatusUnknown: {
		FillColor: "#3388ff", StrokeColor: "#3388ff",
		StrokeWeight: 2, Opacity: 0.7, FillOpacity: 0.4,
		Icon: "/icons/marker-icon.png", Fallback: true,
	},
	StatusActive: {
		FillColor: "#4CAF50", StrokeColor: "#4CAF50",
		StrokeWeight: 2, Opacity: 0.7, FillOpacity: 0.4,
		Icon: "/icons/marker-green.png",
	},
	StatusPending: {
		FillColor: "#FFC107", StrokeColor: "#FFC107",
		StrokeWeight: 2, Opacity: 0.7, FillOpacity: 0.4,
		Icon: "/icons/marker-yellow.png",
	},
	StatusCompleted: {
		FillColor: "#2196F3", StrokeColor: "#2196F3",
		StrokeWeight: 2, Opacity: 0.7, FillOpacity: 0.4,
		Icon: "/icons/marker-blue.png",
	},
}

// StyleForStatus returns the style for a status. It never fails: values
// outside the enum get the default style with Fallback set.
func StyleForStatus(s Status) Style {
	if s <= StatusUnknown || int(s) >= len(statusStyles) {
		return statusStyles[StatusUnknown]
	}
	return statusStyles[s]
}

// ShapeStyle returns the style of user-drawn shapes.
func ShapeStyle(kind geometry.Kind) Style {
	st := Style{
		FillColor: "#3388ff", StrokeColor: "#3388ff",
		StrokeWeight: 4, Opacity: 0.5, FillOpacity: 0.2,
	}
	if kind == geometry.Rectangle {
		st.StrokeWeight = 3
	}
	return st
}

// LegendItem is one entry of the map legend.
type LegendItem struct {
	Label string `json:"label" doc:"Legend label" example:"Active"`
	Color string `json:"color" doc:"Legend colour (CSS)" example:"#4CAF50"`
}

// Legend returns the status legend in display order.
func Legend() []LegendItem {
	items := make([]LegendItem, 0, 3)
	for _, s := range []Status{StatusActive, StatusPending, StatusCompleted} {
		items = append(items, LegendItem{Label: s.String(), Color: StyleForStatus(s).FillColor})
	}
	return items
}
