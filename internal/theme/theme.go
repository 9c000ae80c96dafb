// Package theme maps project status and light/dark mode to visual
// parameters. Every function here is pure: the result depends only on the
// arguments.
package theme

import "strings"

// Status is the lifecycle state of a carbon project.
type Status int

const (
	StatusUnknown Status = iota
	StatusActive
	StatusPending
	StatusCompleted
)

var statusNames = [...]string{
	StatusUnknown:   "Unknown",
	StatusActive:    "Active",
	StatusPending:   "Pending",
	StatusCompleted: "Completed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return statusNames[StatusUnknown]
	}
	return statusNames[s]
}

// ParseStatus maps a status label to a Status. Unrecognised labels return
// StatusUnknown and false.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, true
	case "pending":
		return StatusPending, true
	case "completed":
		return StatusCompleted, true
	}
	return StatusUnknown, false
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown labels decode
// to StatusUnknown rather than failing.
func (s *Status) UnmarshalText(b []byte) error {
	*s, _ = ParseStatus(string(b))
	return nil
}

// Mode is the display mode.
type Mode int

const (
	Light Mode = iota
	Dark
)

func (m Mode) String() string {
	if m == Dark {
		return "dark"
	}
	return "light"
}

// ParseMode maps "light"/"dark" to a Mode. Anything else returns Light and
// false.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dark":
		return Dark, true
	case "light":
		return Light, true
	}
	return Light, false
}
