// Package windowstate holds the persisted geometry and mode of a host
// window, validates it against the attached displays and stores it between
// sessions.
package windowstate

import (
	"errors"
	"fmt"

	"github.com/1broseidon/winhost/internal/platform"
)

// Mode is the display mode of a window.
type Mode string

const (
	ModeNormal     Mode = "normal"
	ModeMaximized  Mode = "maximized"
	ModeFullscreen Mode = "fullscreen"
)

// Default window size used when nothing valid was persisted.
const (
	DefaultWidth  = 1024
	DefaultHeight = 768
)

// MaxCoordinate bounds every persisted coordinate and size. X11 geometry
// is 16-bit, so larger values can only come from a corrupt record.
const MaxCoordinate = 1 << 20

// ErrInvalidState is wrapped by Validate errors.
var ErrInvalidState = errors.New("invalid window state")

// WindowState is the persisted geometry of one window.
//
// For ModeMaximized, Bounds are the restore bounds, never the maximized or
// drag bounds. For ModeFullscreen, Bounds are the bounds the window had
// before entering fullscreen and DisplayID names the fullscreen display.
type WindowState struct {
	Bounds    *platform.Rect `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Mode      Mode           `json:"mode" yaml:"mode"`
	DisplayID *int           `json:"display_id,omitempty" yaml:"display_id,omitempty"`
	ZoomLevel *float64       `json:"zoom_level,omitempty" yaml:"zoom_level,omitempty"`
}

// HasBounds reports whether numeric bounds were recorded.
func (s WindowState) HasBounds() bool {
	return s.Bounds != nil
}

// Validate checks the record for internal consistency.
func (s WindowState) Validate() error {
	switch s.Mode {
	case ModeNormal, ModeMaximized, ModeFullscreen:
	case "":
		return fmt.Errorf("%w: missing mode", ErrInvalidState)
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidState, s.Mode)
	}
	if s.Bounds != nil && (s.Bounds.Width <= 0 || s.Bounds.Height <= 0) {
		return fmt.Errorf("%w: non-positive size %dx%d", ErrInvalidState, s.Bounds.Width, s.Bounds.Height)
	}
	if s.Bounds != nil && !inRange(*s.Bounds) {
		return fmt.Errorf("%w: bounds %+v out of range", ErrInvalidState, *s.Bounds)
	}
	return nil
}

func inRange(r platform.Rect) bool {
	within := func(v int) bool { return v >= -MaxCoordinate && v <= MaxCoordinate }
	return within(r.X) && within(r.Y) && r.Width <= MaxCoordinate && r.Height <= MaxCoordinate
}

// Clone returns a deep copy.
func (s WindowState) Clone() WindowState {
	out := WindowState{Mode: s.Mode}
	if s.Bounds != nil {
		b := *s.Bounds
		out.Bounds = &b
	}
	if s.DisplayID != nil {
		id := *s.DisplayID
		out.DisplayID = &id
	}
	if s.ZoomLevel != nil {
		z := *s.ZoomLevel
		out.ZoomLevel = &z
	}
	return out
}

// WithBounds returns a copy of s with bounds replaced.
func (s WindowState) WithBounds(bounds platform.Rect) WindowState {
	out := s.Clone()
	out.Bounds = &bounds
	return out
}

// Default returns the default state: a normal window of the default size
// centered in the work area of the primary display.
func Default(displays []platform.Display) WindowState {
	bounds := platform.Rect{Width: DefaultWidth, Height: DefaultHeight}
	if primary, ok := platform.PrimaryDisplay(displays); ok {
		bounds = bounds.CenterIn(visibleArea(primary))
	}
	return WindowState{Bounds: &bounds, Mode: ModeNormal}
}

func visibleArea(d platform.Display) platform.Rect {
	if !d.Usable.Empty() {
		return d.Usable
	}
	return d.Bounds
}

// IntPtr and FloatPtr help building optional fields.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
