package platform

import "errors"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Display describes a physical display and its usable work area.
type Display struct {
	ID      int
	Name    string
	Bounds  Rect
	Usable  Rect
	Primary bool
}

// EventKind identifies a native window notification.
type EventKind int

const (
	EventEnterFullscreen EventKind = iota + 1
	EventLeaveFullscreen
	EventMaximize
	EventUnmaximize
	EventFocus
	EventCloseRequested
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventEnterFullscreen:
		return "enter-fullscreen"
	case EventLeaveFullscreen:
		return "leave-fullscreen"
	case EventMaximize:
		return "maximize"
	case EventUnmaximize:
		return "unmaximize"
	case EventFocus:
		return "focus"
	case EventCloseRequested:
		return "close-requested"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a notification emitted by a native window.
type Event struct {
	Kind   EventKind
	Window WindowID
}

// ErrWindowGone is returned by native window operations after the
// underlying window was destroyed.
var ErrWindowGone = errors.New("native window is gone")

// DisplayQuery abstracts display enumeration.
type DisplayQuery interface {
	Displays() ([]Display, error)
	MatchingDisplay(bounds Rect) (Display, bool)
}

// NativeWindow is the OS-level top-level window. Implementations must be
// safe for concurrent use; every method after Destroy returns ErrWindowGone
// or reports a zero value.
type NativeWindow interface {
	ID() WindowID
	Bounds() Rect
	// NormalBounds returns the restore bounds, which differ from Bounds while
	// the window is maximized.
	NormalBounds() Rect
	SetBounds(bounds Rect) error
	SetTitle(title string) error

	Show() error
	IsVisible() bool
	IsMinimized() bool
	Restore() error
	Focus() error

	Maximize() error
	IsMaximized() bool

	SetFullscreen(fullscreen bool) error
	IsFullscreen() bool
	SetSimpleFullscreen(fullscreen bool) error
	IsSimpleFullscreen() bool

	SetAttention(attention bool) error

	// Subscribe registers fn for native notifications. The returned func
	// removes the subscription.
	Subscribe(fn func(Event)) (unsubscribe func())

	// Close asks the window manager to close the window gracefully.
	Close() error
	// Destroy releases the native window immediately.
	Destroy() error
}

// CreateOptions describes a window to create.
type CreateOptions struct {
	Title  string
	Bounds Rect
	// Show maps the window right away. When false the caller shows it once
	// its state is applied, to avoid flicker between default and restored size.
	Show bool
}

// WindowFactory creates native windows.
type WindowFactory interface {
	CreateWindow(opts CreateOptions) (NativeWindow, error)
}

// Backend combines display queries and window creation.
type Backend interface {
	DisplayQuery
	WindowFactory
}

// PrimaryDisplay returns the display flagged as primary, or the first one.
func PrimaryDisplay(displays []Display) (Display, bool) {
	if len(displays) == 0 {
		return Display{}, false
	}
	for _, d := range displays {
		if d.Primary {
			return d, true
		}
	}
	return displays[0], true
}

// MatchDisplay returns the display whose bounds overlap bounds the most,
// falling back to the display nearest to the bounds center.
func MatchDisplay(displays []Display, bounds Rect) (Display, bool) {
	if len(displays) == 0 {
		return Display{}, false
	}

	best := -1
	bestArea := 0
	for i, d := range displays {
		area := d.Bounds.Intersect(bounds).Area()
		if area > bestArea {
			best = i
			bestArea = area
		}
	}
	if best >= 0 {
		return displays[best], true
	}

	cx, cy := bounds.Center()
	nearest := 0
	nearestDist := -1
	for i, d := range displays {
		dx, dy := d.Bounds.Center()
		dist := (dx-cx)*(dx-cx) + (dy-cy)*(dy-cy)
		if nearestDist < 0 || dist < nearestDist {
			nearest = i
			nearestDist = dist
		}
	}
	return displays[nearest], true
}
