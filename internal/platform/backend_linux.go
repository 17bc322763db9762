//go:build linux

package platform

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/winhost/internal/x11"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// StopEventLoop makes a running EventLoop return.
func (b *LinuxBackend) StopEventLoop() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// Displays returns all active displays.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, displayFromMonitor(m))
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

// MatchingDisplay returns the display that best matches bounds.
func (b *LinuxBackend) MatchingDisplay(bounds Rect) (Display, bool) {
	displays, err := b.Displays()
	if err != nil {
		return Display{}, false
	}
	return MatchDisplay(displays, bounds)
}

// CreateWindow creates a top-level X11 window.
func (b *LinuxBackend) CreateWindow(opts CreateOptions) (NativeWindow, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	w := &linuxWindow{
		backend:   b,
		normal:    opts.Bounds,
		listeners: make(map[int]func(Event)),
	}
	xw, err := conn.CreateWindow(opts.Title, toGeometry(opts.Bounds), x11.WindowCallbacks{
		StateChanged:   w.onStateChanged,
		CloseRequested: func() { w.emit(EventCloseRequested) },
		FocusIn:        func() { w.emit(EventFocus) },
	})
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.win = xw
	w.mu.Unlock()

	if opts.Show {
		if err := xw.Map(); err != nil {
			_ = xw.Destroy()
			return nil, err
		}
	}
	return w, nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func displayFromMonitor(m x11.Monitor) Display {
	return Display{
		ID:      m.ID,
		Name:    m.Name,
		Primary: m.Primary,
		Bounds:  fromGeometry(m.Bounds),
		Usable:  fromGeometry(m.WorkArea),
	}
}

func toGeometry(r Rect) x11.Geometry {
	return x11.Geometry{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func fromGeometry(g x11.Geometry) Rect {
	return Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}

// linuxWindow adapts an x11.Window to NativeWindow. Fullscreen and maximize
// requests go through the window manager, so IsFullscreen and IsMaximized
// only change once _NET_WM_STATE is updated.
type linuxWindow struct {
	backend *LinuxBackend
	win     *x11.Window

	mu            sync.Mutex
	normal        Rect
	simple        bool
	simpleRestore Rect
	fullscreen    bool
	maximized     bool
	listeners     map[int]func(Event)
	nextSub       int
}

func (w *linuxWindow) ID() WindowID { return WindowID(w.win.ID()) }

func (w *linuxWindow) Bounds() Rect {
	geom, err := w.win.Geometry()
	if err != nil {
		return Rect{}
	}
	return fromGeometry(geom)
}

func (w *linuxWindow) NormalBounds() Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.normal
}

func (w *linuxWindow) SetBounds(bounds Rect) error {
	if err := w.win.MoveResize(toGeometry(bounds)); err != nil {
		return w.translate(err)
	}
	w.mu.Lock()
	if !w.maximized && !w.fullscreen && !w.simple {
		w.normal = bounds
	}
	w.mu.Unlock()
	return nil
}

func (w *linuxWindow) SetTitle(title string) error {
	return w.translate(w.win.SetTitle(title))
}

func (w *linuxWindow) Show() error {
	return w.translate(w.win.Map())
}

func (w *linuxWindow) IsVisible() bool {
	return w.win.Mapped()
}

func (w *linuxWindow) IsMinimized() bool {
	return w.win.HasState(x11.StateHidden)
}

func (w *linuxWindow) Restore() error {
	if err := w.win.RequestState(false, x11.StateHidden, ""); err != nil {
		return w.translate(err)
	}
	return w.translate(w.win.Map())
}

func (w *linuxWindow) Focus() error {
	return w.translate(w.win.Activate())
}

func (w *linuxWindow) Maximize() error {
	return w.translate(w.win.RequestState(true, x11.StateMaximizedHorz, x11.StateMaximizedVert))
}

func (w *linuxWindow) IsMaximized() bool {
	return w.win.HasState(x11.StateMaximizedHorz) && w.win.HasState(x11.StateMaximizedVert)
}

func (w *linuxWindow) SetFullscreen(fullscreen bool) error {
	return w.translate(w.win.RequestState(fullscreen, x11.StateFullscreen, ""))
}

func (w *linuxWindow) IsFullscreen() bool {
	return w.win.HasState(x11.StateFullscreen)
}

// SetSimpleFullscreen covers the display without involving the window
// manager's fullscreen state: the window is kept above others and resized
// to the bounds of its display.
func (w *linuxWindow) SetSimpleFullscreen(fullscreen bool) error {
	w.mu.Lock()
	if w.simple == fullscreen {
		w.mu.Unlock()
		return nil
	}
	restore := w.simpleRestore
	w.mu.Unlock()

	if fullscreen {
		current := w.Bounds()
		display, ok := w.backend.MatchingDisplay(current)
		if !ok {
			return fmt.Errorf("no display for simple fullscreen")
		}
		if err := w.win.RequestState(true, x11.StateAbove, ""); err != nil {
			return w.translate(err)
		}
		if err := w.win.MoveResize(toGeometry(display.Bounds)); err != nil {
			return w.translate(err)
		}
		w.mu.Lock()
		w.simple = true
		w.simpleRestore = current
		w.mu.Unlock()
		return nil
	}

	if err := w.win.RequestState(false, x11.StateAbove, ""); err != nil {
		return w.translate(err)
	}
	if !restore.Empty() {
		if err := w.win.MoveResize(toGeometry(restore)); err != nil {
			return w.translate(err)
		}
	}
	w.mu.Lock()
	w.simple = false
	w.mu.Unlock()
	return nil
}

func (w *linuxWindow) IsSimpleFullscreen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.simple
}

func (w *linuxWindow) SetAttention(attention bool) error {
	return w.translate(w.win.RequestState(attention, x11.StateDemandsAttention, ""))
}

func (w *linuxWindow) Subscribe(fn func(Event)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextSub
	w.nextSub++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

// Close destroys the window after notifying subscribers, since the window
// is owned by this process and there is no separate unload phase.
func (w *linuxWindow) Close() error {
	w.emit(EventClosed)
	return w.translate(w.win.Destroy())
}

func (w *linuxWindow) Destroy() error {
	return w.translate(w.win.Destroy())
}

func (w *linuxWindow) onStateChanged(states []string) {
	has := make(map[string]bool, len(states))
	for _, s := range states {
		has[s] = true
	}
	fullscreen := has[x11.StateFullscreen]
	maximized := has[x11.StateMaximizedHorz] && has[x11.StateMaximizedVert]

	w.mu.Lock()
	wasFullscreen := w.fullscreen
	wasMaximized := w.maximized
	w.fullscreen = fullscreen
	w.maximized = maximized
	w.mu.Unlock()

	if fullscreen != wasFullscreen {
		if fullscreen {
			w.emit(EventEnterFullscreen)
		} else {
			w.emit(EventLeaveFullscreen)
		}
	}
	if maximized != wasMaximized {
		if maximized {
			w.emit(EventMaximize)
		} else {
			w.emit(EventUnmaximize)
		}
	}
}

func (w *linuxWindow) emit(kind EventKind) {
	w.mu.Lock()
	fns := make([]func(Event), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	var id WindowID
	if w.win != nil {
		id = WindowID(w.win.ID())
	}
	w.mu.Unlock()

	ev := Event{Kind: kind, Window: id}
	for _, fn := range fns {
		fn(ev)
	}
}

func (w *linuxWindow) translate(err error) error {
	if errors.Is(err, x11.ErrDestroyed) {
		return ErrWindowGone
	}
	return err
}
