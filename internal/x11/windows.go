package x11

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// EWMH window state atoms used by the host window.
const (
	StateFullscreen       = "_NET_WM_STATE_FULLSCREEN"
	StateMaximizedHorz    = "_NET_WM_STATE_MAXIMIZED_HORZ"
	StateMaximizedVert    = "_NET_WM_STATE_MAXIMIZED_VERT"
	StateHidden           = "_NET_WM_STATE_HIDDEN"
	StateAbove            = "_NET_WM_STATE_ABOVE"
	StateDemandsAttention = "_NET_WM_STATE_DEMANDS_ATTENTION"
)

// ErrDestroyed is returned by Window methods after Destroy.
var ErrDestroyed = errors.New("x11 window destroyed")

// WindowCallbacks receive notifications from the X event loop.
type WindowCallbacks struct {
	// StateChanged is called with the full _NET_WM_STATE list whenever the
	// window manager updates it.
	StateChanged func(states []string)
	// CloseRequested is called when the window manager delivers
	// WM_DELETE_WINDOW.
	CloseRequested func()
	// FocusIn is called when the window receives input focus.
	FocusIn func()
}

// Window is a top-level X11 window created and owned by this process.
type Window struct {
	conn *Connection
	win  *xwindow.Window

	mu        sync.Mutex
	destroyed bool
	mapped    bool
	states    map[string]bool
}

// CreateWindow creates an unmapped top-level window and wires its events to cb.
func (c *Connection) CreateWindow(title string, geom Geometry, cb WindowCallbacks) (*Window, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("generate window id: %w", err)
	}

	err = win.CreateChecked(c.Root, geom.X, geom.Y, geom.Width, geom.Height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0xffffff,
		xproto.EventMaskPropertyChange|xproto.EventMaskStructureNotify|xproto.EventMaskFocusChange)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	if err := ewmh.WmNameSet(c.XUtil, win.Id, title); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("set window title: %w", err)
	}
	if err := icccm.WmProtocolsSet(c.XUtil, win.Id, []string{"WM_DELETE_WINDOW"}); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("set WM_PROTOCOLS: %w", err)
	}

	w := &Window{
		conn:   c,
		win:    win,
		states: make(map[string]bool),
	}
	w.connectEvents(cb)
	return w, nil
}

func (w *Window) connectEvents(cb WindowCallbacks) {
	xu := w.conn.XUtil

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil || name != "_NET_WM_STATE" {
			return
		}
		states, err := ewmh.WmStateGet(xu, w.win.Id)
		if err != nil {
			states = nil
		}
		w.mu.Lock()
		w.states = make(map[string]bool, len(states))
		for _, s := range states {
			w.states[s] = true
		}
		w.mu.Unlock()
		if cb.StateChanged != nil {
			cb.StateChanged(states)
		}
	}).Connect(xu, w.win.Id)

	xevent.ClientMessageFun(func(xu *xgbutil.XUtil, ev xevent.ClientMessageEvent) {
		if ev.Format != 32 {
			return
		}
		protocols, err := xprop.Atm(xu, "WM_PROTOCOLS")
		if err != nil || ev.Type != protocols {
			return
		}
		deleteAtom, err := xprop.Atm(xu, "WM_DELETE_WINDOW")
		if err != nil || xproto.Atom(ev.Data.Data32[0]) != deleteAtom {
			return
		}
		if cb.CloseRequested != nil {
			cb.CloseRequested()
		}
	}).Connect(xu, w.win.Id)

	xevent.FocusInFun(func(xu *xgbutil.XUtil, ev xevent.FocusInEvent) {
		if cb.FocusIn != nil {
			cb.FocusIn()
		}
	}).Connect(xu, w.win.Id)
}

// ID returns the X11 window id.
func (w *Window) ID() xproto.Window {
	return w.win.Id
}

// Geometry returns the window position in root coordinates and its size.
func (w *Window) Geometry() (Geometry, error) {
	if w.isDestroyed() {
		return Geometry{}, ErrDestroyed
	}
	conn := w.conn.XUtil.Conn()
	geom, err := xproto.GetGeometry(conn, xproto.Drawable(w.win.Id)).Reply()
	if err != nil {
		return Geometry{}, err
	}
	translate, err := xproto.TranslateCoordinates(conn, w.win.Id, w.conn.Root, 0, 0).Reply()
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// MoveResize moves and resizes the window, preferring the EWMH request so
// the window manager can account for decorations.
func (w *Window) MoveResize(geom Geometry) error {
	if w.isDestroyed() {
		return ErrDestroyed
	}
	if err := ewmh.MoveresizeWindow(w.conn.XUtil, w.win.Id, geom.X, geom.Y, geom.Width, geom.Height); err != nil {
		w.win.MoveResize(geom.X, geom.Y, geom.Width, geom.Height)
	}
	return nil
}

// SetTitle updates _NET_WM_NAME.
func (w *Window) SetTitle(title string) error {
	if w.isDestroyed() {
		return ErrDestroyed
	}
	return ewmh.WmNameSet(w.conn.XUtil, w.win.Id, title)
}

// Map shows the window.
func (w *Window) Map() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrDestroyed
	}
	w.win.Map()
	w.mapped = true
	return nil
}

// Mapped reports whether Map was called.
func (w *Window) Mapped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mapped && !w.destroyed
}

// HasState reports whether the last observed _NET_WM_STATE contains state.
func (w *Window) HasState(state string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.states[state]
}

// RequestState asks the window manager to add or remove one or two states.
// The result is observed asynchronously through StateChanged.
func (w *Window) RequestState(add bool, first, second string) error {
	if w.isDestroyed() {
		return ErrDestroyed
	}
	action := ewmh.StateRemove
	if add {
		action = ewmh.StateAdd
	}
	if second == "" {
		return ewmh.WmStateReq(w.conn.XUtil, w.win.Id, action, first)
	}
	return ewmh.WmStateReqExtra(w.conn.XUtil, w.win.Id, action, first, second, 2)
}

// Activate raises and focuses the window using _NET_ACTIVE_WINDOW.
// The message is built manually because the xgbutil ewmh helper panics on
// this library version.
func (w *Window) Activate() error {
	if w.isDestroyed() {
		return ErrDestroyed
	}
	atom, err := xprop.Atm(w.conn.XUtil, "_NET_ACTIVE_WINDOW")
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	const sourceIndication = 2 // pager/direct action
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: w.win.Id,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		w.conn.XUtil.Conn(),
		false,
		w.conn.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// Destroy detaches event handlers and destroys the X window.
func (w *Window) Destroy() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrDestroyed
	}
	w.destroyed = true
	w.mu.Unlock()

	xevent.Detach(w.conn.XUtil, w.win.Id)
	w.win.Destroy()
	return nil
}

func (w *Window) isDestroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}
