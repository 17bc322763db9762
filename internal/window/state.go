package window

import (
	"github.com/1broseidon/winhost/internal/content"
	"github.com/1broseidon/winhost/internal/platform"
	"github.com/1broseidon/winhost/internal/windowstate"
)

// SerializeState captures the state to persist. Maximized windows record
// their restore bounds; fullscreen windows record the bounds they had
// before entering fullscreen and the display they fill.
func (c *Controller) SerializeState() windowstate.WindowState {
	win, ok := c.handle()
	if !ok {
		displays, _ := c.deps.Backend.Displays()
		return windowstate.Default(displays)
	}

	c.mu.Lock()
	var zoom *float64
	if c.customZoom != nil {
		z := *c.customZoom
		zoom = &z
	}
	c.mu.Unlock()

	if c.fs.IsFullscreen() {
		bounds := win.NormalBounds()
		if bounds.Empty() {
			bounds = platform.Rect{Width: windowstate.DefaultWidth, Height: windowstate.DefaultHeight}
		}
		state := windowstate.WindowState{Bounds: &bounds, Mode: windowstate.ModeFullscreen, ZoomLevel: zoom}
		if d, ok := c.deps.Backend.MatchingDisplay(win.Bounds()); ok {
			state.DisplayID = windowstate.IntPtr(d.ID)
		}
		return state
	}

	if win.IsMaximized() {
		bounds := win.NormalBounds()
		return windowstate.WindowState{Bounds: &bounds, Mode: windowstate.ModeMaximized, ZoomLevel: zoom}
	}

	bounds := win.Bounds()
	return windowstate.WindowState{Bounds: &bounds, Mode: windowstate.ModeNormal, ZoomLevel: zoom}
}

// SetFullscreen enters or leaves fullscreen.
func (c *Controller) SetFullscreen(on bool) error {
	if !c.Valid() {
		return ErrDestroyed
	}
	return c.fs.SetFullscreen(on, false)
}

// ToggleFullscreen flips the fullscreen state.
func (c *Controller) ToggleFullscreen() error {
	if !c.Valid() {
		return ErrDestroyed
	}
	return c.fs.Toggle()
}

// IsFullscreen reports the requested fullscreen state while a transition
// is in flight, otherwise the native one.
func (c *Controller) IsFullscreen() bool {
	if _, ok := c.handle(); !ok {
		return false
	}
	return c.fs.IsFullscreen()
}

// Focus brings the window to the user's attention.
func (c *Controller) Focus(mode FocusMode) error {
	win, ok := c.handle()
	if !ok {
		return ErrDestroyed
	}
	if mode == FocusNotify {
		c.requestAttention(win)
		return nil
	}
	if win.IsMinimized() {
		if err := win.Restore(); err != nil {
			return err
		}
	}
	if mode == FocusForce && !win.IsVisible() {
		if err := win.Show(); err != nil {
			return err
		}
	}
	return win.Focus()
}

func (c *Controller) requestAttention(win platform.NativeWindow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attention != nil {
		return
	}
	var release func()
	if c.deps.Attention != nil {
		release = c.deps.Attention.Acquire(c.opts.ID)
	}
	if err := win.SetAttention(true); err != nil {
		c.logger.Debug("failed to request attention", "error", err)
	}
	c.attention = func() {
		if release != nil {
			release()
		}
		_ = win.SetAttention(false)
	}
}

func (c *Controller) clearAttention() {
	c.mu.Lock()
	release := c.attention
	c.attention = nil
	c.mu.Unlock()
	if release != nil {
		release()
	}
}

// NotifyZoomLevel records the zoom level chosen for this window. nil
// returns to the configured zoom.
func (c *Controller) NotifyZoomLevel(z *float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if z == nil {
		c.customZoom = nil
		return
	}
	v := *z
	c.customZoom = &v
}

// SetDefaultZoomLevel replaces the configured zoom level.
func (c *Controller) SetDefaultZoomLevel(z float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom = z
}

// ZoomLevel returns the custom zoom level if one is set, otherwise the
// configured one.
func (c *Controller) ZoomLevel() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.customZoom != nil {
		return *c.customZoom
	}
	return c.zoom
}

// Info is a snapshot of the window for status reporting.
type Info struct {
	ID         string             `json:"id"`
	Handle     platform.WindowID  `json:"handle,omitempty"`
	ReadyState string             `json:"ready_state"`
	Destroyed  bool               `json:"destroyed"`
	Fullscreen bool               `json:"fullscreen"`
	Maximized  bool               `json:"maximized"`
	Sampling   bool               `json:"sampling"`
	Bounds     platform.Rect      `json:"bounds"`
	ZoomLevel  float64            `json:"zoom_level"`
	Workspace  *content.Workspace `json:"workspace,omitempty"`
}

// Info returns a snapshot of the window.
func (c *Controller) Info() Info {
	info := Info{
		ID:         c.opts.ID,
		ReadyState: c.ReadyState().String(),
		Sampling:   c.monitor.Sampling(),
		ZoomLevel:  c.ZoomLevel(),
		Workspace:  c.load.Workspace(),
	}
	win, ok := c.handle()
	if !ok {
		info.Destroyed = true
		return info
	}
	info.Handle = win.ID()
	info.Fullscreen = c.fs.IsFullscreen()
	info.Maximized = win.IsMaximized()
	info.Bounds = win.Bounds()
	return info
}
