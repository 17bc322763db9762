// Package fullscreen coordinates fullscreen transitions of a host window.
//
// Window managers apply fullscreen requests asynchronously, so between a
// request and its confirmation the coordinator reports the requested value
// instead of the stale native one. Each request starts a transition guarded
// by a token; a transition superseded by a later request is ignored when it
// settles.
package fullscreen

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Style selects how fullscreen is realised.
type Style string

const (
	// StyleNative asks the window manager for fullscreen state.
	StyleNative Style = "native"
	// StyleSimple resizes the window over its display without a window
	// manager transition.
	StyleSimple Style = "simple"
)

// DefaultTimeout bounds how long a native transition is awaited.
const DefaultTimeout = 10 * time.Second

// Window is the part of the native window the coordinator drives.
type Window interface {
	SetFullscreen(fullscreen bool) error
	IsFullscreen() bool
	SetSimpleFullscreen(fullscreen bool) error
	IsSimpleFullscreen() bool
}

// Options configures a Coordinator.
type Options struct {
	Window  Window
	Style   Style
	Timeout time.Duration
	Logger  *slog.Logger
	// OnLeave is called when a fullscreen restore was not confirmed in time
	// and the window is known to still be windowed.
	OnLeave func()
}

// transition is one in-flight native request.
type transition struct {
	token       uint64
	target      bool
	fromRestore bool
	complete    chan struct{}
	superseded  chan struct{}
	once        sync.Once
}

func (t *transition) markComplete() {
	t.once.Do(func() { close(t.complete) })
}

// Coordinator owns the fullscreen state machine of one window.
type Coordinator struct {
	win     Window
	style   Style
	timeout time.Duration
	logger  *slog.Logger
	onLeave func()

	mu       sync.Mutex
	token    uint64
	current  *transition
	override *bool
	closed   bool
	wg       sync.WaitGroup
}

// New creates a Coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Window == nil {
		return nil, fmt.Errorf("fullscreen: window is required")
	}
	style := opts.Style
	switch style {
	case "":
		style = StyleNative
	case StyleNative, StyleSimple:
	default:
		return nil, fmt.Errorf("fullscreen: unknown style %q", style)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		win:     opts.Window,
		style:   style,
		timeout: timeout,
		logger:  logger,
		onLeave: opts.OnLeave,
	}, nil
}

// Style returns the configured style.
func (c *Coordinator) Style() Style {
	return c.style
}

// IsFullscreen reports the requested state while a native transition is
// outstanding, otherwise the native state.
func (c *Coordinator) IsFullscreen() bool {
	c.mu.Lock()
	override := c.override
	c.mu.Unlock()
	if override != nil {
		return *override
	}
	return c.win.IsFullscreen() || c.win.IsSimpleFullscreen()
}

// Toggle flips the fullscreen state.
func (c *Coordinator) Toggle() error {
	return c.SetFullscreen(!c.IsFullscreen(), false)
}

// SetFullscreen requests target. fromRestore marks a request issued while
// restoring a persisted fullscreen window.
func (c *Coordinator) SetFullscreen(target, fromRestore bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.style == StyleSimple {
		return c.setSimple(target)
	}
	return c.setNative(target, fromRestore)
}

func (c *Coordinator) setSimple(target bool) error {
	if target && c.win.IsFullscreen() {
		if err := c.win.SetFullscreen(false); err != nil {
			return fmt.Errorf("leave native fullscreen: %w", err)
		}
	}
	c.supersede()
	return c.win.SetSimpleFullscreen(target)
}

func (c *Coordinator) setNative(target, fromRestore bool) error {
	if c.win.IsSimpleFullscreen() {
		if err := c.win.SetSimpleFullscreen(false); err != nil {
			return fmt.Errorf("leave simple fullscreen: %w", err)
		}
	}

	t := c.begin(target, fromRestore)
	if t == nil {
		return nil
	}
	if err := c.win.SetFullscreen(target); err != nil {
		c.abort(t.token)
		return err
	}
	return nil
}

// abort drops the transition identified by token without settling it.
func (c *Coordinator) abort(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.token != token {
		return
	}
	close(c.current.superseded)
	c.current = nil
	c.override = nil
}

// begin installs a new transition, invalidating the previous one, and starts
// waiting for its confirmation.
func (c *Coordinator) begin(target, fromRestore bool) *transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if c.current != nil {
		close(c.current.superseded)
	}
	c.token++
	t := &transition{
		token:       c.token,
		target:      target,
		fromRestore: fromRestore,
		complete:    make(chan struct{}),
		superseded:  make(chan struct{}),
	}
	c.current = t
	v := target
	c.override = &v

	c.wg.Add(1)
	go c.await(t)
	return t
}

// supersede drops any in-flight native transition.
func (c *Coordinator) supersede() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		close(c.current.superseded)
		c.current = nil
	}
	c.token++
	c.override = nil
}

// await waits for t to settle. OnLeave runs after the waiter is released,
// so it may call Close.
func (c *Coordinator) await(t *transition) {
	if c.wait(t) && c.onLeave != nil {
		c.onLeave()
	}
}

func (c *Coordinator) wait(t *transition) (leave bool) {
	defer c.wg.Done()
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-t.complete:
		c.settle(t.token, true)
		return false
	case <-timer.C:
		return c.settle(t.token, false)
	case <-t.superseded:
		return false
	}
}

// settle finishes the transition identified by token. A stale token is
// ignored. It reports whether a restore failed and the window has to be
// told it left fullscreen.
func (c *Coordinator) settle(token uint64, confirmed bool) bool {
	c.mu.Lock()
	t := c.current
	if t == nil || t.token != token {
		c.mu.Unlock()
		return false
	}
	c.current = nil
	c.override = nil
	c.mu.Unlock()

	if confirmed || !t.fromRestore || !t.target || c.win.IsFullscreen() {
		return false
	}
	c.logger.Warn("window failed to enter fullscreen after restore, leaving fullscreen",
		"timeout", c.timeout)
	return true
}

// TransitionComplete is called when the window reports that a native
// fullscreen change finished.
func (c *Coordinator) TransitionComplete() {
	c.mu.Lock()
	t := c.current
	c.mu.Unlock()
	if t != nil {
		t.markComplete()
	}
}

// Pending reports whether a native transition is outstanding.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Close abandons any in-flight transition and waits for its waiter to exit.
// Further requests are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.current != nil {
		close(c.current.superseded)
		c.current = nil
	}
	c.override = nil
	c.mu.Unlock()
	c.wg.Wait()
}
