// Package window implements the lifecycle of one host window: restoring its
// geometry, loading its content surface, tracking readiness, recovering from
// surface failures and tearing the window down, optionally reopening it.
package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/winhost/internal/content"
	"github.com/1broseidon/winhost/internal/dialog"
	"github.com/1broseidon/winhost/internal/fullscreen"
	"github.com/1broseidon/winhost/internal/health"
	"github.com/1broseidon/winhost/internal/platform"
	"github.com/1broseidon/winhost/internal/recovery"
	"github.com/1broseidon/winhost/internal/surface"
	"github.com/1broseidon/winhost/internal/windowstate"
)

var (
	// ErrDestroyed is returned by operations on a destroyed window.
	ErrDestroyed = errors.New("window is destroyed")
	// ErrNotLoaded is returned by Reload before anything was loaded.
	ErrNotLoaded = errors.New("window has no configuration to reload")
)

// Defaults for Options.
const (
	DefaultURL      = "app://workbench/index.html"
	DefaultStateKey = "default"
)

// LeaveFullscreenChannel tells the surface that a restored window could not
// enter fullscreen and is shown windowed.
const LeaveFullscreenChannel = "window:leave-fullscreen"

// ReadyState tracks the content surface of the current load cycle.
type ReadyState int

const (
	StateNone ReadyState = iota
	StateNavigating
	StateReady
)

func (s ReadyState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateNavigating:
		return "navigating"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// LoadReason tells observers why a load starts.
type LoadReason int

const (
	ReasonInitial LoadReason = iota + 1
	ReasonLoad
	ReasonReload
)

func (r LoadReason) String() string {
	switch r {
	case ReasonInitial:
		return "initial"
	case ReasonLoad:
		return "load"
	case ReasonReload:
		return "reload"
	default:
		return "unknown"
	}
}

// WillLoadEvent is emitted after a navigation was issued.
type WillLoadEvent struct {
	Workspace *content.Workspace
	Reason    LoadReason
}

// FocusMode selects how Focus gets the user's attention.
type FocusMode int

const (
	// FocusTransfer restores and focuses the window.
	FocusTransfer FocusMode = iota
	// FocusNotify flags the window as demanding attention without taking
	// focus. The flag clears when the window gains focus.
	FocusNotify
	// FocusForce also maps a hidden window.
	FocusForce
)

// Surface is the content surface a window hosts.
type Surface interface {
	Listen(l surface.Listener)
	Navigate(url string) error
	Send(channel string, args ...any) error
	CaptureTrace(ctx context.Context) (string, error)
}

// OpenRequest describes a window to open in place of a destroyed one.
type OpenRequest struct {
	Workspace       *content.Workspace
	ForceEmpty      bool
	ForceNewWindow  bool
	RemoteAuthority string
	UserEnv         map[string]string
}

// Opened is a window returned by an Opener.
type Opened interface {
	Focus(mode FocusMode) error
}

// Opener opens windows for the reopen flow.
type Opener interface {
	Open(ctx context.Context, req OpenRequest) (Opened, error)
}

// Attention aggregates attention requests across windows.
type Attention interface {
	Acquire(windowID string) (release func())
}

// EditorState forgets the editors a workspace would restore.
type EditorState interface {
	Discard(ctx context.Context, ws content.Workspace) error
}

// LoadOptions modify a single Load.
type LoadOptions struct {
	IsReload          bool
	DisableExtensions *bool
}

// Options configures a Controller.
type Options struct {
	// ID defaults to a random UUID.
	ID string
	// StateKey names the persisted state record. Defaults to DefaultStateKey.
	StateKey string
	Title    string
	// URL is navigated on every load. Defaults to DefaultURL.
	URL string
	// State is the state to restore. When nil the state is read from
	// Deps.Store.
	State *windowstate.WindowState
	// ZoomLevel is the configured zoom, used while no custom zoom is set.
	ZoomLevel float64

	FullscreenStyle   fullscreen.Style
	FullscreenTimeout time.Duration
	RestoreFullscreen bool

	SampleInterval   time.Duration
	SamplePeriod     time.Duration
	ThresholdPercent float64

	Modes         recovery.Modes
	PromptTimeout time.Duration
	// ShowTimeout, when positive, shows and focuses a window that is still
	// hidden this long after a load started.
	ShowTimeout time.Duration
}

// Deps are the collaborators of a Controller. Backend, Surface, Dialog and
// Lifecycle are required.
type Deps struct {
	Backend   platform.Backend
	Surface   Surface
	Dialog    dialog.Service
	Lifecycle recovery.Lifecycle
	Opener    Opener
	Attention Attention
	Editors   EditorState
	Store     *windowstate.Store
	Splash    content.SplashProvider
	Reporter  health.Reporter
	Recorder  recovery.Recorder
	Logger    *slog.Logger
}

type handleKind int

const (
	handleLive handleKind = iota
	handleDestroyed
)

// handleState owns the native window. win is only set while live.
type handleState struct {
	kind handleKind
	win  platform.NativeWindow
}

// Controller drives one host window.
type Controller struct {
	opts   Options
	deps   Deps
	logger *slog.Logger

	fs       *fullscreen.Coordinator
	monitor  *health.Monitor
	recovery *recovery.Coordinator
	load     *content.LoadController

	willLoad        event[WillLoadEvent]
	signalReady     event[struct{}]
	willDestroy     event[struct{}]
	didClose        event[struct{}]
	didDestroy      event[struct{}]
	enterFullscreen event[struct{}]
	leaveFullscreen event[struct{}]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	h           handleState
	destroying  bool
	ready       ReadyState
	loaded      bool
	waiters     []chan error
	zoom        float64
	customZoom  *float64
	attention   func()
	showTimer   *time.Timer
	unsubscribe func()

	failMu    sync.Mutex
	failures  []surface.FailureEvent
	assessing bool
}

var _ recovery.Target = (*Controller)(nil)

// New restores the window state, creates the native window and applies the
// state to it. The returned controller is in StateNone.
func New(ctx context.Context, opts Options, deps Deps) (*Controller, error) {
	switch {
	case deps.Backend == nil:
		return nil, fmt.Errorf("window: backend is required")
	case deps.Surface == nil:
		return nil, fmt.Errorf("window: surface is required")
	case deps.Dialog == nil:
		return nil, fmt.Errorf("window: dialog service is required")
	case deps.Lifecycle == nil:
		return nil, fmt.Errorf("window: lifecycle is required")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.StateKey == "" {
		opts.StateKey = DefaultStateKey
	}
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("window_id", opts.ID)

	c := &Controller{
		opts:   opts,
		deps:   deps,
		logger: logger,
		zoom:   opts.ZoomLevel,
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	monitor, err := health.New(health.Options{
		Source:           deps.Surface,
		Reporter:         deps.Reporter,
		Interval:         opts.SampleInterval,
		Period:           opts.SamplePeriod,
		ThresholdPercent: opts.ThresholdPercent,
		Logger:           logger,
	})
	if err != nil {
		c.cancel()
		return nil, err
	}
	c.monitor = monitor

	rec, err := recovery.New(recovery.Options{
		WindowID:      opts.ID,
		Target:        c,
		Sampler:       monitor,
		Dialog:        deps.Dialog,
		Lifecycle:     deps.Lifecycle,
		Recorder:      deps.Recorder,
		Modes:         opts.Modes,
		PromptTimeout: opts.PromptTimeout,
		Logger:        logger,
	})
	if err != nil {
		c.cancel()
		return nil, err
	}
	c.recovery = rec

	c.load = content.NewLoadController(content.Options{
		Publisher: deps.Surface,
		Splash:    deps.Splash,
		DevHost:   opts.Modes.DevHost,
		Logger:    logger,
	})
	c.load.Mark("winhost/willCreateWindow")

	displays, err := deps.Backend.Displays()
	if err != nil {
		logger.Warn("failed to query displays", "error", err)
	}
	state := windowstate.Validate(c.restoreState(), displays, logger)
	if state.ZoomLevel != nil {
		z := *state.ZoomLevel
		c.customZoom = &z
	}

	bounds := platform.Rect{Width: windowstate.DefaultWidth, Height: windowstate.DefaultHeight}
	if state.Bounds != nil {
		bounds = *state.Bounds
	}
	native, err := deps.Backend.CreateWindow(platform.CreateOptions{Title: opts.Title, Bounds: bounds})
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("window: create native window: %w", err)
	}
	c.load.Mark("winhost/didCreateWindow")

	fs, err := fullscreen.New(fullscreen.Options{
		Window:  native,
		Style:   opts.FullscreenStyle,
		Timeout: opts.FullscreenTimeout,
		Logger:  logger,
		OnLeave: c.restoreFullscreenFailed,
	})
	if err != nil {
		c.cancel()
		_ = native.Destroy()
		return nil, err
	}
	c.fs = fs

	c.h = handleState{kind: handleLive, win: native}
	c.unsubscribe = native.Subscribe(c.onNativeEvent)
	deps.Surface.Listen(surface.Listener{
		OnFailure:       c.HandleFailure,
		OnDidFinishLoad: c.didFinishLoad,
		OnReady:         c.MarkReady,
	})

	c.applyState(native, state, len(displays) > 1)
	logger.Debug("window created", "handle", native.ID(), "mode", state.Mode, "bounds", bounds)
	return c, nil
}

func (c *Controller) restoreFullscreenFailed() {
	c.leaveFullscreen.emit(struct{}{})
	c.SendWhenReady(c.ctx, LeaveFullscreenChannel)
}

func (c *Controller) restoreState() windowstate.WindowState {
	if c.opts.State != nil {
		return c.opts.State.Clone()
	}
	if c.deps.Store == nil {
		return windowstate.WindowState{Mode: windowstate.ModeNormal}
	}
	state, ok, err := c.deps.Store.Load(c.opts.StateKey)
	if err != nil {
		c.logger.Warn("failed to read window state, using defaults", "key", c.opts.StateKey, "error", err)
		return windowstate.WindowState{Mode: windowstate.ModeNormal}
	}
	if !ok {
		return windowstate.WindowState{Mode: windowstate.ModeNormal}
	}
	return state
}

// applyState brings the new native window into the restored state before
// it is shown.
func (c *Controller) applyState(win platform.NativeWindow, state windowstate.WindowState, multipleDisplays bool) {
	if multipleDisplays && state.Bounds != nil {
		if err := win.SetBounds(*state.Bounds); err != nil {
			c.logger.Warn("failed to apply window bounds", "error", err)
		}
	}
	if state.Mode == windowstate.ModeMaximized || state.Mode == windowstate.ModeFullscreen {
		if err := win.Maximize(); err != nil {
			c.logger.Warn("failed to maximize window", "error", err)
		}
	}
	if state.Mode == windowstate.ModeFullscreen && c.opts.RestoreFullscreen {
		if err := c.fs.SetFullscreen(true, true); err != nil {
			c.logger.Warn("failed to restore fullscreen", "error", err)
		}
	}
	if !win.IsVisible() {
		if err := win.Show(); err != nil {
			c.logger.Warn("failed to show window", "error", err)
		}
	}
}

func (c *Controller) onNativeEvent(ev platform.Event) {
	switch ev.Kind {
	case platform.EventEnterFullscreen:
		c.fs.TransitionComplete()
		c.enterFullscreen.emit(struct{}{})
	case platform.EventLeaveFullscreen:
		c.fs.TransitionComplete()
		c.leaveFullscreen.emit(struct{}{})
	case platform.EventFocus:
		c.clearAttention()
	case platform.EventCloseRequested:
		if err := c.Close(); err != nil && !errors.Is(err, ErrDestroyed) {
			c.logger.Warn("failed to close window", "error", err)
		}
	case platform.EventClosed:
		c.logger.Debug("native window closed")
		c.didClose.emit(struct{}{})
		c.teardown()
	}
}

// handle returns the native window while it is live.
func (c *Controller) handle() (platform.NativeWindow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.h.kind != handleLive {
		return nil, false
	}
	return c.h.win, true
}

// ID returns the window session id.
func (c *Controller) ID() string { return c.opts.ID }

// StateKey returns the key the window state is persisted under.
func (c *Controller) StateKey() string { return c.opts.StateKey }

// Valid reports whether the window is live and not being destroyed.
func (c *Controller) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.h.kind == handleLive && !c.destroying
}

// HasWorkspace reports whether the loaded configuration names a workspace.
func (c *Controller) HasWorkspace() bool {
	return c.load.Workspace() != nil
}

// Workspace returns the workspace of the loaded configuration.
func (c *Controller) Workspace() *content.Workspace {
	return c.load.Workspace()
}

// Configuration returns the configuration on screen.
func (c *Controller) Configuration() (content.Configuration, bool) {
	return c.load.Committed()
}

// Load prepares cfg and navigates the surface. The first load commits cfg
// right away; later loads keep it pending until the surface reports the
// load finished.
func (c *Controller) Load(cfg content.Configuration, opts LoadOptions) error {
	win, ok := c.handle()
	if !ok {
		return ErrDestroyed
	}
	if !opts.IsReload && c.opts.Title != "" {
		if err := win.SetTitle(c.opts.Title); err != nil {
			c.logger.Warn("failed to set window title", "error", err)
		}
	}

	prepared := c.load.Prepare(cfg, c.metrics(win), opts.DisableExtensions)

	c.mu.Lock()
	if c.ready == StateNone {
		c.load.Commit(prepared)
	} else {
		c.load.Stage(prepared)
	}
	c.ready = StateNavigating
	wasLoaded := c.loaded
	c.loaded = true
	c.mu.Unlock()

	if err := c.deps.Surface.Navigate(c.opts.URL); err != nil {
		return fmt.Errorf("navigate %s: %w", c.opts.URL, err)
	}
	c.armShowFallback()

	reason := ReasonInitial
	switch {
	case opts.IsReload:
		reason = ReasonReload
	case wasLoaded:
		reason = ReasonLoad
	}
	c.logger.Debug("window loading", "reason", reason, "url", c.opts.URL)
	c.willLoad.emit(WillLoadEvent{Workspace: prepared.Workspace, Reason: reason})
	return nil
}

// Reload loads the configuration on screen again with one-shot requests
// removed.
func (c *Controller) Reload(ctx context.Context, cli *content.ReloadArgs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Valid() {
		return ErrDestroyed
	}
	cfg, ok := c.load.ForReload(cli)
	if !ok {
		return ErrNotLoaded
	}
	var disable *bool
	if cli != nil {
		disable = cli.DisableExtensions
	}
	return c.Load(cfg, LoadOptions{IsReload: true, DisableExtensions: disable})
}

func (c *Controller) metrics(win platform.NativeWindow) content.Metrics {
	c.mu.Lock()
	custom := c.customZoom != nil
	c.mu.Unlock()
	return content.Metrics{
		Handle:     win.ID(),
		Bounds:     win.Bounds(),
		Fullscreen: c.fs.IsFullscreen(),
		Maximized:  win.IsMaximized(),
		ZoomLevel:  c.ZoomLevel(),
		CustomZoom: custom,
	}
}

func (c *Controller) armShowFallback() {
	if c.opts.ShowTimeout <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.showTimer != nil {
		c.showTimer.Stop()
	}
	c.showTimer = time.AfterFunc(c.opts.ShowTimeout, c.showIfHidden)
}

func (c *Controller) showIfHidden() {
	win, ok := c.handle()
	if !ok || win.IsVisible() || win.IsMinimized() {
		return
	}
	c.logger.Warn("window did not show in time, showing it", "timeout", c.opts.ShowTimeout)
	if err := c.Focus(FocusForce); err != nil {
		c.logger.Warn("failed to show window", "error", err)
	}
}

func (c *Controller) didFinishLoad() {
	if c.load.DidFinishLoad() {
		c.logger.Debug("pending configuration committed")
	}
}

// MarkReady records that the surface finished loading and resolves every
// WhenReady waiter, most recent first.
func (c *Controller) MarkReady() {
	c.mu.Lock()
	if c.h.kind != handleLive {
		c.mu.Unlock()
		return
	}
	c.ready = StateReady
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for i := len(waiters) - 1; i >= 0; i-- {
		waiters[i] <- nil
	}
	c.signalReady.emit(struct{}{})
}

// ReadyState returns the state of the current load cycle.
func (c *Controller) ReadyState() ReadyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// IsReady reports whether the current load cycle reached StateReady.
func (c *Controller) IsReady() bool {
	return c.ReadyState() == StateReady
}

// WhenReady blocks until the window is ready. It returns ErrDestroyed if
// the window is destroyed first.
func (c *Controller) WhenReady(ctx context.Context) (*Controller, error) {
	c.mu.Lock()
	if c.h.kind != handleLive {
		c.mu.Unlock()
		return nil, ErrDestroyed
	}
	if c.ready == StateReady {
		c.mu.Unlock()
		return c, nil
	}
	ch := make(chan error, 1)
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	select {
	case err := <-ch:
		if err != nil {
			return nil, err
		}
		return c, nil
	case <-ctx.Done():
		c.dropWaiter(ch)
		return nil, ctx.Err()
	}
}

func (c *Controller) dropWaiter(ch chan error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == ch {
			c.waiters = append(c.waiters[:i:i], c.waiters[i+1:]...)
			return
		}
	}
}

// Send delivers a message to the surface. Messages to a destroyed window
// are dropped with a warning.
func (c *Controller) Send(channel string, args ...any) {
	if _, ok := c.handle(); !ok {
		c.logger.Warn("sending message to destroyed window", "channel", channel)
		return
	}
	if err := c.deps.Surface.Send(channel, args...); err != nil {
		c.logger.Warn("failed to send message", "channel", channel, "error", err)
	}
}

// SendWhenReady sends the message once the window is ready unless ctx is
// cancelled first.
func (c *Controller) SendWhenReady(ctx context.Context, channel string, args ...any) {
	if c.IsReady() {
		c.Send(channel, args...)
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.WhenReady(ctx); err != nil {
			return
		}
		c.Send(channel, args...)
	}()
}

// HandleFailure queues ev for the recovery policy and returns without
// waiting. Events are assessed one at a time in the order they arrive;
// prompts run on their own goroutine so a later event, such as the
// surface becoming responsive again, is not held up behind an open prompt.
func (c *Controller) HandleFailure(ev surface.FailureEvent) {
	c.failMu.Lock()
	defer c.failMu.Unlock()
	if c.ctx.Err() != nil {
		return
	}
	c.failures = append(c.failures, ev)
	if c.assessing {
		return
	}
	c.assessing = true
	c.wg.Add(1)
	go c.assessFailures()
}

func (c *Controller) assessFailures() {
	defer c.wg.Done()
	for {
		c.failMu.Lock()
		if len(c.failures) == 0 || c.ctx.Err() != nil {
			c.failures = nil
			c.assessing = false
			c.failMu.Unlock()
			return
		}
		ev := c.failures[0]
		c.failures = c.failures[1:]
		c.failMu.Unlock()

		if prompt := c.recovery.Assess(c.ctx, ev); prompt != nil {
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				prompt()
			}()
		}
	}
}

// Sampling reports whether diagnostic traces are being sampled.
func (c *Controller) Sampling() bool {
	return c.monitor.Sampling()
}

// Destroy tears the window down. Editor state is discarded first when
// requested, then WillDestroy observers run while the native window is
// still live, then a replacement is opened when reopen is set. The native
// window is released last, exactly once.
func (c *Controller) Destroy(ctx context.Context, reopen, discardEditorState bool) {
	c.mu.Lock()
	if c.h.kind != handleLive || c.destroying {
		c.mu.Unlock()
		return
	}
	c.destroying = true
	c.mu.Unlock()
	defer c.teardown()

	ws := c.load.Workspace()
	if discardEditorState && ws != nil && c.deps.Editors != nil {
		if err := c.deps.Editors.Discard(ctx, *ws); err != nil {
			c.logger.Error("failed to discard editor state", "workspace", ws.URI, "error", err)
		}
	}

	c.willDestroy.emit(struct{}{})

	if reopen {
		c.reopen(ctx, ws)
	}
}

func (c *Controller) reopen(ctx context.Context, ws *content.Workspace) {
	if c.deps.Opener == nil {
		c.logger.Warn("cannot reopen window without an opener")
		return
	}
	cfg, _ := c.load.Committed()
	opened, err := c.deps.Opener.Open(ctx, OpenRequest{
		Workspace:       ws,
		ForceEmpty:      ws == nil,
		ForceNewWindow:  true,
		RemoteAuthority: cfg.RemoteAuthority,
		UserEnv:         cfg.UserEnv,
	})
	if err != nil {
		c.logger.Error("failed to reopen window", "error", err)
		return
	}
	if opened != nil {
		if err := opened.Focus(FocusTransfer); err != nil {
			c.logger.Warn("failed to focus reopened window", "error", err)
		}
	}
}

// Close persists the window state and asks the window to close. Observers
// of OnDidClose run once the native window reports it closed.
func (c *Controller) Close() error {
	win, ok := c.handle()
	if !ok {
		return ErrDestroyed
	}
	c.saveState()
	if err := win.Close(); err != nil && !errors.Is(err, platform.ErrWindowGone) {
		return fmt.Errorf("close window: %w", err)
	}
	return nil
}

func (c *Controller) saveState() {
	if c.deps.Store == nil {
		return
	}
	state := c.SerializeState()
	if err := c.deps.Store.Save(c.opts.StateKey, state); err != nil {
		c.logger.Warn("failed to save window state", "key", c.opts.StateKey, "error", err)
	}
}

// teardown releases the native window and every background activity.
// Later calls do nothing.
func (c *Controller) teardown() {
	c.mu.Lock()
	if c.h.kind != handleLive {
		c.mu.Unlock()
		return
	}
	win := c.h.win
	c.h = handleState{kind: handleDestroyed}
	waiters := c.waiters
	c.waiters = nil
	release := c.attention
	c.attention = nil
	timer := c.showTimer
	c.showTimer = nil
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if release != nil {
		release()
	}
	for _, w := range waiters {
		w <- ErrDestroyed
	}
	c.cancel()
	c.monitor.Close()
	c.fs.Close()
	if unsubscribe != nil {
		unsubscribe()
	}
	if err := win.Destroy(); err != nil && !errors.Is(err, platform.ErrWindowGone) {
		c.logger.Warn("failed to destroy native window", "error", err)
	}
	c.didDestroy.emit(struct{}{})

	c.willLoad.clear()
	c.signalReady.clear()
	c.willDestroy.clear()
	c.didClose.clear()
	c.didDestroy.clear()
	c.enterFullscreen.clear()
	c.leaveFullscreen.clear()
	c.logger.Debug("window destroyed")
}

// Wait blocks until goroutines started by the controller have returned.
// It must not be called from a recovery or observer callback.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Observer registration. Each returns a func removing the observer; all
// observers are dropped when the window is destroyed.

func (c *Controller) OnWillLoad(fn func(WillLoadEvent)) func() {
	return c.willLoad.subscribe(fn)
}

func (c *Controller) OnSignalReady(fn func()) func() {
	return c.signalReady.subscribe(func(struct{}) { fn() })
}

func (c *Controller) OnWillDestroy(fn func()) func() {
	return c.willDestroy.subscribe(func(struct{}) { fn() })
}

func (c *Controller) OnDidClose(fn func()) func() {
	return c.didClose.subscribe(func(struct{}) { fn() })
}

// OnDidDestroy observers run after the native window was released, both
// after Destroy and after the window closed.
func (c *Controller) OnDidDestroy(fn func()) func() {
	return c.didDestroy.subscribe(func(struct{}) { fn() })
}

func (c *Controller) OnEnterFullscreen(fn func()) func() {
	return c.enterFullscreen.subscribe(func(struct{}) { fn() })
}

func (c *Controller) OnLeaveFullscreen(fn func()) func() {
	return c.leaveFullscreen.subscribe(func(struct{}) { fn() })
}
