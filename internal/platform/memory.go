package platform

import (
	"fmt"
	"sync"
)

// MemoryBackend is an in-process Backend used for headless runs and tests.
// Its windows keep their state in memory and emit the same notifications
// a window manager would.
type MemoryBackend struct {
	mu       sync.Mutex
	displays []Display
	nextID   WindowID
	windows  []*MemoryWindow

	// CreateErr, when set, is returned by CreateWindow.
	CreateErr error
	// DeferFullscreen makes fullscreen changes pending until
	// CompleteFullscreen is called on the window, mimicking platforms that
	// report fullscreen asynchronously.
	DeferFullscreen bool
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates a backend with the given displays.
func NewMemoryBackend(displays ...Display) *MemoryBackend {
	return &MemoryBackend{displays: displays, nextID: 1}
}

// SetDisplays replaces the attached displays.
func (b *MemoryBackend) SetDisplays(displays ...Display) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.displays = append([]Display(nil), displays...)
}

// Displays returns the attached displays.
func (b *MemoryBackend) Displays() ([]Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Display(nil), b.displays...), nil
}

// MatchingDisplay returns the display that best matches bounds.
func (b *MemoryBackend) MatchingDisplay(bounds Rect) (Display, bool) {
	displays, _ := b.Displays()
	return MatchDisplay(displays, bounds)
}

// CreateWindow creates an in-memory window.
func (b *MemoryBackend) CreateWindow(opts CreateOptions) (NativeWindow, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.CreateErr != nil {
		return nil, fmt.Errorf("create window: %w", b.CreateErr)
	}

	w := &MemoryWindow{
		id:              b.nextID,
		title:           opts.Title,
		bounds:          opts.Bounds,
		normal:          opts.Bounds,
		visible:         opts.Show,
		deferFullscreen: b.DeferFullscreen,
		listeners:       make(map[int]func(Event)),
	}
	b.nextID++
	b.windows = append(b.windows, w)
	return w, nil
}

// Windows returns every window created so far, including destroyed ones.
func (b *MemoryBackend) Windows() []*MemoryWindow {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MemoryWindow(nil), b.windows...)
}

// MemoryWindow is the NativeWindow implementation of MemoryBackend.
type MemoryWindow struct {
	mu sync.Mutex

	id        WindowID
	title     string
	bounds    Rect
	normal    Rect
	visible   bool
	minimized bool
	maximized bool
	attention bool
	focused   int

	fullscreen       bool
	simpleFullscreen bool
	pendingFS        *bool
	deferFullscreen  bool

	destroyed    bool
	closed       bool
	destroyCalls int

	listeners map[int]func(Event)
	nextSub   int
}

var _ NativeWindow = (*MemoryWindow)(nil)

func (w *MemoryWindow) ID() WindowID { return w.id }

func (w *MemoryWindow) Bounds() Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds
}

func (w *MemoryWindow) NormalBounds() Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.normal
}

func (w *MemoryWindow) SetBounds(bounds Rect) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrWindowGone
	}
	w.bounds = bounds
	if !w.maximized && !w.fullscreen {
		w.normal = bounds
	}
	return nil
}

func (w *MemoryWindow) SetTitle(title string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrWindowGone
	}
	w.title = title
	return nil
}

// Title returns the last title set.
func (w *MemoryWindow) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

func (w *MemoryWindow) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrWindowGone
	}
	w.visible = true
	w.minimized = false
	return nil
}

func (w *MemoryWindow) IsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible && !w.destroyed
}

func (w *MemoryWindow) IsMinimized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.minimized
}

// Minimize marks the window minimized.
func (w *MemoryWindow) Minimize() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.minimized = true
}

func (w *MemoryWindow) Restore() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrWindowGone
	}
	w.minimized = false
	return nil
}

func (w *MemoryWindow) Focus() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrWindowGone
	}
	w.focused++
	w.mu.Unlock()
	w.emit(EventFocus)
	return nil
}

// FocusCount returns how many times Focus was called.
func (w *MemoryWindow) FocusCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

func (w *MemoryWindow) Maximize() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrWindowGone
	}
	already := w.maximized
	w.maximized = true
	w.mu.Unlock()
	if !already {
		w.emit(EventMaximize)
	}
	return nil
}

// Unmaximize restores the normal bounds.
func (w *MemoryWindow) Unmaximize() {
	w.mu.Lock()
	was := w.maximized
	w.maximized = false
	w.bounds = w.normal
	w.mu.Unlock()
	if was {
		w.emit(EventUnmaximize)
	}
}

func (w *MemoryWindow) IsMaximized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.maximized
}

func (w *MemoryWindow) SetFullscreen(fullscreen bool) error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrWindowGone
	}
	if w.deferFullscreen {
		v := fullscreen
		w.pendingFS = &v
		w.mu.Unlock()
		return nil
	}
	changed := w.fullscreen != fullscreen
	w.fullscreen = fullscreen
	w.mu.Unlock()
	if changed {
		w.emitFullscreen(fullscreen)
	}
	return nil
}

// CompleteFullscreen applies a deferred fullscreen change and emits the
// matching notification. It reports whether a change was pending.
func (w *MemoryWindow) CompleteFullscreen() bool {
	w.mu.Lock()
	if w.pendingFS == nil || w.destroyed {
		w.mu.Unlock()
		return false
	}
	target := *w.pendingFS
	w.pendingFS = nil
	w.fullscreen = target
	w.mu.Unlock()
	w.emitFullscreen(target)
	return true
}

// DropPendingFullscreen discards a deferred fullscreen change, as if the
// window manager silently refused it.
func (w *MemoryWindow) DropPendingFullscreen() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pendingFS = nil
}

func (w *MemoryWindow) IsFullscreen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fullscreen
}

func (w *MemoryWindow) SetSimpleFullscreen(fullscreen bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrWindowGone
	}
	w.simpleFullscreen = fullscreen
	return nil
}

func (w *MemoryWindow) IsSimpleFullscreen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.simpleFullscreen
}

func (w *MemoryWindow) SetAttention(attention bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrWindowGone
	}
	w.attention = attention
	return nil
}

// Attention reports the demands-attention flag.
func (w *MemoryWindow) Attention() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attention
}

func (w *MemoryWindow) Subscribe(fn func(Event)) func() {
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

func (w *MemoryWindow) Close() error {
	w.mu.Lock()
	if w.destroyed || w.closed {
		w.mu.Unlock()
		return ErrWindowGone
	}
	w.closed = true
	w.mu.Unlock()
	w.emit(EventClosed)
	return nil
}

func (w *MemoryWindow) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyCalls++
	if w.destroyed {
		return ErrWindowGone
	}
	w.destroyed = true
	w.visible = false
	return nil
}

// Destroyed reports whether Destroy was called.
func (w *MemoryWindow) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// DestroyCalls returns how many times Destroy was invoked.
func (w *MemoryWindow) DestroyCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyCalls
}

func (w *MemoryWindow) emitFullscreen(on bool) {
	if on {
		w.emit(EventEnterFullscreen)
		return
	}
	w.emit(EventLeaveFullscreen)
}

func (w *MemoryWindow) emit(kind EventKind) {
	w.mu.Lock()
	fns := make([]func(Event), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	ev := Event{Kind: kind, Window: w.id}
	for _, fn := range fns {
		fn(ev)
	}
}
