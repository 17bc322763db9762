package platform

import (
	"errors"
	"testing"
)

func newMemoryWindow(t *testing.T, b *MemoryBackend) *MemoryWindow {
	t.Helper()
	nw, err := b.CreateWindow(CreateOptions{Title: "test", Bounds: Rect{10, 10, 800, 600}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return nw.(*MemoryWindow)
}

func TestMemoryWindowEvents(t *testing.T) {
	b := NewMemoryBackend(Display{ID: 1, Bounds: Rect{0, 0, 1920, 1080}})
	w := newMemoryWindow(t, b)

	var got []EventKind
	unsubscribe := w.Subscribe(func(ev Event) { got = append(got, ev.Kind) })

	if err := w.SetFullscreen(true); err != nil {
		t.Fatalf("fullscreen: %v", err)
	}
	// Setting the same state again does not notify.
	_ = w.SetFullscreen(true)
	_ = w.Maximize()
	_ = w.Focus()
	_ = w.SetFullscreen(false)

	want := []EventKind{EventEnterFullscreen, EventMaximize, EventFocus, EventLeaveFullscreen}
	if len(got) != len(want) {
		t.Fatalf("events=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events=%v, want %v", got, want)
		}
	}

	unsubscribe()
	_ = w.Focus()
	if len(got) != len(want) {
		t.Fatalf("unsubscribed listener still notified")
	}
}

func TestMemoryWindowDeferredFullscreen(t *testing.T) {
	b := NewMemoryBackend()
	b.DeferFullscreen = true
	w := newMemoryWindow(t, b)

	entered := 0
	w.Subscribe(func(ev Event) {
		if ev.Kind == EventEnterFullscreen {
			entered++
		}
	})

	_ = w.SetFullscreen(true)
	if w.IsFullscreen() || entered != 0 {
		t.Fatalf("fullscreen applied before completion")
	}
	if !w.CompleteFullscreen() {
		t.Fatalf("expected pending change")
	}
	if !w.IsFullscreen() || entered != 1 {
		t.Fatalf("fullscreen=%v entered=%d after completion", w.IsFullscreen(), entered)
	}
	if w.CompleteFullscreen() {
		t.Fatalf("nothing should be pending")
	}

	_ = w.SetFullscreen(false)
	w.DropPendingFullscreen()
	if w.CompleteFullscreen() || !w.IsFullscreen() {
		t.Fatalf("dropped change was applied")
	}
}

func TestMemoryWindowCloseAndDestroy(t *testing.T) {
	b := NewMemoryBackend()
	w := newMemoryWindow(t, b)

	closed := false
	w.Subscribe(func(ev Event) { closed = closed || ev.Kind == EventClosed })

	if err := w.Close(); err != nil || !closed {
		t.Fatalf("close err=%v closed=%v", err, closed)
	}
	if err := w.Close(); !errors.Is(err, ErrWindowGone) {
		t.Fatalf("second close err=%v, want ErrWindowGone", err)
	}
	if err := w.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := w.SetBounds(Rect{0, 0, 1, 1}); !errors.Is(err, ErrWindowGone) {
		t.Fatalf("set bounds after destroy err=%v", err)
	}
	if w.IsVisible() || !w.Destroyed() || w.DestroyCalls() != 1 {
		t.Fatalf("unexpected state after destroy")
	}
	if len(b.Windows()) != 1 {
		t.Fatalf("backend should remember destroyed windows")
	}
}

func TestMemoryWindowNormalBounds(t *testing.T) {
	w := newMemoryWindow(t, NewMemoryBackend())

	_ = w.Maximize()
	_ = w.SetBounds(Rect{0, 0, 1920, 1080})
	if got := w.NormalBounds(); got != (Rect{10, 10, 800, 600}) {
		t.Fatalf("normal bounds changed while maximized: %+v", got)
	}
	w.Unmaximize()
	if got := w.Bounds(); got != (Rect{10, 10, 800, 600}) {
		t.Fatalf("unmaximize bounds=%+v", got)
	}
}

func TestMemoryBackendCreateErr(t *testing.T) {
	b := NewMemoryBackend()
	b.CreateErr = errors.New("no display")
	if _, err := b.CreateWindow(CreateOptions{}); err == nil {
		t.Fatalf("expected create error")
	}
}
