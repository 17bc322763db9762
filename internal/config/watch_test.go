package config

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestHolder_ReloadNotifiesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "window:", "  zoom_level: 1")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	h := NewHolder(path, res.Config, nil)

	var calls int
	var gotOld, gotNext float64
	h.OnChange(func(old, next *Config) {
		calls++
		gotOld, gotNext = old.Window.ZoomLevel, next.Window.ZoomLevel
	})

	// Unchanged file does not notify.
	if err := h.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no notification, got %d", calls)
	}

	writeConfig(t, path, "window:", "  zoom_level: 2")
	if err := h.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if calls != 1 || gotOld != 1 || gotNext != 2 {
		t.Fatalf("unexpected notification: calls=%d old=%v next=%v", calls, gotOld, gotNext)
	}
	if h.Get().Window.ZoomLevel != 2 {
		t.Fatalf("expected holder to carry new config")
	}
}

func TestHolder_InvalidReloadKeepsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "window:", "  zoom_level: 1")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	h := NewHolder(path, res.Config, nil)

	writeConfig(t, path, "window:", "  bogus: true")
	if err := h.Reload(); err == nil {
		t.Fatalf("expected reload error")
	}
	if h.Get().Window.ZoomLevel != 1 {
		t.Fatalf("expected previous config to be kept")
	}
}

func TestHolder_WatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "window:", "  zoom_level: 1")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	h := NewHolder(path, res.Config, nil)

	changed := make(chan float64, 4)
	h.OnChange(func(_, next *Config) { changed <- next.Window.ZoomLevel })

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := h.Watch(ctx); err != nil {
			t.Errorf("watch: %v", err)
		}
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "window:", "  zoom_level: 3")

	select {
	case zoom := <-changed:
		if zoom != 3 {
			t.Fatalf("expected zoom 3, got %v", zoom)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for reload")
	}
}
