package platform

import (
	"testing"

	"pgregory.net/rapid"
)

func TestRectIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{"overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 100, 100}, Rect{50, 50, 50, 50}},
		{"contained", Rect{0, 0, 100, 100}, Rect{10, 10, 20, 20}, Rect{10, 10, 20, 20}},
		{"touching edges", Rect{0, 0, 100, 100}, Rect{100, 0, 50, 50}, Rect{}},
		{"disjoint", Rect{0, 0, 10, 10}, Rect{50, 50, 10, 10}, Rect{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersect(tt.b); got != tt.want {
				t.Fatalf("Intersect=%+v, want %+v", got, tt.want)
			}
			if tt.a.Intersects(tt.b) != !tt.want.Empty() {
				t.Fatalf("Intersects disagrees with Intersect")
			}
		})
	}
}

func TestRectContains(t *testing.T) {
	area := Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	if !area.Contains(Rect{X: 10, Y: 10, Width: 800, Height: 600}) {
		t.Fatalf("expected inner rect to be contained")
	}
	if area.Contains(Rect{X: 1800, Y: 10, Width: 800, Height: 600}) {
		t.Fatalf("expected overflowing rect not to be contained")
	}
	if area.Contains(Rect{}) {
		t.Fatalf("empty rect is never contained")
	}
	if !area.ContainsPoint(0, 0) || area.ContainsPoint(1920, 0) {
		t.Fatalf("ContainsPoint edge handling is wrong")
	}
}

func TestRectCenterIn(t *testing.T) {
	got := Rect{Width: 800, Height: 600}.CenterIn(Rect{X: 1920, Y: 0, Width: 1280, Height: 1024})
	want := Rect{X: 1920 + 240, Y: 212, Width: 800, Height: 600}
	if got != want {
		t.Fatalf("CenterIn=%+v, want %+v", got, want)
	}
}

func TestRectFitIntoProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		area := Rect{
			X:      rapid.IntRange(-4000, 4000).Draw(t, "ax"),
			Y:      rapid.IntRange(-4000, 4000).Draw(t, "ay"),
			Width:  rapid.IntRange(1, 4000).Draw(t, "aw"),
			Height: rapid.IntRange(1, 4000).Draw(t, "ah"),
		}
		r := Rect{
			X:      rapid.IntRange(-8000, 8000).Draw(t, "x"),
			Y:      rapid.IntRange(-8000, 8000).Draw(t, "y"),
			Width:  rapid.IntRange(1, 8000).Draw(t, "w"),
			Height: rapid.IntRange(1, 8000).Draw(t, "h"),
		}
		got := r.FitInto(area)
		if !area.Contains(got) {
			t.Fatalf("FitInto(%+v, %+v)=%+v escapes area", r, area, got)
		}
		if area.Contains(r) && got != r {
			t.Fatalf("FitInto moved a rect that already fit: %+v -> %+v", r, got)
		}
	})
}

func TestMatchDisplay(t *testing.T) {
	displays := []Display{
		{ID: 1, Bounds: Rect{0, 0, 1920, 1080}},
		{ID: 2, Bounds: Rect{1920, 0, 1280, 1024}, Primary: true},
	}

	if d, ok := MatchDisplay(displays, Rect{1800, 100, 800, 600}); !ok || d.ID != 2 {
		t.Fatalf("expected the display with the larger overlap, got %+v", d)
	}
	if d, ok := MatchDisplay(displays, Rect{-5000, 0, 100, 100}); !ok || d.ID != 1 {
		t.Fatalf("expected nearest display for off-screen bounds, got %+v", d)
	}
	if _, ok := MatchDisplay(nil, Rect{0, 0, 1, 1}); ok {
		t.Fatalf("expected no match without displays")
	}
	if d, ok := PrimaryDisplay(displays); !ok || d.ID != 2 {
		t.Fatalf("expected primary display, got %+v", d)
	}
}
