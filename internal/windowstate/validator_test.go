package windowstate

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/1broseidon/winhost/internal/platform"
)

func twoDisplays() []platform.Display {
	return []platform.Display{
		{
			ID:      0,
			Name:    "DP-1",
			Primary: true,
			Bounds:  platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
			Usable:  platform.Rect{X: 0, Y: 32, Width: 1920, Height: 1048},
		},
		{
			ID:     1,
			Name:   "HDMI-1",
			Bounds: platform.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024},
			Usable: platform.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024},
		},
	}
}

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func rectPtr(r platform.Rect) *platform.Rect { return &r }

func TestValidate_NoBoundsReturnsDefault(t *testing.T) {
	displays := twoDisplays()
	got := Validate(WindowState{Mode: ModeMaximized}, displays, nil)

	want := Default(displays)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Validate() mismatch (-want +got):\n%s", diff)
	}
	if got.Bounds.X != (1920-DefaultWidth)/2 {
		t.Fatalf("default not centered: %+v", *got.Bounds)
	}
}

func TestValidate_VisibleBoundsUnchanged(t *testing.T) {
	in := WindowState{
		Bounds:    rectPtr(platform.Rect{X: 2000, Y: 100, Width: 800, Height: 600}),
		Mode:      ModeNormal,
		ZoomLevel: FloatPtr(1),
	}
	got := Validate(in, twoDisplays(), nil)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("Validate() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_MissingDisplayKeepsMode(t *testing.T) {
	logger, buf := captureLogger()
	in := WindowState{
		Bounds:    rectPtr(platform.Rect{X: 4000, Y: 0, Width: 800, Height: 600}),
		Mode:      ModeFullscreen,
		DisplayID: IntPtr(7),
	}
	got := Validate(in, twoDisplays(), logger)

	if got.Mode != ModeFullscreen {
		t.Fatalf("mode = %q, want fullscreen", got.Mode)
	}
	if got.DisplayID != nil {
		t.Fatalf("display id should be dropped, got %d", *got.DisplayID)
	}
	if diff := cmp.Diff(Default(twoDisplays()).Bounds, got.Bounds); diff != "" {
		t.Fatalf("bounds mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("expected a warning, log was %q", buf.String())
	}
}

func TestValidate_KnownDisplayFitsBounds(t *testing.T) {
	in := WindowState{
		Bounds:    rectPtr(platform.Rect{X: 1900, Y: 0, Width: 1920, Height: 1080}),
		Mode:      ModeFullscreen,
		DisplayID: IntPtr(1),
	}
	got := Validate(in, twoDisplays(), nil)
	want := platform.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024}
	if *got.Bounds != want {
		t.Fatalf("bounds = %+v, want %+v", *got.Bounds, want)
	}
	if got.DisplayID == nil || *got.DisplayID != 1 {
		t.Fatal("display id should be kept")
	}
}

func TestValidate_PartiallyVisibleIsClamped(t *testing.T) {
	in := WindowState{
		Bounds: rectPtr(platform.Rect{X: -200, Y: 500, Width: 800, Height: 800}),
		Mode:   ModeNormal,
	}
	got := Validate(in, twoDisplays(), nil)
	want := platform.Rect{X: 0, Y: 280, Width: 800, Height: 800}
	if *got.Bounds != want {
		t.Fatalf("bounds = %+v, want %+v", *got.Bounds, want)
	}
}

func TestValidate_OffscreenIsRecenteredOnPrimary(t *testing.T) {
	logger, buf := captureLogger()
	in := WindowState{
		Bounds: rectPtr(platform.Rect{X: 10000, Y: 10000, Width: 800, Height: 600}),
		Mode:   ModeMaximized,
	}
	got := Validate(in, twoDisplays(), logger)
	want := platform.Rect{X: 560, Y: 256, Width: 800, Height: 600}
	if *got.Bounds != want {
		t.Fatalf("bounds = %+v, want %+v", *got.Bounds, want)
	}
	if got.Mode != ModeMaximized {
		t.Fatalf("mode = %q, want maximized", got.Mode)
	}
	if !strings.Contains(buf.String(), "recentering") {
		t.Fatalf("expected recenter warning, log was %q", buf.String())
	}
}

func TestValidate_InvalidStateReturnsDefault(t *testing.T) {
	logger, buf := captureLogger()
	in := WindowState{
		Bounds: rectPtr(platform.Rect{X: 0, Y: 0, Width: -5, Height: 100}),
		Mode:   ModeNormal,
	}
	got := Validate(in, twoDisplays(), logger)
	if diff := cmp.Diff(Default(twoDisplays()), got); diff != "" {
		t.Fatalf("Validate() mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), "invalid window state") {
		t.Fatalf("expected warning, log was %q", buf.String())
	}
}

func TestValidate_NoDisplaysReturnsStateUnchanged(t *testing.T) {
	in := WindowState{
		Bounds: rectPtr(platform.Rect{X: 10, Y: 10, Width: 100, Height: 100}),
		Mode:   ModeNormal,
	}
	got := Validate(in, nil, nil)
	if diff := cmp.Diff(in, got); diff != "" {
		t.Fatalf("Validate() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_DoesNotAliasInput(t *testing.T) {
	in := WindowState{
		Bounds: rectPtr(platform.Rect{X: 10, Y: 40, Width: 100, Height: 100}),
		Mode:   ModeNormal,
	}
	got := Validate(in, twoDisplays(), nil)
	got.Bounds.X = 999
	if in.Bounds.X != 10 {
		t.Fatal("Validate returned bounds aliasing the input")
	}
}

func displayGen() *rapid.Generator[platform.Display] {
	return rapid.Custom(func(t *rapid.T) platform.Display {
		x := rapid.IntRange(-4000, 4000).Draw(t, "x")
		y := rapid.IntRange(-4000, 4000).Draw(t, "y")
		w := rapid.IntRange(200, 4000).Draw(t, "w")
		h := rapid.IntRange(200, 4000).Draw(t, "h")
		inset := rapid.IntRange(0, 60).Draw(t, "inset")
		return platform.Display{
			Bounds: platform.Rect{X: x, Y: y, Width: w, Height: h},
			Usable: platform.Rect{X: x, Y: y + inset, Width: w, Height: h - inset},
		}
	})
}

func TestValidate_ExtremeCoordinatesUseDefault(t *testing.T) {
	displays := []platform.Display{{ID: 1, Bounds: platform.Rect{Width: 1920, Height: 1080}, Primary: true}}
	for name, bounds := range map[string]platform.Rect{
		"near max int": {X: math.MaxInt - 10, Y: math.MaxInt - 10, Width: 800, Height: 600},
		"near min int": {X: math.MinInt + 10, Y: 0, Width: 800, Height: 600},
		"huge size":    {X: 0, Y: 0, Width: math.MaxInt, Height: 600},
	} {
		t.Run(name, func(t *testing.T) {
			got := Validate(WindowState{Bounds: &bounds, Mode: ModeNormal}, displays, slog.New(slog.DiscardHandler))
			if !cmp.Equal(got, Default(displays)) {
				t.Fatalf("Validate=%+v, want default %+v", *got.Bounds, *Default(displays).Bounds)
			}
		})
	}
}

func TestValidate_ResultIsVisibleProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		displays := rapid.SliceOfN(displayGen(), 1, 4).Draw(t, "displays")
		for i := range displays {
			displays[i].ID = i
		}
		primary := rapid.IntRange(0, len(displays)-1).Draw(t, "primary")
		displays[primary].Primary = true

		state := WindowState{
			Bounds: &platform.Rect{
				X:      rapid.OneOf(rapid.IntRange(-20000, 20000), rapid.Int()).Draw(t, "bx"),
				Y:      rapid.OneOf(rapid.IntRange(-20000, 20000), rapid.Int()).Draw(t, "by"),
				Width:  rapid.OneOf(rapid.IntRange(1, 8000), rapid.IntMin(1)).Draw(t, "bw"),
				Height: rapid.OneOf(rapid.IntRange(1, 8000), rapid.IntMin(1)).Draw(t, "bh"),
			},
			Mode: rapid.SampledFrom([]Mode{ModeNormal, ModeMaximized, ModeFullscreen}).Draw(t, "mode"),
		}
		if rapid.Bool().Draw(t, "hasDisplayID") {
			state.DisplayID = IntPtr(rapid.IntRange(0, 6).Draw(t, "displayID"))
		}

		got := Validate(state, displays, slog.New(slog.DiscardHandler))
		if got.Bounds == nil {
			t.Fatalf("validated state has no bounds")
		}
		contained := false
		for _, d := range displays {
			if visibleArea(d).Contains(*got.Bounds) {
				contained = true
				break
			}
		}
		if !contained && !cmp.Equal(got.Bounds, Default(displays).Bounds) {
			t.Fatalf("bounds %+v not visible on %+v", *got.Bounds, displays)
		}
	})
}
