package windowstate

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/winhost/internal/platform"
)

// Validate repairs a restored state against the attached displays.
//
//   - no bounds: the default state is returned.
//   - a recorded display id that is no longer attached: default geometry,
//     recorded mode kept.
//   - bounds partially visible: fitted into the work area they overlap most.
//   - bounds entirely off-screen: re-centered on the primary display.
//
// With no displays there is nothing to check against and the state is
// returned unchanged. Validate never panics; any unexpected failure yields
// the default state and a warning.
func Validate(state WindowState, displays []platform.Display, logger *slog.Logger) (result WindowState) {
	if logger == nil {
		logger = slog.Default()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("unexpected error validating window state, using defaults",
				"error", fmt.Sprint(r))
			result = Default(displays)
		}
	}()

	if !state.HasBounds() {
		return withZoom(Default(displays), state)
	}
	if err := state.Validate(); err != nil {
		logger.Warn("invalid window state, using defaults", "error", err)
		return Default(displays)
	}
	if len(displays) == 0 {
		return state.Clone()
	}

	bounds := *state.Bounds

	if state.DisplayID != nil {
		display, ok := displayByID(displays, *state.DisplayID)
		if !ok {
			logger.Warn("window display no longer attached, using default bounds",
				"display_id", *state.DisplayID,
				"mode", state.Mode)
			out := Default(displays)
			out.Mode = state.Mode
			return withZoom(out, state)
		}
		area := visibleArea(display)
		if !area.Contains(bounds) {
			bounds = bounds.FitInto(area)
		}
		return state.WithBounds(bounds)
	}

	for _, d := range displays {
		if visibleArea(d).Contains(bounds) {
			return state.Clone()
		}
	}

	if d, ok := mostOverlapping(displays, bounds); ok {
		fitted := bounds.FitInto(visibleArea(d))
		logger.Debug("window bounds partially off-screen, clamping",
			"display", d.Name,
			"from", bounds,
			"to", fitted)
		return state.WithBounds(fitted)
	}

	primary, _ := platform.PrimaryDisplay(displays)
	centered := bounds.CenterIn(visibleArea(primary))
	logger.Warn("window bounds outside all displays, recentering on primary display",
		"display", primary.Name,
		"from", bounds,
		"to", centered)
	return state.WithBounds(centered)
}

func displayByID(displays []platform.Display, id int) (platform.Display, bool) {
	for _, d := range displays {
		if d.ID == id {
			return d, true
		}
	}
	return platform.Display{}, false
}

func mostOverlapping(displays []platform.Display, bounds platform.Rect) (platform.Display, bool) {
	best := -1
	bestArea := 0
	for i, d := range displays {
		area := visibleArea(d).Intersect(bounds).Area()
		if area > bestArea {
			best = i
			bestArea = area
		}
	}
	if best < 0 {
		return platform.Display{}, false
	}
	return displays[best], true
}

func withZoom(out, from WindowState) WindowState {
	if from.ZoomLevel != nil {
		z := *from.ZoomLevel
		out.ZoomLevel = &z
	}
	return out
}
