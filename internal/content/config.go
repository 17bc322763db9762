// Package content composes the configuration a window loads its content
// surface with and tracks which configuration is on screen.
package content

import (
	"maps"
	"net/url"
	"slices"

	"github.com/1broseidon/winhost/internal/platform"
)

// WorkspaceKind distinguishes single folders from multi-root workspaces.
type WorkspaceKind string

const (
	WorkspaceFolder WorkspaceKind = "folder"
	WorkspaceFile   WorkspaceKind = "workspace"
)

// Workspace identifies what the window has open.
type Workspace struct {
	ID   string        `json:"id"`
	Kind WorkspaceKind `json:"kind"`
	// URI is the folder URI for folders and the configuration file for
	// multi-root workspaces. A bare path is treated as a file URI.
	URI string `json:"uri"`
}

// LocalPath returns the filesystem path for file-backed workspaces.
func (w Workspace) LocalPath() (string, bool) {
	u, err := url.Parse(w.URI)
	if err != nil {
		return "", false
	}
	switch u.Scheme {
	case "":
		return w.URI, true
	case "file":
		return u.Path, true
	}
	return "", false
}

// Splash is the theme hint shown while the surface starts.
type Splash struct {
	Theme      string   `json:"theme"`
	Background string   `json:"background,omitempty"`
	ZoomLevel  *float64 `json:"zoom_level,omitempty"`
}

// PerfMark is a named timestamp, in milliseconds since the Unix epoch.
type PerfMark struct {
	Name      string `json:"name"`
	StartTime int64  `json:"start_time"`
}

// DevArgs are development options inherited on reload by extension
// development hosts.
type DevArgs struct {
	Verbose              bool              `json:"verbose,omitempty"`
	DebugID              string            `json:"debug_id,omitempty"`
	ExtensionEnvironment map[string]string `json:"extension_environment,omitempty"`
	InspectExtensions    string            `json:"inspect_extensions,omitempty"`
	InspectBrkExtensions string            `json:"inspect_brk_extensions,omitempty"`
	ExtensionsDir        string            `json:"extensions_dir,omitempty"`
}

// Configuration is what a window loads. Fields below the stamp marker are
// filled from the window when the configuration is prepared.
type Configuration struct {
	WindowID         string            `json:"window_id"`
	Workspace        *Workspace        `json:"workspace,omitempty"`
	RemoteAuthority  string            `json:"remote_authority,omitempty"`
	UserEnv          map[string]string `json:"user_env,omitempty"`
	FilesToOpen      []string          `json:"files_to_open,omitempty"`
	FilesToDiff      []string          `json:"files_to_diff,omitempty"`
	FilesToMerge     []string          `json:"files_to_merge,omitempty"`
	FilesToWait      []string          `json:"files_to_wait,omitempty"`
	IsInitialStartup bool              `json:"is_initial_startup"`
	ForceEmpty       bool              `json:"force_empty,omitempty"`
	Dev              DevArgs           `json:"dev"`
	// Payload carries caller data the host does not interpret.
	Payload map[string]any `json:"payload,omitempty"`

	DisableExtensions *bool `json:"disable_extensions,omitempty"`

	// stamped
	Handle            platform.WindowID `json:"handle"`
	Bounds            platform.Rect     `json:"bounds"`
	Fullscreen        bool              `json:"fullscreen"`
	Maximized         bool              `json:"maximized"`
	ZoomLevel         float64           `json:"zoom_level"`
	IsCustomZoomLevel bool              `json:"is_custom_zoom_level"`
	Splash            *Splash           `json:"splash,omitempty"`
	PerfMarks         []PerfMark        `json:"perf_marks,omitempty"`
}

// Clone returns a deep copy. Payload values are copied shallowly.
func (c Configuration) Clone() Configuration {
	out := c
	if c.Workspace != nil {
		ws := *c.Workspace
		out.Workspace = &ws
	}
	out.UserEnv = maps.Clone(c.UserEnv)
	out.FilesToOpen = slices.Clone(c.FilesToOpen)
	out.FilesToDiff = slices.Clone(c.FilesToDiff)
	out.FilesToMerge = slices.Clone(c.FilesToMerge)
	out.FilesToWait = slices.Clone(c.FilesToWait)
	out.Dev.ExtensionEnvironment = maps.Clone(c.Dev.ExtensionEnvironment)
	out.Payload = maps.Clone(c.Payload)
	if c.DisableExtensions != nil {
		v := *c.DisableExtensions
		out.DisableExtensions = &v
	}
	if c.Splash != nil {
		s := *c.Splash
		if s.ZoomLevel != nil {
			z := *s.ZoomLevel
			s.ZoomLevel = &z
		}
		out.Splash = &s
	}
	out.PerfMarks = slices.Clone(c.PerfMarks)
	return out
}

// Environment variables with meaning to the host.
const (
	// CLIMarker is set in the user environment of loads started from the
	// command line.
	CLIMarker = "WINHOST_CLI"
	// CrashPipeVar names the crash handler pipe shared with new instances.
	CrashPipeVar = "CRASHPAD_PIPE_NAME"
)

// LaunchedFromCLI reports whether env carries the command line marker.
func LaunchedFromCLI(env map[string]string) bool {
	return env[CLIMarker] == "1"
}
