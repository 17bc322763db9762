package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FullscreenStyle selects how fullscreen is realised.
type FullscreenStyle string

const (
	FullscreenNative FullscreenStyle = "native"
	FullscreenSimple FullscreenStyle = "simple"
)

// Backend selects the windowing backend.
type Backend string

const (
	BackendAuto     Backend = "auto"     // X11 when a display is reachable, headless otherwise.
	BackendX11      Backend = "x11"      // Always X11.
	BackendHeadless Backend = "headless" // In-memory windows.
)

// WindowConfig configures the host window.
type WindowConfig struct {
	Title string `yaml:"title"`
	// URL is navigated by the content surface on every load.
	URL string `yaml:"url"`
	// ZoomLevel is used while a window has no zoom level of its own.
	ZoomLevel float64 `yaml:"zoom_level"`
	// RestoreFullscreen re-enters fullscreen for windows persisted in
	// fullscreen mode.
	RestoreFullscreen bool `yaml:"restore_fullscreen"`
}

// FullscreenConfig configures fullscreen transitions.
type FullscreenConfig struct {
	Style FullscreenStyle `yaml:"style"`
	// TransitionTimeout bounds how long a native transition is awaited.
	TransitionTimeout time.Duration `yaml:"transition_timeout"`
}

// HealthConfig configures trace sampling while a window is unresponsive.
type HealthConfig struct {
	SampleInterval   time.Duration `yaml:"sample_interval"`
	SamplePeriod     time.Duration `yaml:"sample_period"`
	ThresholdPercent float64       `yaml:"threshold_percent"`
}

// SurfaceConfig configures the content surface process. An empty command
// runs the built-in loopback surface.
type SurfaceConfig struct {
	Command           string            `yaml:"command,omitempty"`
	Args              []string          `yaml:"args,omitempty"`
	Env               map[string]string `yaml:"env,omitempty"`
	HeartbeatInterval time.Duration     `yaml:"heartbeat_interval"`
	UnresponsiveAfter time.Duration     `yaml:"unresponsive_after"`
	TraceTimeout      time.Duration     `yaml:"trace_timeout"`
}

// DialogConfig configures recovery prompts.
type DialogConfig struct {
	// Mode is detect, terminal or auto.
	Mode string `yaml:"mode"`
	// AutoResponse is the button index chosen in auto mode.
	AutoResponse int `yaml:"auto_response"`
	// PromptTimeout resolves unanswered prompts to their cancel button.
	// Zero waits indefinitely.
	PromptTimeout time.Duration `yaml:"prompt_timeout"`
}

// ModesConfig holds automation and development switches.
type ModesConfig struct {
	SmokeTest    bool `yaml:"smoke_test"`
	TestRunner   bool `yaml:"test_runner"`
	DevHost      bool `yaml:"dev_host"`
	TestHost     bool `yaml:"test_host"`
	Debugging    bool `yaml:"debugging"`
	OpenDevTools bool `yaml:"open_devtools"`
	// ShowTimeout forces a development window visible if it did not show
	// within this time.
	ShowTimeout time.Duration `yaml:"show_timeout"`
}

// StateConfig configures window state persistence.
type StateConfig struct {
	// Dir defaults to $XDG_STATE_HOME/winhost.
	Dir string `yaml:"dir,omitempty"`
	// CheckpointInterval saves the state of live windows periodically.
	// Zero saves on close only.
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address of the /metrics endpoint. Empty disables it.
	Listen string `yaml:"listen,omitempty"`
}

// Config is the effective configuration.
type Config struct {
	LogLevel string  `yaml:"log_level"`
	Backend  Backend `yaml:"backend"`
	// Display overrides $DISPLAY for the X11 backend.
	Display    string           `yaml:"display,omitempty"`
	Window     WindowConfig     `yaml:"window"`
	Fullscreen FullscreenConfig `yaml:"fullscreen"`
	Health     HealthConfig     `yaml:"health"`
	Surface    SurfaceConfig    `yaml:"surface"`
	Dialog     DialogConfig     `yaml:"dialog"`
	Modes      ModesConfig      `yaml:"modes"`
	State      StateConfig      `yaml:"state"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Backend:  BackendAuto,
		Window: WindowConfig{
			Title:             "winhost",
			URL:               "app://workbench/index.html",
			RestoreFullscreen: true,
		},
		Fullscreen: FullscreenConfig{
			Style:             FullscreenNative,
			TransitionTimeout: 10 * time.Second,
		},
		Health: HealthConfig{
			SampleInterval:   time.Second,
			SamplePeriod:     15 * time.Second,
			ThresholdPercent: 20,
		},
		Surface: SurfaceConfig{
			HeartbeatInterval: time.Second,
			UnresponsiveAfter: 5 * time.Second,
			TraceTimeout:      2 * time.Second,
		},
		Dialog: DialogConfig{
			Mode:         "detect",
			AutoResponse: -1,
		},
		Modes: ModesConfig{
			ShowTimeout: 10 * time.Second,
		},
	}
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: trace, debug, info, warn, error")}
	}
	switch c.Backend {
	case BackendAuto, BackendX11, BackendHeadless:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: auto, x11, headless")}
	}
	if strings.TrimSpace(c.Window.URL) == "" {
		return &ValidationError{Path: "window.url", Err: fmt.Errorf("url is required")}
	}
	switch c.Fullscreen.Style {
	case FullscreenNative, FullscreenSimple:
	default:
		return &ValidationError{Path: "fullscreen.style", Err: fmt.Errorf("style must be one of: native, simple")}
	}
	if c.Fullscreen.TransitionTimeout <= 0 {
		return &ValidationError{Path: "fullscreen.transition_timeout", Err: fmt.Errorf("transition_timeout must be > 0")}
	}
	if c.Health.ThresholdPercent <= 0 || c.Health.ThresholdPercent >= 100 {
		return &ValidationError{Path: "health.threshold_percent", Err: fmt.Errorf("threshold_percent must be between 0 and 100")}
	}
	if c.Surface.HeartbeatInterval <= 0 {
		return &ValidationError{Path: "surface.heartbeat_interval", Err: fmt.Errorf("heartbeat_interval must be > 0")}
	}
	if c.Surface.UnresponsiveAfter < c.Surface.HeartbeatInterval {
		return &ValidationError{Path: "surface.unresponsive_after", Err: fmt.Errorf("unresponsive_after must be >= heartbeat_interval")}
	}
	if c.Surface.TraceTimeout <= 0 {
		return &ValidationError{Path: "surface.trace_timeout", Err: fmt.Errorf("trace_timeout must be > 0")}
	}
	switch c.Dialog.Mode {
	case "detect", "terminal", "auto":
	default:
		return &ValidationError{Path: "dialog.mode", Err: fmt.Errorf("mode must be one of: detect, terminal, auto")}
	}
	if c.Dialog.PromptTimeout < 0 {
		return &ValidationError{Path: "dialog.prompt_timeout", Err: fmt.Errorf("prompt_timeout must be >= 0")}
	}
	if c.Modes.ShowTimeout < 0 {
		return &ValidationError{Path: "modes.show_timeout", Err: fmt.Errorf("show_timeout must be >= 0")}
	}
	if c.State.CheckpointInterval < 0 {
		return &ValidationError{Path: "state.checkpoint_interval", Err: fmt.Errorf("checkpoint_interval must be >= 0")}
	}

	for _, w := range c.validationWarnings() {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	return nil
}

// validationWarnings reports settings that are valid but fall back to
// defaults at runtime.
func (c *Config) validationWarnings() []string {
	if c == nil {
		return nil
	}
	var warnings []string
	if c.Health.SampleInterval < 0 || c.Health.SamplePeriod < 0 || c.Health.SampleInterval > c.Health.SamplePeriod {
		warnings = append(warnings, fmt.Sprintf("health sample_interval %s / sample_period %s are inconsistent; defaults will be used",
			c.Health.SampleInterval, c.Health.SamplePeriod))
	}
	if c.Dialog.Mode == "auto" && c.Dialog.AutoResponse < 0 {
		warnings = append(warnings, "dialog auto_response is negative; prompts resolve to their cancel button")
	}
	return warnings
}

// Equal reports whether two configurations carry the same values.
func (c *Config) Equal(other *Config) bool {
	if c == nil || other == nil {
		return c == other
	}
	a, errA := yaml.Marshal(c)
	b, errB := yaml.Marshal(other)
	return errA == nil && errB == nil && string(a) == string(b)
}
