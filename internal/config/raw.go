package config

import (
	"fmt"
	"maps"
	"time"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawWindowConfig struct {
	Title             *string  `yaml:"title"`
	URL               *string  `yaml:"url"`
	ZoomLevel         *float64 `yaml:"zoom_level"`
	RestoreFullscreen *bool    `yaml:"restore_fullscreen"`
}

type RawFullscreenConfig struct {
	Style             *FullscreenStyle `yaml:"style"`
	TransitionTimeout *time.Duration   `yaml:"transition_timeout"`
}

type RawHealthConfig struct {
	SampleInterval   *time.Duration `yaml:"sample_interval"`
	SamplePeriod     *time.Duration `yaml:"sample_period"`
	ThresholdPercent *float64       `yaml:"threshold_percent"`
}

type RawSurfaceConfig struct {
	Command           *string           `yaml:"command"`
	Args              []string          `yaml:"args"`
	Env               map[string]string `yaml:"env"`
	HeartbeatInterval *time.Duration    `yaml:"heartbeat_interval"`
	UnresponsiveAfter *time.Duration    `yaml:"unresponsive_after"`
	TraceTimeout      *time.Duration    `yaml:"trace_timeout"`
}

type RawDialogConfig struct {
	Mode          *string        `yaml:"mode"`
	AutoResponse  *int           `yaml:"auto_response"`
	PromptTimeout *time.Duration `yaml:"prompt_timeout"`
}

type RawModesConfig struct {
	SmokeTest    *bool          `yaml:"smoke_test"`
	TestRunner   *bool          `yaml:"test_runner"`
	DevHost      *bool          `yaml:"dev_host"`
	TestHost     *bool          `yaml:"test_host"`
	Debugging    *bool          `yaml:"debugging"`
	OpenDevTools *bool          `yaml:"open_devtools"`
	ShowTimeout  *time.Duration `yaml:"show_timeout"`
}

type RawStateConfig struct {
	Dir                *string        `yaml:"dir"`
	CheckpointInterval *time.Duration `yaml:"checkpoint_interval"`
}

type RawMetricsConfig struct {
	Listen *string `yaml:"listen"`
}

// RawConfig is one configuration file as written. Nil fields were not set.
type RawConfig struct {
	Include    IncludeList          `yaml:"include"`
	LogLevel   *string              `yaml:"log_level"`
	Backend    *Backend             `yaml:"backend"`
	Display    *string              `yaml:"display"`
	Window     *RawWindowConfig     `yaml:"window"`
	Fullscreen *RawFullscreenConfig `yaml:"fullscreen"`
	Health     *RawHealthConfig     `yaml:"health"`
	Surface    *RawSurfaceConfig    `yaml:"surface"`
	Dialog     *RawDialogConfig     `yaml:"dialog"`
	Modes      *RawModesConfig      `yaml:"modes"`
	State      *RawStateConfig      `yaml:"state"`
	Metrics    *RawMetricsConfig    `yaml:"metrics"`
}

// merge returns c with every field set in overlay replaced.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c
	out.Include = nil

	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Backend != nil {
		out.Backend = overlay.Backend
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.Window != nil {
		out.Window = mergeRawWindow(out.Window, overlay.Window)
	}
	if overlay.Fullscreen != nil {
		out.Fullscreen = mergeRawFullscreen(out.Fullscreen, overlay.Fullscreen)
	}
	if overlay.Health != nil {
		out.Health = mergeRawHealth(out.Health, overlay.Health)
	}
	if overlay.Surface != nil {
		out.Surface = mergeRawSurface(out.Surface, overlay.Surface)
	}
	if overlay.Dialog != nil {
		out.Dialog = mergeRawDialog(out.Dialog, overlay.Dialog)
	}
	if overlay.Modes != nil {
		out.Modes = mergeRawModes(out.Modes, overlay.Modes)
	}
	if overlay.State != nil {
		out.State = mergeRawState(out.State, overlay.State)
	}
	if overlay.Metrics != nil {
		out.Metrics = mergeRawMetrics(out.Metrics, overlay.Metrics)
	}
	return out
}

func mergeRawWindow(base, overlay *RawWindowConfig) *RawWindowConfig {
	out := RawWindowConfig{}
	if base != nil {
		out = *base
	}
	if overlay.Title != nil {
		out.Title = overlay.Title
	}
	if overlay.URL != nil {
		out.URL = overlay.URL
	}
	if overlay.ZoomLevel != nil {
		out.ZoomLevel = overlay.ZoomLevel
	}
	if overlay.RestoreFullscreen != nil {
		out.RestoreFullscreen = overlay.RestoreFullscreen
	}
	return &out
}

func mergeRawFullscreen(base, overlay *RawFullscreenConfig) *RawFullscreenConfig {
	out := RawFullscreenConfig{}
	if base != nil {
		out = *base
	}
	if overlay.Style != nil {
		out.Style = overlay.Style
	}
	if overlay.TransitionTimeout != nil {
		out.TransitionTimeout = overlay.TransitionTimeout
	}
	return &out
}

func mergeRawHealth(base, overlay *RawHealthConfig) *RawHealthConfig {
	out := RawHealthConfig{}
	if base != nil {
		out = *base
	}
	if overlay.SampleInterval != nil {
		out.SampleInterval = overlay.SampleInterval
	}
	if overlay.SamplePeriod != nil {
		out.SamplePeriod = overlay.SamplePeriod
	}
	if overlay.ThresholdPercent != nil {
		out.ThresholdPercent = overlay.ThresholdPercent
	}
	return &out
}

func mergeRawSurface(base, overlay *RawSurfaceConfig) *RawSurfaceConfig {
	out := RawSurfaceConfig{}
	if base != nil {
		out = *base
	}
	if overlay.Command != nil {
		out.Command = overlay.Command
	}
	if overlay.Args != nil {
		out.Args = append([]string(nil), overlay.Args...)
	}
	if overlay.Env != nil {
		merged := maps.Clone(out.Env)
		if merged == nil {
			merged = make(map[string]string, len(overlay.Env))
		}
		maps.Copy(merged, overlay.Env)
		out.Env = merged
	}
	if overlay.HeartbeatInterval != nil {
		out.HeartbeatInterval = overlay.HeartbeatInterval
	}
	if overlay.UnresponsiveAfter != nil {
		out.UnresponsiveAfter = overlay.UnresponsiveAfter
	}
	if overlay.TraceTimeout != nil {
		out.TraceTimeout = overlay.TraceTimeout
	}
	return &out
}

func mergeRawDialog(base, overlay *RawDialogConfig) *RawDialogConfig {
	out := RawDialogConfig{}
	if base != nil {
		out = *base
	}
	if overlay.Mode != nil {
		out.Mode = overlay.Mode
	}
	if overlay.AutoResponse != nil {
		out.AutoResponse = overlay.AutoResponse
	}
	if overlay.PromptTimeout != nil {
		out.PromptTimeout = overlay.PromptTimeout
	}
	return &out
}

func mergeRawModes(base, overlay *RawModesConfig) *RawModesConfig {
	out := RawModesConfig{}
	if base != nil {
		out = *base
	}
	if overlay.SmokeTest != nil {
		out.SmokeTest = overlay.SmokeTest
	}
	if overlay.TestRunner != nil {
		out.TestRunner = overlay.TestRunner
	}
	if overlay.DevHost != nil {
		out.DevHost = overlay.DevHost
	}
	if overlay.TestHost != nil {
		out.TestHost = overlay.TestHost
	}
	if overlay.Debugging != nil {
		out.Debugging = overlay.Debugging
	}
	if overlay.OpenDevTools != nil {
		out.OpenDevTools = overlay.OpenDevTools
	}
	if overlay.ShowTimeout != nil {
		out.ShowTimeout = overlay.ShowTimeout
	}
	return &out
}

func mergeRawState(base, overlay *RawStateConfig) *RawStateConfig {
	out := RawStateConfig{}
	if base != nil {
		out = *base
	}
	if overlay.Dir != nil {
		out.Dir = overlay.Dir
	}
	if overlay.CheckpointInterval != nil {
		out.CheckpointInterval = overlay.CheckpointInterval
	}
	return &out
}

func mergeRawMetrics(base, overlay *RawMetricsConfig) *RawMetricsConfig {
	out := RawMetricsConfig{}
	if base != nil {
		out = *base
	}
	if overlay.Listen != nil {
		out.Listen = overlay.Listen
	}
	return &out
}
