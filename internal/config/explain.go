package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	log_level
//	backend
//	display
//	window.url
//	fullscreen.style
//	health.threshold_percent
//	surface.env.<NAME>
//	dialog.mode
//	modes.dev_host
//	state.checkpoint_interval
//	metrics.listen
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	// Exact-path file source wins.
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	unknown := fmt.Errorf("unknown path: %s", path)

	if len(parts) == 1 {
		switch parts[0] {
		case "log_level":
			return cfg.LogLevel, nil
		case "backend":
			return cfg.Backend, nil
		case "display":
			return cfg.Display, nil
		case "window":
			return cfg.Window, nil
		case "fullscreen":
			return cfg.Fullscreen, nil
		case "health":
			return cfg.Health, nil
		case "surface":
			return cfg.Surface, nil
		case "dialog":
			return cfg.Dialog, nil
		case "modes":
			return cfg.Modes, nil
		case "state":
			return cfg.State, nil
		case "metrics":
			return cfg.Metrics, nil
		}
		return nil, unknown
	}

	switch parts[0] {
	case "window":
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "title":
			return cfg.Window.Title, nil
		case "url":
			return cfg.Window.URL, nil
		case "zoom_level":
			return cfg.Window.ZoomLevel, nil
		case "restore_fullscreen":
			return cfg.Window.RestoreFullscreen, nil
		}
	case "fullscreen":
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "style":
			return cfg.Fullscreen.Style, nil
		case "transition_timeout":
			return cfg.Fullscreen.TransitionTimeout, nil
		}
	case "health":
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "sample_interval":
			return cfg.Health.SampleInterval, nil
		case "sample_period":
			return cfg.Health.SamplePeriod, nil
		case "threshold_percent":
			return cfg.Health.ThresholdPercent, nil
		}
	case "surface":
		switch parts[1] {
		case "env":
			if len(parts) == 2 {
				return cfg.Surface.Env, nil
			}
			if len(parts) != 3 {
				return nil, unknown
			}
			v, ok := cfg.Surface.Env[parts[2]]
			if !ok {
				return nil, fmt.Errorf("unknown surface.env entry %q", parts[2])
			}
			return v, nil
		}
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "command":
			return cfg.Surface.Command, nil
		case "args":
			return cfg.Surface.Args, nil
		case "heartbeat_interval":
			return cfg.Surface.HeartbeatInterval, nil
		case "unresponsive_after":
			return cfg.Surface.UnresponsiveAfter, nil
		case "trace_timeout":
			return cfg.Surface.TraceTimeout, nil
		}
	case "dialog":
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "mode":
			return cfg.Dialog.Mode, nil
		case "auto_response":
			return cfg.Dialog.AutoResponse, nil
		case "prompt_timeout":
			return cfg.Dialog.PromptTimeout, nil
		}
	case "modes":
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "smoke_test":
			return cfg.Modes.SmokeTest, nil
		case "test_runner":
			return cfg.Modes.TestRunner, nil
		case "dev_host":
			return cfg.Modes.DevHost, nil
		case "test_host":
			return cfg.Modes.TestHost, nil
		case "debugging":
			return cfg.Modes.Debugging, nil
		case "open_devtools":
			return cfg.Modes.OpenDevTools, nil
		case "show_timeout":
			return cfg.Modes.ShowTimeout, nil
		}
	case "state":
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "dir":
			return cfg.State.Dir, nil
		case "checkpoint_interval":
			return cfg.State.CheckpointInterval, nil
		}
	case "metrics":
		if len(parts) == 2 && parts[1] == "listen" {
			return cfg.Metrics.Listen, nil
		}
	}
	return nil, unknown
}
