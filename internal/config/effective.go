package config

import (
	"fmt"
	"maps"
	"time"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw over the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.Backend != nil {
		cfg.Backend = *raw.Backend
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}

	if w := raw.Window; w != nil {
		if w.Title != nil {
			cfg.Window.Title = *w.Title
		}
		if w.URL != nil {
			cfg.Window.URL = *w.URL
		}
		if w.ZoomLevel != nil {
			cfg.Window.ZoomLevel = *w.ZoomLevel
		}
		if w.RestoreFullscreen != nil {
			cfg.Window.RestoreFullscreen = *w.RestoreFullscreen
		}
	}

	if f := raw.Fullscreen; f != nil {
		if f.Style != nil {
			cfg.Fullscreen.Style = *f.Style
		}
		cfg.Fullscreen.TransitionTimeout = derefDuration(f.TransitionTimeout, cfg.Fullscreen.TransitionTimeout)
	}

	if h := raw.Health; h != nil {
		cfg.Health.SampleInterval = derefDuration(h.SampleInterval, cfg.Health.SampleInterval)
		cfg.Health.SamplePeriod = derefDuration(h.SamplePeriod, cfg.Health.SamplePeriod)
		if h.ThresholdPercent != nil {
			cfg.Health.ThresholdPercent = *h.ThresholdPercent
		}
	}

	if s := raw.Surface; s != nil {
		if s.Command != nil {
			cfg.Surface.Command = *s.Command
		}
		if s.Args != nil {
			cfg.Surface.Args = append([]string(nil), s.Args...)
		}
		if s.Env != nil {
			cfg.Surface.Env = maps.Clone(s.Env)
		}
		cfg.Surface.HeartbeatInterval = derefDuration(s.HeartbeatInterval, cfg.Surface.HeartbeatInterval)
		cfg.Surface.UnresponsiveAfter = derefDuration(s.UnresponsiveAfter, cfg.Surface.UnresponsiveAfter)
		cfg.Surface.TraceTimeout = derefDuration(s.TraceTimeout, cfg.Surface.TraceTimeout)
	}

	if d := raw.Dialog; d != nil {
		if d.Mode != nil {
			cfg.Dialog.Mode = *d.Mode
		}
		cfg.Dialog.AutoResponse = derefInt(d.AutoResponse, cfg.Dialog.AutoResponse)
		cfg.Dialog.PromptTimeout = derefDuration(d.PromptTimeout, cfg.Dialog.PromptTimeout)
	}

	if m := raw.Modes; m != nil {
		cfg.Modes.SmokeTest = derefBool(m.SmokeTest, cfg.Modes.SmokeTest)
		cfg.Modes.TestRunner = derefBool(m.TestRunner, cfg.Modes.TestRunner)
		cfg.Modes.DevHost = derefBool(m.DevHost, cfg.Modes.DevHost)
		cfg.Modes.TestHost = derefBool(m.TestHost, cfg.Modes.TestHost)
		cfg.Modes.Debugging = derefBool(m.Debugging, cfg.Modes.Debugging)
		cfg.Modes.OpenDevTools = derefBool(m.OpenDevTools, cfg.Modes.OpenDevTools)
		cfg.Modes.ShowTimeout = derefDuration(m.ShowTimeout, cfg.Modes.ShowTimeout)
	}

	if s := raw.State; s != nil {
		if s.Dir != nil {
			cfg.State.Dir = *s.Dir
		}
		cfg.State.CheckpointInterval = derefDuration(s.CheckpointInterval, cfg.State.CheckpointInterval)
	}

	if m := raw.Metrics; m != nil && m.Listen != nil {
		cfg.Metrics.Listen = *m.Listen
	}

	return cfg, nil
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func derefBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func derefDuration(p *time.Duration, def time.Duration) time.Duration {
	if p == nil {
		return def
	}
	return *p
}
