package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Health.SampleInterval != time.Second || cfg.Health.SamplePeriod != 15*time.Second {
		t.Fatalf("unexpected sampling defaults: %+v", cfg.Health)
	}
	if cfg.Health.ThresholdPercent != 20 {
		t.Fatalf("expected threshold 20, got %v", cfg.Health.ThresholdPercent)
	}
	if cfg.Fullscreen.Style != FullscreenNative {
		t.Fatalf("expected native fullscreen, got %q", cfg.Fullscreen.Style)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Config.Equal(DefaultConfig()) {
		t.Fatalf("expected defaults, got %+v", res.Config)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "# empty")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Window.URL != DefaultConfig().Window.URL {
		t.Fatalf("expected default url, got %q", res.Config.Window.URL)
	}
}

func TestLoadFromPath_OverridesAndDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path,
		"backend: headless",
		"window:",
		"  title: Workbench",
		"  zoom_level: 1.5",
		"fullscreen:",
		"  style: simple",
		"health:",
		"  sample_interval: 500ms",
		"  threshold_percent: 35",
		"surface:",
		"  command: /usr/bin/renderer",
		"  args: [--headless]",
		"  env:",
		"    RENDER_MODE: software",
		"dialog:",
		"  mode: auto",
		"  auto_response: 0",
		"modes:",
		"  dev_host: true",
		"state:",
		"  checkpoint_interval: 30s",
	)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Backend != BackendHeadless {
		t.Fatalf("expected headless backend, got %q", cfg.Backend)
	}
	if cfg.Window.Title != "Workbench" || cfg.Window.ZoomLevel != 1.5 {
		t.Fatalf("unexpected window config: %+v", cfg.Window)
	}
	if cfg.Window.URL != DefaultConfig().Window.URL {
		t.Fatalf("expected untouched url to keep default, got %q", cfg.Window.URL)
	}
	if cfg.Fullscreen.Style != FullscreenSimple {
		t.Fatalf("expected simple fullscreen, got %q", cfg.Fullscreen.Style)
	}
	if cfg.Health.SampleInterval != 500*time.Millisecond || cfg.Health.SamplePeriod != 15*time.Second {
		t.Fatalf("unexpected health config: %+v", cfg.Health)
	}
	if cfg.Health.ThresholdPercent != 35 {
		t.Fatalf("expected threshold 35, got %v", cfg.Health.ThresholdPercent)
	}
	if cfg.Surface.Command != "/usr/bin/renderer" || len(cfg.Surface.Args) != 1 || cfg.Surface.Env["RENDER_MODE"] != "software" {
		t.Fatalf("unexpected surface config: %+v", cfg.Surface)
	}
	if cfg.Dialog.Mode != "auto" || cfg.Dialog.AutoResponse != 0 {
		t.Fatalf("unexpected dialog config: %+v", cfg.Dialog)
	}
	if !cfg.Modes.DevHost || cfg.Modes.ShowTimeout != 10*time.Second {
		t.Fatalf("unexpected modes config: %+v", cfg.Modes)
	}
	if cfg.State.CheckpointInterval != 30*time.Second {
		t.Fatalf("expected checkpoint 30s, got %s", cfg.State.CheckpointInterval)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "unknown_key: 1")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path,
		"log_level: info",
		"health:",
		"  threshold_percent: 150",
	)

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if verr.Path != "health.threshold_percent" {
		t.Fatalf("expected path health.threshold_percent, got %q", verr.Path)
	}
	if verr.Source.Kind != SourceFile || verr.Source.Line != 3 {
		t.Fatalf("expected source at line 3, got %#v", verr.Source)
	}
	if !strings.Contains(err.Error(), path+":3:") {
		t.Fatalf("expected file:line prefix, got %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"backend", func(c *Config) { c.Backend = "wayland" }, "backend"},
		{"url", func(c *Config) { c.Window.URL = " " }, "window.url"},
		{"style", func(c *Config) { c.Fullscreen.Style = "borderless" }, "fullscreen.style"},
		{"threshold", func(c *Config) { c.Health.ThresholdPercent = 0 }, "health.threshold_percent"},
		{"unresponsive", func(c *Config) { c.Surface.UnresponsiveAfter = time.Millisecond }, "surface.unresponsive_after"},
		{"dialog mode", func(c *Config) { c.Dialog.Mode = "popup" }, "dialog.mode"},
		{"checkpoint", func(c *Config) { c.State.CheckpointInterval = -time.Second }, "state.checkpoint_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, verr.Path)
			}
		})
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	// config.d loaded first, in sorted order.
	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, filepath.Join(configD, "10-base.yaml"),
		"window:",
		"  title: base",
		"  zoom_level: 1",
	)
	writeConfig(t, filepath.Join(configD, "20-override.yaml"),
		"window:",
		"  zoom_level: 2",
	)

	// Main file overrides includes.
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path,
		"include:",
		"  - config.d",
		"window:",
		"  zoom_level: 3",
	)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Window.ZoomLevel != 3 {
		t.Fatalf("expected zoom_level 3, got %v", res.Config.Window.ZoomLevel)
	}
	if res.Config.Window.Title != "base" {
		t.Fatalf("expected title from include, got %q", res.Config.Window.Title)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeMergesSurfaceEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "base.yaml"),
		"surface:",
		"  env:",
		"    A: one",
		"    B: two",
	)
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path,
		"include: base.yaml",
		"surface:",
		"  env:",
		"    B: three",
	)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	env := res.Config.Surface.Env
	if env["A"] != "one" || env["B"] != "three" {
		t.Fatalf("unexpected env: %v", env)
	}
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "include:", "  - missing.yaml")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "include") || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected include error, got %v", err)
	}
	if !strings.Contains(err.Error(), path+":") {
		t.Fatalf("expected error to include file:line:col prefix, got %v", err)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeConfig(t, a, "include: b.yaml")
	writeConfig(t, b, "include: a.yaml")

	_, err := LoadFromPath(a)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestLoadFromPath_IncludeMayNotSetHostKeys(t *testing.T) {
	for _, key := range []string{"log_level: debug", "backend: headless", "display: \":1\"", "state:\n  dir: /tmp/x", "metrics:\n  listen: 127.0.0.1:9000"} {
		t.Run(strings.SplitN(key, ":", 2)[0], func(t *testing.T) {
			dir := t.TempDir()
			frag := filepath.Join(dir, "frag.yaml")
			writeConfig(t, frag, "window:", "  title: shared", key)
			path := filepath.Join(dir, "config.yaml")
			writeConfig(t, path, "include: frag.yaml")

			_, err := LoadFromPath(path)
			if !errors.Is(err, ErrHostKeyInInclude) {
				t.Fatalf("expected ErrHostKeyInInclude, got %v", err)
			}
			if !strings.Contains(err.Error(), frag+":") {
				t.Fatalf("expected fragment position in error, got %v", err)
			}
		})
	}
}

func TestLoadFromPath_RootMaySetHostKeysAlongsideIncludes(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "frag.yaml"), "window:", "  title: shared")
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "include: frag.yaml", "backend: headless", "log_level: debug")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Backend != BackendHeadless || res.Config.LogLevel != "debug" {
		t.Fatalf("unexpected host settings: backend=%q log_level=%q", res.Config.Backend, res.Config.LogLevel)
	}
	if res.Config.Window.Title != "shared" {
		t.Fatalf("expected title from include, got %q", res.Config.Window.Title)
	}
}

func TestLoadFromPath_IncludeDepthLimit(t *testing.T) {
	build := func(t *testing.T, levels int) string {
		dir := t.TempDir()
		for i := 0; i < levels; i++ {
			writeConfig(t, filepath.Join(dir, fmt.Sprintf("%d.yaml", i)), fmt.Sprintf("include: %d.yaml", i+1))
		}
		writeConfig(t, filepath.Join(dir, fmt.Sprintf("%d.yaml", levels)), "window:", "  title: deepest")
		return filepath.Join(dir, "0.yaml")
	}

	res, err := LoadFromPath(build(t, MaxIncludeDepth))
	if err != nil {
		t.Fatalf("load at max depth: %v", err)
	}
	if res.Config.Window.Title != "deepest" {
		t.Fatalf("expected title from deepest include, got %q", res.Config.Window.Title)
	}

	_, err = LoadFromPath(build(t, MaxIncludeDepth+1))
	if err == nil || !strings.Contains(err.Error(), "include depth") {
		t.Fatalf("expected depth error, got %v", err)
	}
}

func TestExplain_Sources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path,
		"display: \":1\"",
		"surface:",
		"  env:",
		"    RENDER_MODE: gpu",
	)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "display")
	if err != nil {
		t.Fatalf("explain display: %v", err)
	}
	if val != ":1" || src.Kind != SourceFile || src.Line != 1 {
		t.Fatalf("unexpected display explain: %#v %#v", val, src)
	}

	val, src, err = Explain(res, "surface.env.RENDER_MODE")
	if err != nil {
		t.Fatalf("explain env: %v", err)
	}
	if val != "gpu" || src.Kind != SourceFile {
		t.Fatalf("unexpected env explain: %#v %#v", val, src)
	}

	val, src, err = Explain(res, "health.sample_period")
	if err != nil {
		t.Fatalf("explain sample_period: %v", err)
	}
	if val != 15*time.Second || src.Kind != SourceDefault {
		t.Fatalf("unexpected sample_period explain: %#v %#v", val, src)
	}

	if _, _, err := Explain(res, "window.nope"); err == nil {
		t.Fatalf("expected unknown path error")
	}
	if _, _, err := Explain(res, "surface.env.MISSING"); err == nil {
		t.Fatalf("expected unknown env entry error")
	}
}

func TestSaveTo_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Window.ZoomLevel = 2
	cfg.Modes.TestRunner = true
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Config.Equal(cfg) {
		t.Fatalf("expected saved config to load back unchanged")
	}
}

func TestDefaultConfigPath_EnvOverride(t *testing.T) {
	t.Setenv(ConfigPathEnv, "/tmp/winhost-test.yaml")
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if path != "/tmp/winhost-test.yaml" {
		t.Fatalf("expected env override, got %q", path)
	}
}
