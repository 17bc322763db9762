package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

type Source struct {
	Kind   SourceKind
	Name   string // for default
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // YAML-path -> last writer source (file only)
	Files   []string          // all loaded files, in load order
}

// ConfigPathEnv overrides the default configuration path.
const ConfigPathEnv = "WINHOST_CONFIG"

// MaxIncludeDepth bounds how deeply include chains may nest below the root
// config file.
const MaxIncludeDepth = 4

// hostKeys are top-level settings that belong to the host process as a whole.
// Only the root config file may set them; included fragments carry window
// settings (window, fullscreen, health, surface, dialog, modes).
var hostKeys = map[string]struct{}{
	"log_level": {},
	"backend":   {},
	"display":   {},
	"state":     {},
	"metrics":   {},
}

// ErrHostKeyInInclude is returned when an included fragment sets a host-wide
// key.
var ErrHostKeyInInclude = errors.New("host-wide setting is only allowed in the root config")

func DefaultConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnv)); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "winhost", "config.yaml"), nil
}

// Load reads the merged configuration from the standard location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads config and returns file-level sources for introspection.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and its includes. A missing file yields the
// defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	l := &loader{
		visited: make(map[string]struct{}),
		sources: make(map[string]Source),
	}

	var raw RawConfig
	switch _, err := os.Stat(path); {
	case err == nil:
		if raw, err = l.load(path); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, l.withSource(err)
	}
	return &LoadResult{Config: cfg, Sources: l.sources, Files: l.files}, nil
}

// loader walks one config file and its includes. Includes are merged first
// in the order listed, then the including file on top.
type loader struct {
	root    string
	visited map[string]struct{}
	chain   []string
	sources map[string]Source
	files   []string
}

func (l *loader) load(path string) (RawConfig, error) {
	file, err := canonicalPath(path)
	if err != nil {
		return RawConfig{}, err
	}
	if slices.Contains(l.chain, file) {
		return RawConfig{}, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(l.chain, " -> "), file)
	}
	if _, dup := l.visited[file]; dup {
		return RawConfig{}, nil
	}
	if len(l.chain) > MaxIncludeDepth {
		return RawConfig{}, fmt.Errorf("%s: include depth exceeds %d", file, MaxIncludeDepth)
	}
	l.visited[file] = struct{}{}
	if l.root == "" {
		l.root = file
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return RawConfig{}, fmt.Errorf("%s: read: %w", file, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RawConfig{}, fmt.Errorf("%s: parse yaml: %w", file, err)
	}
	var own RawConfig
	if err := decodeStrict(data, &own); err != nil {
		return RawConfig{}, fmt.Errorf("%s: %w", file, err)
	}

	top := topMapping(&doc)
	if file != l.root {
		if err := l.checkFragment(file, top); err != nil {
			return RawConfig{}, err
		}
	}

	l.chain = append(l.chain, file)
	defer func() { l.chain = l.chain[:len(l.chain)-1] }()

	var merged RawConfig
	for _, ref := range includeRefs(top, file) {
		targets, err := expandInclude(file, ref.Value)
		if err != nil {
			return RawConfig{}, fmt.Errorf("%s:%d:%d: include %q: %w", ref.File, ref.Line, ref.Column, ref.Value, err)
		}
		for _, target := range targets {
			inc, err := l.load(target)
			if err != nil {
				return RawConfig{}, err
			}
			merged = merged.merge(inc)
		}
	}

	recordSources(top, file, "", l.sources)
	l.files = append(l.files, file)
	return merged.merge(own), nil
}

// checkFragment rejects host-wide keys in an included file.
func (l *loader) checkFragment(file string, top *yaml.Node) error {
	if top == nil {
		return nil
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key := top.Content[i]
		if _, host := hostKeys[key.Value]; host {
			return fmt.Errorf("%s:%d:%d: %q: %w (%s)", file, key.Line, key.Column, key.Value, ErrHostKeyInInclude, l.root)
		}
	}
	return nil
}

// withSource annotates a validation error with the file position that last
// set the offending key.
func (l *loader) withSource(err error) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := l.sources[verr.Path]; ok {
		verr.Source = src
	}
	return err
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

// expandInclude resolves an include entry relative to the including file. A
// directory expands to its *.yaml and *.yml files in lexical order.
func expandInclude(from, entry string) ([]string, error) {
	if entry == "" {
		return nil, fmt.Errorf("path is empty")
	}
	path, err := expandHome(entry)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(from), path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".yaml", ".yml":
			out = append(out, filepath.Join(path, ent.Name()))
		}
	}
	// os.ReadDir already sorts by name.
	return out, nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/")), nil
}

func topMapping(doc *yaml.Node) *yaml.Node {
	node := doc
	if node != nil && node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	return node
}

func position(node *yaml.Node, file string) Source {
	return Source{Kind: SourceFile, File: file, Line: node.Line, Column: node.Column}
}

// recordSources stores the position of every mapping key under prefix.
// Sequences are recorded as a whole.
func recordSources(node *yaml.Node, file, prefix string, out map[string]Source) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if prefix != "" {
			key = prefix + "." + key
		}
		out[key] = position(val, file)
		recordSources(val, file, key, out)
	}
}

type includeRef struct {
	Value string
	Source
}

// includeRefs returns the include entries of a top-level mapping with their
// positions. Shape errors are already reported by the strict decode.
func includeRefs(top *yaml.Node, file string) []includeRef {
	if top == nil {
		return nil
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != "include" {
			continue
		}
		val := top.Content[i+1]
		items := []*yaml.Node{val}
		if val.Kind == yaml.SequenceNode {
			items = val.Content
		}
		var refs []includeRef
		for _, item := range items {
			if item.Kind == yaml.ScalarNode {
				refs = append(refs, includeRef{Value: item.Value, Source: position(item, file)})
			}
		}
		return refs
	}
	return nil
}
