package windowstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
)

const recordVersion = 1

// Record is the on-disk form of a window state.
type Record struct {
	Version int         `json:"version"`
	Key     string      `json:"key"`
	SavedAt time.Time   `json:"saved_at"`
	State   WindowState `json:"state"`
}

// Store persists one record per window key under a directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

func validateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("window key is required")
	}
	if strings.Contains(key, string(os.PathSeparator)) || key != filepath.Base(key) {
		return fmt.Errorf("invalid window key %q", key)
	}
	if key == "." || key == ".." || strings.Contains(key, "..") {
		return fmt.Errorf("invalid window key %q", key)
	}
	return nil
}

func (s *Store) path(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Save writes state for key. The file is replaced atomically so a crash
// never leaves a truncated record behind.
func (s *Store) Save(key string, state WindowState) error {
	if err := state.Validate(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(Record{
		Version: recordVersion,
		Key:     key,
		SavedAt: s.now().UTC(),
		State:   state,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode window state: %w", err)
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("create pending state file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write window state %q: %w", key, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace window state %q: %w", key, err)
	}
	return nil
}

// Load reads the state recorded for key. ok is false when nothing was saved.
func (s *Store) Load(key string) (state WindowState, ok bool, err error) {
	path, err := s.path(key)
	if err != nil {
		return WindowState{}, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return WindowState{}, false, nil
		}
		return WindowState{}, false, fmt.Errorf("failed to read window state %q: %w", key, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return WindowState{}, false, fmt.Errorf("failed to parse window state %q: %w", key, err)
	}
	if rec.Version > recordVersion {
		return WindowState{}, false, fmt.Errorf("window state %q has unsupported version %d", key, rec.Version)
	}
	return rec.State, true, nil
}

// Delete removes the record for key. Deleting a missing record is not an error.
func (s *Store) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete window state %q: %w", key, err)
	}
	return nil
}

// List returns the keys with a saved record, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}
