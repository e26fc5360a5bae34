// Package settings persists the user's last-used LED state between runs.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Snapshot is the flat key-value settings record.
type Snapshot struct {
	LastColor       string `yaml:"last_color" json:"last_color"`
	LastBrightness  int    `yaml:"last_brightness" json:"last_brightness"`
	PowerState      bool   `yaml:"power_state" json:"power_state"`
	WindowGeometry  string `yaml:"window_geometry" json:"window_geometry"`
	AutoConnect     bool   `yaml:"auto_connect" json:"auto_connect"`
	LastDevice      string `yaml:"last_device" json:"last_device"`
	LastEffect      string `yaml:"last_effect" json:"last_effect"`
	LastEffectSpeed int    `yaml:"last_effect_speed" json:"last_effect_speed"`
	LastHSV         [3]int `yaml:"last_hsv,flow" json:"last_hsv"`
}

// Defaults returns the snapshot used when nothing has been saved yet.
func Defaults() Snapshot {
	return Snapshot{
		LastColor:       "#7e57c2",
		LastBrightness:  75,
		LastEffectSpeed: 50,
		LastHSV:         [3]int{180, 100, 100},
	}
}

// Store is a file-backed Snapshot. Safe for concurrent use.
type Store struct {
	path string

	mu   sync.Mutex
	snap Snapshot
}

// Open loads the snapshot at path, merging saved values over the defaults.
// A missing file yields the defaults. A file that cannot be read or parsed is
// logged and replaced by the defaults.
func Open(path string) *Store {
	s := &Store{path: path, snap: Defaults()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s
	case err != nil:
		slog.Warn("[settings] cannot read settings, using defaults", "path", path, "error", err)
		return s
	}

	snap := Defaults()
	if err := yaml.Unmarshal(data, &snap); err != nil {
		slog.Warn("[settings] corrupt settings file, resetting to defaults", "path", path, "error", err)
		return s
	}
	s.snap = snap
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Update applies fn to the settings in memory. Call Save to persist.
func (s *Store) Update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
}

// Reset restores the defaults in memory.
func (s *Store) Reset() {
	s.Update(func(snap *Snapshot) { *snap = Defaults() })
}

// Save writes the settings atomically (temp file + rename).
func (s *Store) Save() error {
	s.mu.Lock()
	data, err := yaml.Marshal(s.snap)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("settings: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("settings: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	return nil
}
