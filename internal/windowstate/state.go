// Package windowstate persists the launcher window's size and position
// between runs.
package windowstate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the stable name of the geometry file inside the config dir.
	FileName = "window.yaml"
	// Version tags the stored form. Files with any other version are ignored.
	Version = 1

	DefaultWidth  = 1289
	DefaultHeight = 709
	MinWidth      = 393
	MinHeight     = 667
)

// State is the persisted window geometry.
type State struct {
	Version    int  `yaml:"version"`
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	X          int  `yaml:"x"`
	Y          int  `yaml:"y"`
	Positioned bool `yaml:"positioned"`
	Maximized  bool `yaml:"maximized"`
}

// Default returns the geometry used on first launch: default size, no
// remembered position.
func Default() State {
	return State{Version: Version, Width: DefaultWidth, Height: DefaultHeight}
}

// Clamp enforces the minimum window size.
func (s State) Clamp() State {
	s.Version = Version
	if s.Width < MinWidth {
		s.Width = MinWidth
	}
	if s.Height < MinHeight {
		s.Height = MinHeight
	}
	return s
}

// Load reads geometry from path. Missing files and foreign versions yield
// the defaults with old set, meaning the caller should center the window.
func Load(path string) (state State, old bool, err error) {
	if path == "" {
		return State{}, false, fmt.Errorf("window state path required")
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), true, nil
	}
	if err != nil {
		return State{}, false, err
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return Default(), true, fmt.Errorf("parse %s: %w", path, err)
	}
	if state.Version != Version {
		return Default(), true, nil
	}
	return state.Clamp(), false, nil
}

// Write persists geometry to path, replacing the previous file atomically.
func Write(path string, state State) error {
	if path == "" {
		return fmt.Errorf("window state path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(state.Clamp())
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Store owns the geometry for one launcher run. It is loaded at startup,
// updated from the GUI and written back on exit.
type Store struct {
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	state  State
	old    bool
	source func() (State, error)
}

// Open loads the geometry file from dir. An unreadable file is logged and
// replaced by the defaults so the window always opens.
func Open(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	path := filepath.Join(dir, FileName)
	state, old, err := Load(path)
	if err != nil {
		logger.Warn("window state unreadable, using defaults", zap.String("path", path), zap.Error(err))
		state, old = Default(), true
	}
	return &Store{path: path, logger: logger, state: state, old: old}
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// IsOld reports whether no usable geometry was found on disk.
func (s *Store) IsOld() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.old
}

// State returns the current geometry.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update records geometry reported by the window.
func (s *Store) Update(state State) {
	s.mu.Lock()
	s.state = state.Clamp()
	s.old = false
	s.mu.Unlock()
}

// Track makes Save query fn for the live geometry first. A failing fn keeps
// the last recorded state.
func (s *Store) Track(fn func() (State, error)) {
	s.mu.Lock()
	s.source = fn
	s.mu.Unlock()
}

// Save writes the current geometry to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()
	if source != nil {
		live, err := source()
		if err != nil {
			s.logger.Debug("window bounds unavailable", zap.Error(err))
		} else {
			s.Update(live)
		}
	}
	return Write(s.path, s.State())
}
