package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/micro-nova/periphd/internal/models"
)

const (
	stateFileName = "state.json"
	debounceDelay = 500 * time.Millisecond
)

// JSONStore keeps SavedState in state.json. Saves are debounced; every
// write is fsynced and renamed into place, so a power cut leaves either
// the old or the new file.
type JSONStore struct {
	mu      sync.Mutex
	path    string
	timer   *time.Timer
	pending *models.SavedState
}

// NewJSONStore creates a store for state.json in dir.
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{path: filepath.Join(dir, stateFileName)}
}

func (s *JSONStore) Path() string { return s.path }

// Load reads the state from disk. A missing file yields the default
// state; an unparsable one is moved aside to state.json.corrupt and the
// default state is returned.
func (s *JSONStore) Load() (*models.SavedState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		def := models.DefaultSavedState()
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read state: %w", err)
	}

	var state models.SavedState
	if err := json.Unmarshal(data, &state); err != nil {
		aside := s.path + ".corrupt"
		slog.Warn("config: corrupt state file, using defaults", "path", s.path, "moved_to", aside, "err", err)
		if err := os.Rename(s.path, aside); err != nil {
			slog.Warn("config: could not move corrupt state file", "err", err)
		}
		def := models.DefaultSavedState()
		return &def, nil
	}
	migrateState(&state)
	return &state, nil
}

// Save schedules a write after debounceDelay of quiet.
func (s *JSONStore) Save(state *models.SavedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := state.DeepCopy()
	s.pending = &cp
	if s.timer == nil {
		s.timer = time.AfterFunc(debounceDelay, s.writePending)
		return nil
	}
	s.timer.Reset(debounceDelay)
	return nil
}

func (s *JSONStore) writePending() {
	if err := s.Flush(); err != nil {
		slog.Error("config: failed to write state", "path", s.path, "err", err)
	}
}

// Flush writes any pending state now.
func (s *JSONStore) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	st := s.pending
	s.pending = nil
	s.mu.Unlock()
	if st == nil {
		return nil
	}
	st.Version = models.StateVersion
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes data to a temp file in the target directory,
// syncs it and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
