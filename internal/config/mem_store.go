package config

import (
	"sync"

	"github.com/micro-nova/periphd/internal/models"
)

// MemStore is an in-memory Store for tests and --mock runs.
type MemStore struct {
	mu    sync.Mutex
	state *models.SavedState
	saves int
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Load() (*models.SavedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		def := models.DefaultSavedState()
		return &def, nil
	}
	cp := m.state.DeepCopy()
	return &cp, nil
}

func (m *MemStore) Save(state *models.SavedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := state.DeepCopy()
	m.state = &cp
	m.saves++
	return nil
}

func (m *MemStore) Path() string { return ":memory:" }
func (m *MemStore) Flush() error { return nil }

// Saves returns how many times Save was called.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
