package config

import "github.com/micro-nova/periphd/internal/models"

// Store persists user state (radio blocks, audio functions).
type Store interface {
	// Load returns the saved state, or DefaultSavedState if none exists.
	Load() (*models.SavedState, error)

	// Save persists the state. Implementations may debounce rapid saves.
	Save(state *models.SavedState) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending state.
	Flush() error
}
