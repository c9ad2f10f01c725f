// Package controller is the single entry point for user requests: it maps
// API operations onto the rfkill registry, the audio device and the
// platform lifecycle, and persists the user's choices.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/micro-nova/periphd/internal/config"
	"github.com/micro-nova/periphd/internal/models"
	"github.com/micro-nova/periphd/internal/rfkill"
)

// Radio is a radio driver as seen by the controller.
type Radio interface {
	Name() string
	Status() models.RadioStatus
}

// Audio is the audio device as seen by the controller.
type Audio interface {
	Status() models.JackStatus
	SetJackFunction(f models.Function) (bool, error)
	SetSpeakerFunction(f models.Function) (bool, error)
}

// Lifecycle is the platform as seen by the controller.
type Lifecycle interface {
	Suspend(ctx context.Context) error
	Resume(ctx context.Context) error
	Suspended() bool
}

// Options wires a Controller. Audio and Platform may be nil.
type Options struct {
	Registry *rfkill.Registry
	Radios   []Radio
	Audio    Audio
	Platform Lifecycle
	Store    config.Store
	Info     models.Info

	// RestoreRadios re-applies saved radio block states in Restore.
	RestoreRadios bool
}

// Controller serializes user mutations and keeps the saved state current.
type Controller struct {
	mu    sync.Mutex
	opts  Options
	saved models.SavedState
}

// New loads the saved state from the store.
func New(opts Options) (*Controller, error) {
	if opts.Registry == nil {
		return nil, errors.New("controller: registry required")
	}
	if opts.Store == nil {
		opts.Store = config.NewMemStore()
	}
	saved, err := opts.Store.Load()
	if err != nil {
		return nil, err
	}
	return &Controller{opts: opts, saved: saved.DeepCopy()}, nil
}

// Restore re-applies the saved audio functions and, if enabled, the saved
// radio block states. Call after the platform has probed its devices.
func (c *Controller) Restore(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a := c.opts.Audio; a != nil {
		if _, err := a.SetJackFunction(c.saved.JackFunction); err != nil {
			slog.Warn("controller: restore jack function", "err", err)
		}
		if _, err := a.SetSpeakerFunction(c.saved.SpeakerFunction); err != nil {
			slog.Warn("controller: restore speaker function", "err", err)
		}
	}
	if !c.opts.RestoreRadios {
		return
	}
	for name, blocked := range c.saved.Radios {
		if blocked {
			continue
		}
		if _, err := c.opts.Registry.SetBlocked(name, false); err != nil {
			slog.Warn("controller: restore radio", "radio", name, "err", err)
			continue
		}
		slog.Info("controller: radio restored", "radio", name)
	}
}

// save persists the current saved state. Caller holds c.mu.
func (c *Controller) save() {
	st := c.saved.DeepCopy()
	if err := c.opts.Store.Save(&st); err != nil {
		slog.Warn("controller: failed to save state", "err", err)
	}
}

// Status returns the full system status.
func (c *Controller) Status() models.SystemStatus {
	st := models.SystemStatus{Radios: c.Radios()}
	if c.opts.Platform != nil {
		st.Suspended = c.opts.Platform.Suspended()
	}
	if c.opts.Audio != nil {
		js := c.opts.Audio.Status()
		st.Jack = &js
	}
	return st
}

// GetInfo returns daemon identification.
func (c *Controller) GetInfo() models.Info { return c.opts.Info }
