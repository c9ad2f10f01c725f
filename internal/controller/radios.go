package controller

import (
	"context"
	"errors"
	"sort"

	"github.com/micro-nova/periphd/internal/models"
	"github.com/micro-nova/periphd/internal/rfkill"
)

// Radios returns every radio's status, sorted by name.
func (c *Controller) Radios() []models.RadioStatus {
	out := make([]models.RadioStatus, 0, len(c.opts.Radios))
	for _, r := range c.opts.Radios {
		out = append(out, r.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetRadio returns one radio's status.
func (c *Controller) GetRadio(name string) (*models.RadioStatus, *models.AppError) {
	for _, r := range c.opts.Radios {
		if r.Name() == name {
			st := r.Status()
			return &st, nil
		}
	}
	return nil, models.ErrNotFound("radio " + name + " not found")
}

// SetRadio blocks or unblocks one radio.
func (c *Controller) SetRadio(ctx context.Context, name string, upd models.RadioUpdate) (*models.RadioStatus, *models.AppError) {
	if upd.Blocked == nil {
		return nil, models.ErrInvalidField("blocked", "blocked is required")
	}
	if _, appErr := c.GetRadio(name); appErr != nil {
		return nil, appErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if appErr := c.setBlocked(name, *upd.Blocked); appErr != nil {
		return nil, appErr
	}
	c.save()
	return c.GetRadio(name)
}

// SetAllRadios blocks or unblocks every registered radio.
func (c *Controller) SetAllRadios(ctx context.Context, upd models.RadioUpdate) ([]models.RadioStatus, *models.AppError) {
	if upd.Blocked == nil {
		return nil, models.ErrInvalidField("blocked", "blocked is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, st := range c.opts.Registry.List() {
		if appErr := c.setBlocked(st.Name, *upd.Blocked); appErr != nil {
			return nil, appErr
		}
	}
	c.save()
	return c.Radios(), nil
}

// setBlocked routes a request through the registry. Caller holds c.mu.
func (c *Controller) setBlocked(name string, blocked bool) *models.AppError {
	if _, err := c.opts.Registry.SetBlocked(name, blocked); err != nil {
		switch {
		case errors.Is(err, rfkill.ErrNotFound):
			return models.ErrUnavailable("radio " + name + " is not attached")
		case errors.Is(err, rfkill.ErrDestroyed):
			return models.ErrConflict("radio " + name + " is being removed")
		default:
			return models.ErrInternal(err.Error())
		}
	}
	if c.saved.Radios == nil {
		c.saved.Radios = map[string]bool{}
	}
	c.saved.Radios[name] = blocked
	return nil
}
