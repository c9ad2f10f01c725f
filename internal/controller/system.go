package controller

import (
	"context"
	"log/slog"

	"github.com/micro-nova/periphd/internal/models"
)

// Suspend suspends all devices, as before a system sleep.
func (c *Controller) Suspend(ctx context.Context) (models.SystemStatus, *models.AppError) {
	if c.opts.Platform == nil {
		return models.SystemStatus{}, models.ErrUnavailable("platform not configured")
	}
	if err := c.opts.Platform.Suspend(ctx); err != nil {
		slog.Warn("controller: suspend reported errors", "err", err)
	}
	return c.Status(), nil
}

// Resume resumes all devices.
func (c *Controller) Resume(ctx context.Context) (models.SystemStatus, *models.AppError) {
	if c.opts.Platform == nil {
		return models.SystemStatus{}, models.ErrUnavailable("platform not configured")
	}
	if err := c.opts.Platform.Resume(ctx); err != nil {
		slog.Warn("controller: resume reported errors", "err", err)
	}
	return c.Status(), nil
}

// Flush writes pending saved state.
func (c *Controller) Flush() error { return c.opts.Store.Flush() }
