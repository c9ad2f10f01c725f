package controller

import (
	"context"

	"github.com/micro-nova/periphd/internal/models"
)

// Jack returns the audio routing status.
func (c *Controller) Jack() (*models.JackStatus, *models.AppError) {
	if c.opts.Audio == nil {
		return nil, models.ErrUnavailable("audio device not configured")
	}
	st := c.opts.Audio.Status()
	return &st, nil
}

// SetJack updates the Jack and/or Speaker function.
func (c *Controller) SetJack(ctx context.Context, upd models.JackUpdate) (*models.JackStatus, *models.AppError) {
	if c.opts.Audio == nil {
		return nil, models.ErrUnavailable("audio device not configured")
	}
	if upd.JackFunction == nil && upd.SpeakerFunction == nil {
		return nil, models.ErrBadRequest("nothing to update")
	}
	if upd.JackFunction != nil && !upd.JackFunction.Valid() {
		return nil, models.ErrInvalidField("jack_function", "jack_function must be On or Off")
	}
	if upd.SpeakerFunction != nil && !upd.SpeakerFunction.Valid() {
		return nil, models.ErrInvalidField("speaker_function", "speaker_function must be On or Off")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f := upd.JackFunction; f != nil {
		if _, err := c.opts.Audio.SetJackFunction(*f); err != nil {
			return nil, models.ErrInternal(err.Error())
		}
		c.saved.JackFunction = *f
	}
	if f := upd.SpeakerFunction; f != nil {
		if _, err := c.opts.Audio.SetSpeakerFunction(*f); err != nil {
			return nil, models.ErrInternal(err.Error())
		}
		c.saved.SpeakerFunction = *f
	}
	c.save()
	st := c.opts.Audio.Status()
	return &st, nil
}
