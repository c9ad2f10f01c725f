// Package api implements the HTTP control API for periphd.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/micro-nova/periphd/internal/auth"
	"github.com/micro-nova/periphd/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
}

// Controller is the interface the handlers use to read and change state.
type Controller interface {
	Status() models.SystemStatus
	GetInfo() models.Info
	Radios() []models.RadioStatus
	GetRadio(name string) (*models.RadioStatus, *models.AppError)
	SetRadio(ctx context.Context, name string, upd models.RadioUpdate) (*models.RadioStatus, *models.AppError)
	SetAllRadios(ctx context.Context, upd models.RadioUpdate) ([]models.RadioStatus, *models.AppError)
	Jack() (*models.JackStatus, *models.AppError)
	SetJack(ctx context.Context, upd models.JackUpdate) (*models.JackStatus, *models.AppError)
	Suspend(ctx context.Context) (models.SystemStatus, *models.AppError)
	Resume(ctx context.Context) (models.SystemStatus, *models.AppError)
}

// EventBus delivers state-change events; no kinds means every kind.
type EventBus interface {
	Subscribe(id string, kinds ...models.EventKind) <-chan models.Event
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, v any) *models.AppError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return models.ErrBadRequest("invalid JSON: " + err.Error())
	}
	return nil
}

// clientName names the authenticated caller for logs.
func clientName(r *http.Request) string {
	if c, ok := auth.ClientFrom(r.Context()); ok {
		return c.Name
	}
	return "anonymous"
}
