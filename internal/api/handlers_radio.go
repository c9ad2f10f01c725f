package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/micro-nova/periphd/internal/models"
)

func (h *Handlers) getRadios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"radios": h.ctrl.Radios()})
}

func (h *Handlers) setRadios(w http.ResponseWriter, r *http.Request) {
	var upd models.RadioUpdate
	if appErr := decodeBody(r, &upd); appErr != nil {
		writeError(w, appErr)
		return
	}
	if upd.Blocked != nil {
		slog.Info("api: set all radios", "blocked", *upd.Blocked, "client", clientName(r))
	}
	radios, appErr := h.ctrl.SetAllRadios(r.Context(), upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"radios": radios})
}

func (h *Handlers) getRadio(w http.ResponseWriter, r *http.Request) {
	st, appErr := h.ctrl.GetRadio(chi.URLParam(r, "name"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) setRadio(w http.ResponseWriter, r *http.Request) {
	var upd models.RadioUpdate
	if appErr := decodeBody(r, &upd); appErr != nil {
		writeError(w, appErr)
		return
	}
	name := chi.URLParam(r, "name")
	if upd.Blocked != nil {
		slog.Info("api: set radio", "radio", name, "blocked", *upd.Blocked, "client", clientName(r))
	}
	st, appErr := h.ctrl.SetRadio(r.Context(), name, upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
