package api

import (
	"net/http"

	"github.com/micro-nova/periphd/internal/models"
)

func (h *Handlers) getJack(w http.ResponseWriter, r *http.Request) {
	st, appErr := h.ctrl.Jack()
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) setJack(w http.ResponseWriter, r *http.Request) {
	var upd models.JackUpdate
	if appErr := decodeBody(r, &upd); appErr != nil {
		writeError(w, appErr)
		return
	}
	st, appErr := h.ctrl.SetJack(r.Context(), upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
