package api

import (
	"log/slog"
	"net/http"
)

func (h *Handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.GetInfo())
}

// suspend runs the platform suspend path (radio powered down, detection
// masked) without sleeping the system. Useful for testing and for boards
// without logind.
func (h *Handlers) suspend(w http.ResponseWriter, r *http.Request) {
	slog.Info("api: suspend requested", "client", clientName(r))
	st, appErr := h.ctrl.Suspend(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) resume(w http.ResponseWriter, r *http.Request) {
	slog.Info("api: resume requested", "client", clientName(r))
	st, appErr := h.ctrl.Resume(r.Context())
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
