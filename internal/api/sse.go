package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/micro-nova/periphd/internal/models"
)

const sseKeepAlive = 15 * time.Second

// parseKinds reads the optional comma-separated kinds filter.
func parseKinds(raw string) ([]models.EventKind, *models.AppError) {
	if raw == "" {
		return nil, nil
	}
	var kinds []models.EventKind
	for _, k := range strings.Split(raw, ",") {
		switch kind := models.EventKind(strings.TrimSpace(k)); kind {
		case models.EventRadio, models.EventJack, models.EventSystem:
			kinds = append(kinds, kind)
		default:
			return nil, models.ErrInvalidField("kinds", fmt.Sprintf("unknown event kind %q", k))
		}
	}
	return kinds, nil
}

// sseEvents streams bus events, optionally filtered by ?kinds=radio,jack.
// The first message is always the full status; idle streams get a comment
// line every sseKeepAlive so proxies keep the connection.
func (h *Handlers) sseEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	kinds, appErr := parseKinds(r.URL.Query().Get("kinds"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id := uuid.New().String()
	ch := h.events.Subscribe(id, kinds...)
	defer h.events.Unsubscribe(id)

	writeSSE(w, flusher, "status", h.ctrl.Status())

	ping := time.NewTicker(sseKeepAlive)
	defer ping.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, flusher, string(ev.Kind), ev)
		case <-ping.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
