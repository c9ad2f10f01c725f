package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the HTTP router. authMW guards every /api route; nil
// leaves the API open.
func NewRouter(ctrl Controller, bus EventBus, authMW func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{ctrl: ctrl, events: bus}

	r.Group(func(r chi.Router) {
		if authMW != nil {
			r.Use(authMW)
		}

		r.Get("/api", h.getStatus)
		r.Get("/api/", h.getStatus)
		r.Get("/api/info", h.getInfo)

		r.Get("/api/radio", h.getRadios)
		r.Patch("/api/radio", h.setRadios)
		r.Get("/api/radio/{name}", h.getRadio)
		r.Patch("/api/radio/{name}", h.setRadio)

		r.Get("/api/jack", h.getJack)
		r.Patch("/api/jack", h.setJack)

		r.Post("/api/system/suspend", h.suspend)
		r.Post("/api/system/resume", h.resume)

		r.Get("/api/subscribe", h.sseEvents)
	})

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Api-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
