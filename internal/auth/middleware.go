package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/micro-nova/periphd/internal/models"
)

const (
	apiKeyHeader     = "X-Api-Key"
	apiKeyQueryParam = "api-key"
)

type clientKey struct{}

// ClientFrom returns the authenticated client, if any. Requests served in
// open mode carry none.
func ClientFrom(ctx context.Context) (Client, bool) {
	c, ok := ctx.Value(clientKey{}).(Client)
	return c, ok
}

func readOnlyMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// authenticate resolves the caller from a bearer token (when a verifier
// is set) or an API key.
func (s *Service) authenticate(r *http.Request) (Client, *models.AppError) {
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		v := s.verifier()
		if v == nil {
			return Client{}, models.ErrUnauthorized("bearer tokens are not enabled")
		}
		client, err := v.Verify(strings.TrimSpace(bearer))
		if err != nil {
			slog.Debug("auth: token rejected", "err", err)
			return Client{}, models.ErrUnauthorized("invalid token")
		}
		return client, nil
	}
	key := r.Header.Get(apiKeyHeader)
	if key == "" {
		key = r.URL.Query().Get(apiKeyQueryParam)
	}
	client, ok := s.Lookup(key)
	if !ok {
		return Client{}, models.ErrUnauthorized("missing or invalid api key")
	}
	return client, nil
}

// Middleware authenticates requests by bearer token, the X-Api-Key header
// or the api-key query parameter (EventSource cannot set headers).
// Read-only clients are refused on mutating methods. In open mode
// everything passes.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}
		client, appErr := s.authenticate(r)
		if appErr != nil {
			deny(w, appErr)
			return
		}
		if client.ReadOnly && !readOnlyMethod(r.Method) {
			slog.Warn("auth: read-only client attempted a mutation", "client", client.Name, "method", r.Method, "path", r.URL.Path)
			deny(w, models.ErrForbidden(client.Name+" is read-only"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientKey{}, client)))
	})
}

func deny(w http.ResponseWriter, appErr *models.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(appErr)
}
