// Package api implements the Inkwell REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/store"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type storeKey struct{}

// projectCtx resolves the {project} URL parameter to its store.
func (h *Handler) projectCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.reg.Get(chi.URLParam(r, "project"))
		if err != nil {
			writeError(w, r, "open project", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), storeKey{}, s)))
	})
}

func storeFrom(r *http.Request) *store.Store {
	return r.Context().Value(storeKey{}).(*store.Store)
}
