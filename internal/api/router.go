package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/store"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(reg *store.Registry, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(reg)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)

	r.Route("/projects/{project}", func(r chi.Router) {
		r.Use(h.projectCtx)

		r.Get("/", h.OpenProject)
		r.Get("/tree", h.ListTree)

		r.Post("/folders", h.CreateFolder)
		r.Patch("/folders/{id}", h.UpdateFolder)
		r.Delete("/folders/{id}", h.DeleteFolder)

		r.Post("/documents", h.CreateDocument)
		r.Get("/documents/{id}", h.LoadDocument)
		r.Put("/documents/{id}", h.SaveDocument)
		r.Patch("/documents/{id}", h.UpdateDocument)
		r.Delete("/documents/{id}", h.DeleteDocument)
		r.Post("/documents/{id}/snapshots", h.CreateSnapshot)
		r.Get("/documents/{id}/snapshots", h.ListSnapshots)
		r.Post("/snapshots/{sid}/restore", h.RestoreSnapshot)

		r.Post("/characters", h.CreateCharacter)
		r.Get("/characters/{id}", h.LoadCharacter)
		r.Put("/characters/{id}", h.SaveCharacter)
		r.Patch("/characters/{id}", h.RenameCharacter)
		r.Delete("/characters/{id}", h.DeleteCharacter)
		r.Post("/characters/{id}/image", h.ImportCharacterImage)
		r.Get("/characters/{id}/image/{filename}", h.ServeCharacterImage)

		r.Get("/search", h.Search)

		r.Post("/backups", h.CreateBackup)
		r.Get("/backups", h.ListBackups)
		r.Post("/reconcile", h.Reconcile)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
