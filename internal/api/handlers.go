package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	reg *store.Registry
}

// NewHandler creates a new Handler.
func NewHandler(reg *store.Registry) *Handler {
	return &Handler{reg: reg}
}

// ListProjects handles GET /api/projects.
//
//	@Summary		List projects in the workspace
//	@Tags			projects
//	@Produce		json
//	@Success		200	{object}	map[string][]string
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	names, err := h.reg.List()
	if err != nil {
		writeError(w, r, "list projects", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": names})
}

// CreateProject handles POST /api/projects.
//
//	@Summary		Create a project
//	@Tags			projects
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateProjectRequest	true	"Project to create"
//	@Success		201		{object}	ProjectResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects [post]
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.reg.Create(req.Name)
	if err != nil {
		writeError(w, r, "create project", err)
		return
	}
	writeJSON(w, http.StatusCreated, ProjectResponse{Name: s.Name(), Path: s.Root()})
}

// OpenProject handles GET /api/projects/{project}.
func (h *Handler) OpenProject(w http.ResponseWriter, r *http.Request) {
	s := storeFrom(r)
	writeJSON(w, http.StatusOK, ProjectResponse{Name: s.Name(), Path: s.Root()})
}

// ListTree handles GET /api/projects/{project}/tree.
//
//	@Summary		List folders, documents and characters
//	@Tags			tree
//	@Produce		json
//	@Param			project	path		string	true	"Project name"
//	@Success		200		{object}	models.Tree
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{project}/tree [get]
func (h *Handler) ListTree(w http.ResponseWriter, r *http.Request) {
	tr, err := storeFrom(r).ListTree(r.Context())
	if err != nil {
		writeError(w, r, "list tree", err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// CreateFolder handles POST /api/projects/{project}/folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := storeFrom(r).CreateFolder(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeError(w, r, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// UpdateFolder handles PATCH /api/projects/{project}/folders/{id}. It
// renames when name is given and moves when parent_id is present.
func (h *Handler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	parentID, move, err := optionalID(req.ParentID, "parent_id")
	if err != nil {
		writeError(w, r, "update folder", err)
		return
	}
	if req.Name == nil && !move {
		writeJSON(w, http.StatusBadRequest, errorBody("name or parent_id is required"))
		return
	}

	s, id := storeFrom(r), chi.URLParam(r, "id")
	if req.Name != nil {
		if err := s.RenameFolder(r.Context(), id, *req.Name); err != nil {
			writeError(w, r, "rename folder", err)
			return
		}
	}
	if move {
		if err := s.MoveFolder(r.Context(), id, parentID); err != nil {
			writeError(w, r, "move folder", err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteFolder handles DELETE /api/projects/{project}/folders/{id}.
//
//	@Summary		Delete a folder and everything below it
//	@Tags			folders
//	@Produce		json
//	@Param			project	path		string	true	"Project name"
//	@Param			id		path		string	true	"Folder id"
//	@Success		200		{object}	tree.Report
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{project}/folders/{id} [delete]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	rep, err := storeFrom(r).DeleteFolder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "delete folder", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Search handles GET /api/projects/{project}/search.
//
//	@Summary		Full-text search across document bodies
//	@Tags			search
//	@Produce		json
//	@Param			project	path		string	true	"Project name"
//	@Param			q		query		string	true	"Search query"
//	@Success		200		{object}	map[string][]models.SearchHit
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{project}/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	hits, err := storeFrom(r).Search(r.Context(), q)
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// CreateBackup handles POST /api/projects/{project}/backups.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	info, err := storeFrom(r).Backup(r.Context())
	if err != nil {
		writeError(w, r, "backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ListBackups handles GET /api/projects/{project}/backups.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	list, err := storeFrom(r).ListBackups()
	if err != nil {
		writeError(w, r, "list backups", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": list})
}

// Reconcile handles POST /api/projects/{project}/reconcile.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rep, err := storeFrom(r).Reconcile(r.Context())
	if err != nil {
		writeError(w, r, "reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
