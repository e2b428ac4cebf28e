package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CreateDocument handles POST /api/projects/{project}/documents.
//
//	@Summary		Create a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			project	path		string				true	"Project name"
//	@Param			body	body		CreateEntryRequest	true	"Title and folder"
//	@Success		201		{object}	models.Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{project}/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := storeFrom(r).CreateDocument(r.Context(), req.Title, req.FolderID)
	if err != nil {
		writeError(w, r, "create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// LoadDocument handles GET /api/projects/{project}/documents/{id}.
func (h *Handler) LoadDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	md, err := storeFrom(r).LoadDocument(r.Context(), id)
	if err != nil {
		writeError(w, r, "load document", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{ID: id, Markdown: md})
}

// SaveDocument handles PUT /api/projects/{project}/documents/{id}.
//
//	@Summary		Replace a document body
//	@Tags			documents
//	@Accept			json
//	@Param			project	path	string				true	"Project name"
//	@Param			id		path	string				true	"Document id"
//	@Param			body	body	SaveDocumentRequest	true	"New markdown"
//	@Success		204		"Saved"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{project}/documents/{id} [put]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	var req SaveDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := storeFrom(r).SaveDocument(r.Context(), chi.URLParam(r, "id"), req.Markdown); err != nil {
		writeError(w, r, "save document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateDocument handles PATCH /api/projects/{project}/documents/{id}.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	folderID, move, err := optionalID(req.FolderID, "folder_id")
	if err != nil {
		writeError(w, r, "update document", err)
		return
	}
	if req.Title == nil && !move {
		writeJSON(w, http.StatusBadRequest, errorBody("title or folder_id is required"))
		return
	}

	s, id := storeFrom(r), chi.URLParam(r, "id")
	if req.Title != nil {
		if err := s.RenameDocument(r.Context(), id, *req.Title); err != nil {
			writeError(w, r, "rename document", err)
			return
		}
	}
	if move {
		if err := s.MoveDocument(r.Context(), id, folderID); err != nil {
			writeError(w, r, "move document", err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDocument handles DELETE /api/projects/{project}/documents/{id}.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := storeFrom(r).DeleteDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSnapshot handles POST /api/projects/{project}/documents/{id}/snapshots.
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := storeFrom(r).CreateSnapshot(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		writeError(w, r, "create snapshot", err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ListSnapshots handles GET /api/projects/{project}/documents/{id}/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := storeFrom(r).ListSnapshots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "list snapshots", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps})
}

// RestoreSnapshot handles POST /api/projects/{project}/snapshots/{sid}/restore.
func (h *Handler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := storeFrom(r).RestoreSnapshot(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, r, "restore snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{ID: snap.DocumentID, Markdown: snap.Markdown})
}
