package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/mirror"
)

const maxUploadBytes = 50 << 20 // 50 MB

// CreateCharacter handles POST /api/projects/{project}/characters.
func (h *Handler) CreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := storeFrom(r).CreateCharacter(r.Context(), req.Name, req.FolderID)
	if err != nil {
		writeError(w, r, "create character", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// LoadCharacter handles GET /api/projects/{project}/characters/{id}.
func (h *Handler) LoadCharacter(w http.ResponseWriter, r *http.Request) {
	c, err := storeFrom(r).LoadCharacter(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "load character", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SaveCharacter handles PUT /api/projects/{project}/characters/{id}.
//
//	@Summary		Replace a character profile
//	@Description	Missing fields are cleared. attributes may be a JSON string or any JSON value.
//	@Tags			characters
//	@Accept			json
//	@Param			project	path	string			true	"Project name"
//	@Param			id		path	string			true	"Character id"
//	@Param			body	body	map[string]any	true	"Profile"
//	@Success		204		"Saved"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{project}/characters/{id} [put]
func (h *Handler) SaveCharacter(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if !decodeJSON(w, r, &data) {
		return
	}
	if err := storeFrom(r).SaveCharacter(r.Context(), chi.URLParam(r, "id"), data); err != nil {
		writeError(w, r, "save character", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameCharacter handles PATCH /api/projects/{project}/characters/{id}.
func (h *Handler) RenameCharacter(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	if err := storeFrom(r).RenameCharacter(r.Context(), chi.URLParam(r, "id"), *req.Name); err != nil {
		writeError(w, r, "rename character", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCharacter handles DELETE /api/projects/{project}/characters/{id}.
func (h *Handler) DeleteCharacter(w http.ResponseWriter, r *http.Request) {
	if err := storeFrom(r).DeleteCharacter(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete character", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportCharacterImage handles POST /api/projects/{project}/characters/{id}/image.
//
// A JSON body {"source_path": ...} copies a file already on the server's
// disk. A multipart/form-data body uploads the file in field "file".
func (h *Handler) ImportCharacterImage(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.uploadCharacterImage(w, r)
		return
	}

	var req ImportImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.importImage(w, r, req.SourcePath)
}

func (h *Handler) importImage(w http.ResponseWriter, r *http.Request, sourcePath string) {
	id := chi.URLParam(r, "id")
	dest, err := storeFrom(r).ImportCharacterImage(r.Context(), id, sourcePath)
	if err != nil {
		writeError(w, r, "import image", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImportImageResponse{
		Path: dest,
		URL: fmt.Sprintf("/api/projects/%s/characters/%s/image/%s",
			url.PathEscape(chi.URLParam(r, "project")), url.PathEscape(id), url.PathEscape(filepath.Base(dest))),
	})
}

// uploadCharacterImage stages the uploaded file under its own name in a
// temporary directory and imports it from there.
func (h *Handler) uploadCharacterImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	staging, err := os.MkdirTemp("", "inkwell-upload-*")
	if err != nil {
		writeError(w, r, "stage upload", err)
		return
	}
	defer os.RemoveAll(staging)

	staged := filepath.Join(staging, name)
	dst, err := os.Create(staged)
	if err != nil {
		writeError(w, r, "stage upload", err)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, r, "stage upload", err)
		return
	}
	if err := dst.Close(); err != nil {
		writeError(w, r, "stage upload", err)
		return
	}
	h.importImage(w, r, staged)
}

// ServeCharacterImage handles GET /api/projects/{project}/characters/{id}/image/{filename}.
func (h *Handler) ServeCharacterImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name, err := safeName(chi.URLParam(r, "filename"))
	if err != nil || safeID(id) != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid path"))
		return
	}
	abs := filepath.Join(storeFrom(r).Root(), filepath.FromSlash(mirror.AssetPath(id)), name)
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// safeName accepts a plain file name with no separators or traversal.
func safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.ContainsAny(cleaned, `/\`) {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return cleaned, nil
}

func safeID(id string) error {
	_, err := safeName(id)
	return err
}
