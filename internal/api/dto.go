package api

import (
	"encoding/json"
	"fmt"

	"github.com/starford/inkwell/internal/apperr"
)

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name string `json:"name" example:"novel" validate:"required"`
}

// ProjectResponse describes an opened project.
type ProjectResponse struct {
	Name string `json:"name" example:"novel"`
	Path string `json:"path" example:"/data/workspace/novel"`
}

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Name     string  `json:"name" example:"Chapter 1" validate:"required"`
	ParentID *string `json:"parent_id"`
}

// UpdateRequest renames and/or moves an entry. A present but null
// parent_id/folder_id moves it to the top level.
type UpdateRequest struct {
	Name     *string         `json:"name"`
	Title    *string         `json:"title"`
	ParentID json.RawMessage `json:"parent_id"`
	FolderID json.RawMessage `json:"folder_id"`
}

// CreateEntryRequest is the request body for creating a document or
// character.
type CreateEntryRequest struct {
	Title    string  `json:"title" example:"Scene A"`
	Name     string  `json:"name" example:"Ada"`
	FolderID *string `json:"folder_id"`
}

// SaveDocumentRequest carries a full document body.
type SaveDocumentRequest struct {
	Markdown string `json:"markdown" example:"# Scene A"`
}

// DocumentResponse is a document body.
type DocumentResponse struct {
	ID       string `json:"id"`
	Markdown string `json:"markdown"`
}

// SnapshotRequest is the request body for creating a snapshot.
type SnapshotRequest struct {
	Note string `json:"note" example:"before rewrite"`
}

// ImportImageRequest names a local file to copy into a character's assets.
type ImportImageRequest struct {
	SourcePath string `json:"source_path" example:"/home/me/ada.png"`
}

// ImportImageResponse is returned after an image import.
type ImportImageResponse struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
}

// optionalID decodes a nullable id field. set reports whether the field
// was present at all.
func optionalID(raw json.RawMessage, field string) (id *string, set bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, true, fmt.Errorf("%s must be a string or null: %w", field, apperr.ErrValidation)
	}
	return &s, true, nil
}
