// Package models defines the domain types for Inkwell projects.
package models

import "time"

// Folder is a node in the project hierarchy. A nil ParentID marks a root folder.
type Folder struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// Document is a titled markdown document, optionally placed in a folder.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	FolderID  *string   `json:"folderId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Body is the markdown text owned by exactly one document.
type Body struct {
	DocumentID string    `json:"documentId"`
	Markdown   string    `json:"markdown"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Snapshot is an append-only copy of a document body.
type Snapshot struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Note       string    `json:"note"`
	Markdown   string    `json:"markdown"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Character is a character record with a free-form profile.
type Character struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	FolderID    *string `json:"folderId"`
	Age         string  `json:"age"`
	Nationality string  `json:"nationality"`
	Sexuality   string  `json:"sexuality"`
	Height      string  `json:"height"`
	Attributes  string  `json:"attributes"` // JSON-encoded list
	Image       string  `json:"image"`
}

// CharacterProfile is the editable part of a character.
type CharacterProfile struct {
	Age         string
	Nationality string
	Sexuality   string
	Height      string
	Attributes  string
	Image       string
}

// CharacterSummary is the lightweight form listed in the tree.
type CharacterSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	FolderID *string `json:"folderId"`
}

// Tree is the full project listing.
type Tree struct {
	Folders    []Folder           `json:"folders"`
	Documents  []Document         `json:"docs"`
	Characters []CharacterSummary `json:"characters"`
}

// SearchHit is one full-text search result.
type SearchHit struct {
	DocumentID string `json:"documentId"`
	Snippet    string `json:"snippet"`
}

// BackupInfo describes a backup artifact on disk.
type BackupInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// FileMetadata describes one file in a project directory.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
}
