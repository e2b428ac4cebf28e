// Package storage provides the atomic file writer and a rooted view of a
// project directory.
package storage

import "github.com/starford/inkwell/internal/models"

// Provider is the interface for project file operations. All paths are
// relative to the project root.
type Provider interface {
	// Root returns the absolute project directory.
	Root() string
	// List returns metadata for every file under dir whose name ends in ext.
	List(dir, ext string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	// Remove deletes the file at path. A missing file is not an error.
	Remove(path string) error
	// RemoveAll deletes the directory tree at path. A missing tree is not an error.
	RemoveAll(path string) error
	// Walk calls fn for every regular file under dir, in lexical order.
	Walk(dir string, fn func(rel string) error) error
}
