// Package mirror projects document bodies and character assets onto the
// project directory.
package mirror

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/storage"
)

// Project-relative directories of the mirror.
const (
	BodyDir  = "md"
	AssetDir = "assets/characters"
	bodyExt  = ".md"
)

// Mirror is the filesystem projection of a project's catalog.
type Mirror struct {
	fs     storage.Provider
	logger *slog.Logger
}

// New creates a mirror over the given project storage.
func New(fs storage.Provider, logger *slog.Logger) *Mirror {
	return &Mirror{fs: fs, logger: logger}
}

// BodyPath returns the project-relative mirror path of a document.
func BodyPath(documentID string) string {
	return path.Join(BodyDir, documentID+bodyExt)
}

// AssetPath returns the project-relative asset directory of a character.
func AssetPath(characterID string) string {
	return path.Join(AssetDir, characterID)
}

// ProjectBody atomically writes a document's markdown to its mirror file.
func (m *Mirror) ProjectBody(documentID, markdown string) error {
	if err := validID(documentID); err != nil {
		return err
	}
	if err := m.fs.Write(BodyPath(documentID), []byte(markdown)); err != nil {
		return fmt.Errorf("mirror: project %s: %w", documentID, err)
	}
	return nil
}

// ReadBody returns the current mirror content of a document.
func (m *Mirror) ReadBody(documentID string) (string, error) {
	if err := validID(documentID); err != nil {
		return "", err
	}
	data, err := m.fs.Read(BodyPath(documentID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("mirror: body %s: %w", documentID, apperr.ErrNotFound)
		}
		return "", err
	}
	return string(data), nil
}

// RemoveBody deletes a document's mirror file. A missing file is not an error.
func (m *Mirror) RemoveBody(documentID string) error {
	if err := validID(documentID); err != nil {
		return err
	}
	if err := m.fs.Remove(BodyPath(documentID)); err != nil {
		return fmt.Errorf("mirror: remove %s: %w", documentID, err)
	}
	return nil
}

// RemoveAssets deletes a character's asset directory recursively. A missing
// directory is not an error.
func (m *Mirror) RemoveAssets(characterID string) error {
	if err := validID(characterID); err != nil {
		return err
	}
	if err := m.fs.RemoveAll(AssetPath(characterID)); err != nil {
		return fmt.Errorf("mirror: remove assets %s: %w", characterID, err)
	}
	return nil
}

// ImportImage copies sourcePath into the character's asset directory,
// replacing a file of the same name, and returns the absolute destination.
func (m *Mirror) ImportImage(characterID, sourcePath string) (string, error) {
	if err := validID(characterID); err != nil {
		return "", err
	}
	if strings.TrimSpace(sourcePath) == "" {
		return "", fmt.Errorf("mirror: source path is empty: %w", apperr.ErrValidation)
	}
	info, err := os.Stat(sourcePath)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("mirror: source file does not exist: %s: %w", sourcePath, apperr.ErrValidation)
	}

	destDir := filepath.Join(m.fs.Root(), filepath.FromSlash(AssetPath(characterID)))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("mirror: mkdir assets: %w", err)
	}
	dest := filepath.Join(destDir, filepath.Base(sourcePath))

	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("mirror: open source: %w", err)
	}
	defer src.Close()

	if err := atomic.WriteFile(dest, src); err != nil {
		return "", fmt.Errorf("mirror: copy image: %w", err)
	}
	// atomic.WriteFile leaves new files with temp-file permissions.
	if err := os.Chmod(dest, 0o644); err != nil {
		return "", fmt.Errorf("mirror: chmod image: %w", err)
	}
	return dest, nil
}

// validID rejects ids that would resolve outside their mirror directory.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("mirror: invalid id %q: %w", id, apperr.ErrValidation)
	}
	return nil
}
