// Package project creates and opens project directories.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/backup"
	"github.com/starford/inkwell/internal/catalog"
	"github.com/starford/inkwell/internal/mirror"
)

// DBFile is the catalog database file name inside a project.
const DBFile = "project.db"

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.-]*$`)

// Layout is the on-disk shape of an opened project.
type Layout struct {
	Root string // absolute project directory
}

// DBPath returns the catalog database path.
func (l Layout) DBPath() string { return filepath.Join(l.Root, DBFile) }

// ValidateName checks that name is usable as a single directory name.
func ValidateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Length(1, 128),
		validation.Match(nameRe).Error("must start with a letter or digit and contain only letters, digits, spaces, '.', '_' or '-'"),
	)
	if err != nil {
		return fmt.Errorf("project: name %q: %v: %w", name, err, apperr.ErrValidation)
	}
	return nil
}

// Create bootstraps a new project named name under dir: it creates the
// directory skeleton and the catalog schema. Creating over an existing
// project fails with ErrAlreadyExists.
func Create(dir, name string) (*Layout, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	base, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("project: resolve: %w", err)
	}
	l := &Layout{Root: base}
	if _, err := os.Stat(l.DBPath()); err == nil {
		return nil, fmt.Errorf("project: %s: %w", base, apperr.ErrAlreadyExists)
	}

	if err := ensureDirs(base); err != nil {
		return nil, err
	}
	db, err := catalog.Open(l.DBPath())
	if err != nil {
		return nil, fmt.Errorf("project: init catalog: %w", err)
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("project: close catalog: %w", err)
	}
	return l, nil
}

// Open checks that path holds a project and restores any missing
// subdirectories of the layout.
func Open(path string) (*Layout, error) {
	base, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("project: resolve: %w", err)
	}
	info, err := os.Stat(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("project: %s: %w", base, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("project: stat: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project: %s is not a directory: %w", base, apperr.ErrValidation)
	}
	l := &Layout{Root: base}
	if _, err := os.Stat(l.DBPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project: %s has no %s: %w", base, DBFile, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("project: stat db: %w", err)
	}
	if err := ensureDirs(base); err != nil {
		return nil, err
	}
	return l, nil
}

func ensureDirs(base string) error {
	for _, dir := range []string{mirror.BodyDir, backup.Dir, mirror.AssetDir} {
		if err := os.MkdirAll(filepath.Join(base, filepath.FromSlash(dir)), 0o755); err != nil {
			return fmt.Errorf("project: mkdir %s: %w", dir, err)
		}
	}
	return nil
}
