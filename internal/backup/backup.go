// Package backup packages a project's catalog and mirror into timestamped
// zip archives.
package backup

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/storage"
)

const (
	// Dir is the project-relative directory holding backup artifacts.
	Dir = "backups"
	// TimestampLayout formats the UTC creation time in artifact names.
	TimestampLayout = "20060102_150405"

	prefix     = "backup_"
	ext        = ".zip"
	dbEntry    = "project.db"
	mirrorDir  = "md"
	partialExt = ".partial"
)

// Snapshotter writes a consistent copy of the catalog database to a file.
type Snapshotter interface {
	VacuumInto(ctx context.Context, path string) error
}

// Archiver produces backup artifacts for one project.
type Archiver struct {
	fs     storage.Provider
	db     Snapshotter
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock overrides the time source used to name artifacts.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) {
		a.now = now
	}
}

// NewArchiver creates an archiver for the project rooted at fs.
func NewArchiver(fs storage.Provider, db Snapshotter, logger *slog.Logger, opts ...Option) *Archiver {
	a := &Archiver{fs: fs, db: db, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the artifact file name for a creation time.
func Name(t time.Time) string {
	return prefix + t.UTC().Format(TimestampLayout) + ext
}

// Create writes backups/backup_<ts>.zip holding project.db and every file
// under md/. The archive is assembled under a .partial name and renamed into
// place only when complete; on failure nothing is left behind.
//
// The database entry comes from a single consistent snapshot, while mirror
// files are read afterwards, so callers wanting the two to agree must hold
// off writers for the duration.
func (a *Archiver) Create(ctx context.Context) (*models.BackupInfo, error) {
	created := a.now().UTC()
	dir := filepath.Join(a.fs.Root(), Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: mkdir: %w", err)
	}

	name := Name(created)
	final := filepath.Join(dir, name)
	if _, err := os.Stat(final); err == nil {
		return nil, fmt.Errorf("backup: %s: %w", name, apperr.ErrAlreadyExists)
	}
	partial := final + partialExt

	out, err := os.OpenFile(partial, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("backup: create archive: %w", err)
	}
	success := false
	defer func() {
		if !success {
			_ = out.Close()
			_ = os.Remove(partial)
		}
	}()

	zw := zip.NewWriter(out)

	dbCopy := filepath.Join(dir, ".snapshot-"+created.Format(TimestampLayout)+".db")
	_ = os.Remove(dbCopy)
	defer os.Remove(dbCopy)
	if err := a.db.VacuumInto(ctx, dbCopy); err != nil {
		return nil, fmt.Errorf("backup: snapshot catalog: %w", err)
	}
	if err := addFile(zw, dbEntry, dbCopy, created); err != nil {
		return nil, err
	}

	entries := 1
	err = a.fs.Walk(mirrorDir, func(rel string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries++
		return addFile(zw, filepath.ToSlash(rel), filepath.Join(a.fs.Root(), rel), created)
	})
	if err != nil {
		return nil, fmt.Errorf("backup: walk mirror: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("backup: finish archive: %w", err)
	}
	if err := out.Sync(); err != nil {
		return nil, fmt.Errorf("backup: fsync: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("backup: close archive: %w", err)
	}
	if err := os.Rename(partial, final); err != nil {
		return nil, fmt.Errorf("backup: rename: %w", err)
	}
	success = true

	info, err := os.Stat(final)
	if err != nil {
		return nil, fmt.Errorf("backup: stat: %w", err)
	}
	a.logger.Info("backup: created",
		slog.String("path", final),
		slog.Int("entries", entries),
		slog.Int64("size", info.Size()))

	return &models.BackupInfo{Name: name, Path: final, Size: info.Size(), CreatedAt: created}, nil
}

// List returns the completed backups of the project, newest first.
func (a *Archiver) List() ([]models.BackupInfo, error) {
	dir := filepath.Join(a.fs.Root(), Dir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: list: %w", err)
	}

	out := []models.BackupInfo{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		ts := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
		created, err := time.Parse(TimestampLayout, ts)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("backup: stat %s: %w", name, err)
		}
		out = append(out, models.BackupInfo{
			Name:      name,
			Path:      filepath.Join(dir, name),
			Size:      info.Size(),
			CreatedAt: created,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func addFile(zw *zip.Writer, entry, path string, modified time.Time) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", entry, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entry,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("backup: add %s: %w", entry, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("backup: write %s: %w", entry, err)
	}
	return nil
}
