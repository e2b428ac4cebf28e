// Package store is the single entry point for operations on one project.
//
// Every mutation writes the catalog first and then projects the change into
// the mirror, holding the project's lock for the whole span. Reads go straight
// to the catalog.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/backup"
	"github.com/starford/inkwell/internal/catalog"
	"github.com/starford/inkwell/internal/mirror"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/project"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/tree"
)

// DefaultBody is the markdown every new document starts with.
const DefaultBody = "# New Document"

// Event describes a committed change.
type Event struct {
	Project string `json:"project"`
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
}

// Event kinds.
const (
	FolderCreated    = "folder.created"
	FolderUpdated    = "folder.updated"
	FolderDeleted    = "folder.deleted"
	DocumentCreated  = "document.created"
	DocumentUpdated  = "document.updated"
	DocumentSaved    = "document.saved"
	DocumentDeleted  = "document.deleted"
	CharacterCreated = "character.created"
	CharacterSaved   = "character.saved"
	CharacterUpdated = "character.updated"
	CharacterDeleted = "character.deleted"
	SnapshotCreated  = "snapshot.created"
	BackupCreated    = "backup.created"
	MirrorReconciled = "mirror.reconciled"
)

// Store serializes all writes to one project.
type Store struct {
	mu sync.Mutex

	name     string
	root     string
	db       *catalog.DB
	mirror   *mirror.Mirror
	tree     *tree.Engine
	archiver *backup.Archiver
	logger   *slog.Logger
	notify   func(Event)
}

// Option configures a Store.
type Option func(*options)

type options struct {
	idFunc func() string
	clock  func() time.Time
	notify func(Event)
}

// WithIDFunc overrides the identifier generator of the catalog.
func WithIDFunc(fn func() string) Option {
	return func(o *options) { o.idFunc = fn }
}

// WithClock overrides the clock used to name backups.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithNotifier registers a callback invoked after each committed change.
func WithNotifier(fn func(Event)) Option {
	return func(o *options) { o.notify = fn }
}

// Open opens the store of an existing project.
func Open(layout *project.Layout, logger *slog.Logger, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	fs, err := storage.NewFS(layout.Root)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	var dbOpts []catalog.Option
	if o.idFunc != nil {
		dbOpts = append(dbOpts, catalog.WithIDFunc(o.idFunc))
	}
	db, err := catalog.Open(layout.DBPath(), dbOpts...)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	name := filepath.Base(layout.Root)
	logger = logger.With(slog.String("project", name))
	m := mirror.New(fs, logger)

	var archOpts []backup.Option
	if o.clock != nil {
		archOpts = append(archOpts, backup.WithClock(o.clock))
	}

	return &Store{
		name:     name,
		root:     layout.Root,
		db:       db,
		mirror:   m,
		tree:     tree.NewEngine(db, m, logger),
		archiver: backup.NewArchiver(fs, db, logger, archOpts...),
		logger:   logger,
		notify:   o.notify,
	}, nil
}

// Name returns the project name.
func (s *Store) Name() string { return s.name }

// Root returns the absolute project directory.
func (s *Store) Root() string { return s.root }

// Close releases the catalog connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) emit(kind, id string) {
	if s.notify != nil {
		s.notify(Event{Project: s.name, Kind: kind, ID: id})
	}
}

func requireName(field, value string) error {
	if err := validation.Validate(strings.TrimSpace(value), validation.Required); err != nil {
		return fmt.Errorf("store: %s %v: %w", field, err, apperr.ErrValidation)
	}
	return nil
}

// ListTree returns every folder, document and character of the project.
func (s *Store) ListTree(ctx context.Context) (*models.Tree, error) {
	return s.db.Tree(ctx)
}

// CreateFolder adds a folder under parentID, or at the top level when nil.
func (s *Store) CreateFolder(ctx context.Context, name string, parentID *string) (*models.Folder, error) {
	if err := requireName("folder name", name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var f *models.Folder
	err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		var err error
		f, err = tx.CreateFolder(ctx, name, parentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(FolderCreated, f.ID)
	return f, nil
}

// RenameFolder changes a folder's name.
func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	if err := requireName("folder name", name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		return tx.RenameFolder(ctx, id, name)
	}); err != nil {
		return err
	}
	s.emit(FolderUpdated, id)
	return nil
}

// MoveFolder reparents a folder. Moving a folder below itself is rejected.
func (s *Store) MoveFolder(ctx context.Context, id string, parentID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		return tx.MoveFolder(ctx, id, parentID)
	}); err != nil {
		return err
	}
	s.emit(FolderUpdated, id)
	return nil
}

// DeleteFolder removes a folder and everything below it.
func (s *Store) DeleteFolder(ctx context.Context, id string) (*tree.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep, err := s.tree.DeleteFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emit(FolderDeleted, id)
	return rep, nil
}

// CreateDocument adds a document holding DefaultBody and projects it.
func (s *Store) CreateDocument(ctx context.Context, title string, folderID *string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc *models.Document
	err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		var err error
		doc, err = tx.CreateDocument(ctx, title, folderID, DefaultBody)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := s.mirror.ProjectBody(doc.ID, DefaultBody); err != nil {
		return nil, fmt.Errorf("store: create document %s: %w", doc.ID, err)
	}
	s.emit(DocumentCreated, doc.ID)
	return doc, nil
}

// LoadDocument returns the current markdown of a document.
func (s *Store) LoadDocument(ctx context.Context, id string) (string, error) {
	b, err := s.db.GetBody(ctx, id)
	if err != nil {
		return "", err
	}
	return b.Markdown, nil
}

// SaveDocument replaces a document's body. When the catalog write succeeds
// but the mirror write fails the error is returned; the catalog keeps the
// new content and the next reconcile repairs the file.
func (s *Store) SaveDocument(ctx context.Context, id, markdown string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putBody(ctx, id, markdown)
}

func (s *Store) putBody(ctx context.Context, id, markdown string) error {
	if err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		return tx.PutBody(ctx, id, markdown)
	}); err != nil {
		return err
	}
	if err := s.mirror.ProjectBody(id, markdown); err != nil {
		return fmt.Errorf("store: save document %s: %w", id, err)
	}
	s.emit(DocumentSaved, id)
	return nil
}

// RenameDocument changes a document's title.
func (s *Store) RenameDocument(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		return tx.RenameDocument(ctx, id, title)
	}); err != nil {
		return err
	}
	s.emit(DocumentUpdated, id)
	return nil
}

// MoveDocument places a document in folderID, or at the top level when nil.
func (s *Store) MoveDocument(ctx context.Context, id string, folderID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		return tx.MoveDocument(ctx, id, folderID)
	}); err != nil {
		return err
	}
	s.emit(DocumentUpdated, id)
	return nil
}

// DeleteDocument removes a document with its body and snapshots, then its
// mirror file. The catalog removal is what counts: a failed file removal is
// logged and left for reconcile.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		return tx.DeleteDocument(ctx, id)
	}); err != nil {
		return err
	}
	if err := s.mirror.RemoveBody(id); err != nil {
		s.logger.Warn("mirror cleanup failed", slog.String("document_id", id), slog.String("error", err.Error()))
	}
	s.emit(DocumentDeleted, id)
	return nil
}

// CreateSnapshot records the current body of a document.
func (s *Store) CreateSnapshot(ctx context.Context, documentID, note string) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap *models.Snapshot
	err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		var err error
		snap, err = tx.CreateSnapshot(ctx, documentID, note)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(SnapshotCreated, snap.ID)
	return snap, nil
}

// ListSnapshots returns the snapshots of a document, newest first.
func (s *Store) ListSnapshots(ctx context.Context, documentID string) ([]models.Snapshot, error) {
	if _, err := s.db.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.db.ListSnapshots(ctx, documentID)
}

// RestoreSnapshot makes a snapshot's markdown the current body of its
// document.
func (s *Store) RestoreSnapshot(ctx context.Context, snapshotID string) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.db.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if err := s.putBody(ctx, snap.DocumentID, snap.Markdown); err != nil {
		return nil, err
	}
	return snap, nil
}

// Search runs a full-text query over document bodies. A blank query
// matches nothing.
func (s *Store) Search(ctx context.Context, query string) ([]models.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return []models.SearchHit{}, nil
	}
	return s.db.Search(ctx, query, catalog.MaxSearchResults)
}

// Backup writes a backup archive while no writer is active.
func (s *Store) Backup(ctx context.Context) (*models.BackupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.archiver.Create(ctx)
	if err != nil {
		return nil, err
	}
	s.emit(BackupCreated, info.Name)
	return info, nil
}

// ListBackups returns the project's backups, newest first.
func (s *Store) ListBackups() ([]models.BackupInfo, error) {
	return s.archiver.List()
}

// Reconcile rewrites the mirror from the catalog.
func (s *Store) Reconcile(ctx context.Context) (*mirror.ReconcileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bodies, err := s.db.AllBodies(ctx)
	if err != nil {
		return nil, err
	}
	rep, err := s.mirror.Reconcile(bodies)
	if err != nil {
		return rep, err
	}
	if len(rep.Rewritten) > 0 || len(rep.Removed) > 0 {
		s.logger.Info("mirror reconciled",
			slog.Int("rewritten", len(rep.Rewritten)),
			slog.Int("removed", len(rep.Removed)))
		s.emit(MirrorReconciled, "")
	}
	return rep, nil
}

// Watch reconciles the mirror whenever its files change out-of-band, until
// ctx is cancelled.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	return s.mirror.Watch(ctx, debounce, func() {
		if _, err := s.Reconcile(ctx); err != nil {
			s.logger.Warn("reconcile after drift failed", slog.String("error", err.Error()))
		}
	})
}
