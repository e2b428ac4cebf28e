// Package catalog provides the SQLite-backed relational store for folders,
// documents, bodies, snapshots, characters and the body search index.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// projectID is the fixed project key written into every row; one database
// file always holds exactly one project.
const projectID = "p1"

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS Folder (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	parent_id  TEXT REFERENCES Folder(id),
	name       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS Document (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	folder_id  TEXT REFERENCES Folder(id),
	title      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS Body (
	document_id TEXT PRIMARY KEY REFERENCES Document(id) ON DELETE CASCADE,
	markdown    TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS Snapshot (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES Document(id) ON DELETE CASCADE,
	note        TEXT NOT NULL DEFAULT '',
	markdown    TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS Character (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL,
	folder_id   TEXT REFERENCES Folder(id),
	name        TEXT NOT NULL,
	age         TEXT,
	nationality TEXT,
	sexuality   TEXT,
	height      TEXT,
	attributes  TEXT,
	image_path  TEXT,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_folder_parent ON Folder(parent_id);
CREATE INDEX IF NOT EXISTS idx_document_folder ON Document(folder_id);
CREATE INDEX IF NOT EXISTS idx_character_folder ON Character(folder_id);
CREATE INDEX IF NOT EXISTS idx_snapshot_document ON Snapshot(document_id);
`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB with catalog operations. Reads are available directly;
// writes go through WithTx.
type DB struct {
	Queries
	conn *sql.DB
}

// Option configures a DB.
type Option func(*DB)

// WithIDFunc overrides the identifier generator.
func WithIDFunc(fn func() string) Option {
	return func(db *DB) {
		db.newID = fn
	}
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply fts schema: %w", err)
	}
	db := &DB{conn: conn, Queries: Queries{q: conn, newID: NewID}}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// WithTx runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&Tx{Queries: Queries{q: sqlTx, newID: db.newID}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit: %w", err)
	}
	return nil
}

// VacuumInto writes a consistent copy of the whole database to path.
// The target must not exist.
func (db *DB) VacuumInto(ctx context.Context, path string) error {
	if _, err := db.conn.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("catalog: vacuum into: %w", err)
	}
	return nil
}

// Tx exposes catalog writes bound to one transaction.
type Tx struct {
	Queries
}

// Queries holds the read operations shared by DB and Tx.
type Queries struct {
	q     querier
	newID func() string
}
