package catalog

import (
	"context"

	"github.com/starford/inkwell/internal/models"
)

// Catalog defines the read and transaction surface of the catalog.
// Consumers should depend on this interface rather than the concrete *DB type.
type Catalog interface {
	GetFolder(ctx context.Context, id string) (*models.Folder, error)
	ListFolders(ctx context.Context) ([]models.Folder, error)
	ChildFolderIDs(ctx context.Context, id string) ([]string, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	GetBody(ctx context.Context, documentID string) (*models.Body, error)
	AllBodies(ctx context.Context) (map[string]string, error)
	GetCharacter(ctx context.Context, id string) (*models.Character, error)
	ListCharacters(ctx context.Context) ([]models.CharacterSummary, error)
	GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	ListSnapshots(ctx context.Context, documentID string) ([]models.Snapshot, error)
	Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error)
	Tree(ctx context.Context) (*models.Tree, error)
	WithTx(ctx context.Context, fn func(*Tx) error) error
	VacuumInto(ctx context.Context, path string) error
	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)
