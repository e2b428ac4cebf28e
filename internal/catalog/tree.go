package catalog

import (
	"context"

	"github.com/starford/inkwell/internal/models"
)

// Tree lists folders by name, documents by creation order and characters by name.
func (q *Queries) Tree(ctx context.Context) (*models.Tree, error) {
	folders, err := q.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := q.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	chars, err := q.ListCharacters(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Tree{Folders: folders, Documents: docs, Characters: chars}, nil
}
