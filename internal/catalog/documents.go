package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
)

// GetDocument returns a single document.
func (q *Queries) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var d models.Document
	var folder sql.NullString
	err := q.q.QueryRowContext(ctx, `SELECT id, title, folder_id, created_at FROM Document WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &folder, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get document: %w", err)
	}
	d.FolderID = nullToPtr(folder)
	return &d, nil
}

// ListDocuments returns every document in creation order.
func (q *Queries) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, title, folder_id, created_at FROM Document ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list documents: %w", err)
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		var d models.Document
		var folder sql.NullString
		if err := rows.Scan(&d.ID, &d.Title, &folder, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.FolderID = nullToPtr(folder)
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetBody returns the body of a document.
func (q *Queries) GetBody(ctx context.Context, documentID string) (*models.Body, error) {
	b := models.Body{DocumentID: documentID}
	err := q.q.QueryRowContext(ctx, `SELECT markdown, updated_at FROM Body WHERE document_id = ?`, documentID).
		Scan(&b.Markdown, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: body %s: %w", documentID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get body: %w", err)
	}
	return &b, nil
}

// AllBodies returns the markdown of every document keyed by document id.
func (q *Queries) AllBodies(ctx context.Context) (map[string]string, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT document_id, markdown FROM Body`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all bodies: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, md string
		if err := rows.Scan(&id, &md); err != nil {
			return nil, err
		}
		out[id] = md
	}
	return out, rows.Err()
}

// CreateDocument inserts a document together with its initial body.
func (t *Tx) CreateDocument(ctx context.Context, title string, folderID *string, markdown string) (*models.Document, error) {
	if folderID != nil {
		if _, err := t.GetFolder(ctx, *folderID); err != nil {
			return nil, err
		}
	}
	id := t.newID()
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO Document (id, project_id, folder_id, title) VALUES (?, ?, ?, ?)`,
		id, projectID, ptrToNull(folderID), title)
	if err != nil {
		return nil, fmt.Errorf("catalog: create document: %w", err)
	}
	_, err = t.q.ExecContext(ctx, `INSERT INTO Body (document_id, markdown) VALUES (?, ?)`, id, markdown)
	if err != nil {
		return nil, fmt.Errorf("catalog: create body: %w", err)
	}
	if err := ftsUpsert(ctx, t.q, id, markdown); err != nil {
		return nil, err
	}
	return t.GetDocument(ctx, id)
}

// PutBody replaces a document's markdown and refreshes the search index.
func (t *Tx) PutBody(ctx context.Context, documentID, markdown string) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE Body SET markdown = ?, updated_at = CURRENT_TIMESTAMP WHERE document_id = ?`,
		markdown, documentID)
	if err != nil {
		return fmt.Errorf("catalog: put body: %w", err)
	}
	if err := expectRow(res, "document", documentID); err != nil {
		return err
	}
	return ftsUpsert(ctx, t.q, documentID, markdown)
}

// RenameDocument changes a document's title.
func (t *Tx) RenameDocument(ctx context.Context, id, title string) error {
	res, err := t.q.ExecContext(ctx, `UPDATE Document SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("catalog: rename document: %w", err)
	}
	return expectRow(res, "document", id)
}

// MoveDocument places a document in another folder, or at the root when
// folderID is nil.
func (t *Tx) MoveDocument(ctx context.Context, id string, folderID *string) error {
	if folderID != nil {
		if _, err := t.GetFolder(ctx, *folderID); err != nil {
			return err
		}
	}
	res, err := t.q.ExecContext(ctx, `UPDATE Document SET folder_id = ? WHERE id = ?`, ptrToNull(folderID), id)
	if err != nil {
		return fmt.Errorf("catalog: move document: %w", err)
	}
	return expectRow(res, "document", id)
}

// DeleteDocument removes a document; its body and snapshots cascade.
func (t *Tx) DeleteDocument(ctx context.Context, id string) error {
	if err := ftsDelete(ctx, t.q, id); err != nil {
		return err
	}
	res, err := t.q.ExecContext(ctx, `DELETE FROM Document WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete document %s: %w", id, err)
	}
	return expectRow(res, "document", id)
}
