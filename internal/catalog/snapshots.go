package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
)

// GetSnapshot returns a single snapshot.
func (q *Queries) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	var s models.Snapshot
	err := q.q.QueryRowContext(ctx,
		`SELECT id, document_id, note, markdown, created_at FROM Snapshot WHERE id = ?`, id).
		Scan(&s.ID, &s.DocumentID, &s.Note, &s.Markdown, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: snapshot %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get snapshot: %w", err)
	}
	return &s, nil
}

// ListSnapshots returns a document's snapshots, newest first.
func (q *Queries) ListSnapshots(ctx context.Context, documentID string) ([]models.Snapshot, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, document_id, note, markdown, created_at
		FROM Snapshot WHERE document_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list snapshots: %w", err)
	}
	defer rows.Close()

	out := []models.Snapshot{}
	for rows.Next() {
		var s models.Snapshot
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.Note, &s.Markdown, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateSnapshot copies the current body of a document into a new snapshot.
func (t *Tx) CreateSnapshot(ctx context.Context, documentID, note string) (*models.Snapshot, error) {
	body, err := t.GetBody(ctx, documentID)
	if err != nil {
		return nil, err
	}
	id := t.newID()
	_, err = t.q.ExecContext(ctx,
		`INSERT INTO Snapshot (id, document_id, note, markdown) VALUES (?, ?, ?, ?)`,
		id, documentID, note, body.Markdown)
	if err != nil {
		return nil, fmt.Errorf("catalog: create snapshot: %w", err)
	}
	return t.GetSnapshot(ctx, id)
}
