//go:build sqlite_fts5

package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/inkwell/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS body_fts USING fts5(
			document_id UNINDEXED,
			markdown,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, q querier, documentID, markdown string) error {
	if err := ftsDelete(ctx, q, documentID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `INSERT INTO body_fts (document_id, markdown) VALUES (?, ?)`, documentID, markdown)
	if err != nil {
		return fmt.Errorf("catalog: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, q querier, documentID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM body_fts WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("catalog: delete fts: %w", err)
	}
	return nil
}

// Search runs an FTS5 match over document bodies, best match first.
func (q *Queries) Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	limit = clampLimit(limit)
	rows, err := q.q.QueryContext(ctx, `
		SELECT Document.id,
		       snippet(body_fts, 1, ?, ?, ?, ?)
		FROM body_fts
		JOIN Document ON Document.id = body_fts.document_id
		WHERE body_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, HighlightOpen, HighlightClose, Ellipsis, SnippetWords, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	defer rows.Close()

	out := []models.SearchHit{}
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(&h.DocumentID, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
