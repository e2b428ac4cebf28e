package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
)

// GetFolder returns a single folder.
func (q *Queries) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	var f models.Folder
	var parent sql.NullString
	err := q.q.QueryRowContext(ctx, `SELECT id, name, parent_id FROM Folder WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &parent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: folder %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get folder: %w", err)
	}
	f.ParentID = nullToPtr(parent)
	return &f, nil
}

// ListFolders returns every folder ordered by name.
func (q *Queries) ListFolders(ctx context.Context) ([]models.Folder, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, name, parent_id FROM Folder ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list folders: %w", err)
	}
	defer rows.Close()

	out := []models.Folder{}
	for rows.Next() {
		var f models.Folder
		var parent sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &parent); err != nil {
			return nil, err
		}
		f.ParentID = nullToPtr(parent)
		out = append(out, f)
	}
	return out, rows.Err()
}

// ChildFolderIDs returns the ids of the direct children of a folder.
func (q *Queries) ChildFolderIDs(ctx context.Context, id string) ([]string, error) {
	return q.ids(ctx, `SELECT id FROM Folder WHERE parent_id = ? ORDER BY name ASC, id ASC`, id)
}

// FolderDocumentIDs returns the documents placed directly in a folder.
func (q *Queries) FolderDocumentIDs(ctx context.Context, id string) ([]string, error) {
	return q.ids(ctx, `SELECT id FROM Document WHERE folder_id = ? ORDER BY created_at ASC, rowid ASC`, id)
}

// FolderCharacterIDs returns the characters placed directly in a folder.
func (q *Queries) FolderCharacterIDs(ctx context.Context, id string) ([]string, error) {
	return q.ids(ctx, `SELECT id FROM Character WHERE folder_id = ? ORDER BY name ASC, id ASC`, id)
}

// CreateFolder inserts a folder. A non-nil parentID must name an existing folder.
func (t *Tx) CreateFolder(ctx context.Context, name string, parentID *string) (*models.Folder, error) {
	if parentID != nil {
		if _, err := t.GetFolder(ctx, *parentID); err != nil {
			return nil, err
		}
	}
	f := &models.Folder{ID: t.newID(), Name: name, ParentID: parentID}
	_, err := t.q.ExecContext(ctx,
		`INSERT INTO Folder (id, project_id, parent_id, name) VALUES (?, ?, ?, ?)`,
		f.ID, projectID, ptrToNull(parentID), name)
	if err != nil {
		return nil, fmt.Errorf("catalog: create folder: %w", err)
	}
	return f, nil
}

// RenameFolder changes a folder's name.
func (t *Tx) RenameFolder(ctx context.Context, id, name string) error {
	res, err := t.q.ExecContext(ctx, `UPDATE Folder SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("catalog: rename folder: %w", err)
	}
	return expectRow(res, "folder", id)
}

// MoveFolder re-parents a folder. Moving a folder under itself or one of its
// descendants is rejected.
func (t *Tx) MoveFolder(ctx context.Context, id string, parentID *string) error {
	if _, err := t.GetFolder(ctx, id); err != nil {
		return err
	}
	if parentID != nil {
		cursor := *parentID
		seen := map[string]struct{}{}
		for {
			if cursor == id {
				return fmt.Errorf("catalog: move folder %s under its own subtree: %w", id, apperr.ErrValidation)
			}
			if _, dup := seen[cursor]; dup {
				break
			}
			seen[cursor] = struct{}{}
			f, err := t.GetFolder(ctx, cursor)
			if err != nil {
				return err
			}
			if f.ParentID == nil {
				break
			}
			cursor = *f.ParentID
		}
	}
	res, err := t.q.ExecContext(ctx, `UPDATE Folder SET parent_id = ? WHERE id = ?`, ptrToNull(parentID), id)
	if err != nil {
		return fmt.Errorf("catalog: move folder: %w", err)
	}
	return expectRow(res, "folder", id)
}

// DetachFolder clears a folder's parent. Used to break corrupt parent cycles.
func (t *Tx) DetachFolder(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, `UPDATE Folder SET parent_id = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: detach folder: %w", err)
	}
	return expectRow(res, "folder", id)
}

// DeleteFolder removes a single folder row. It fails while any folder,
// document or character still references it.
func (t *Tx) DeleteFolder(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM Folder WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete folder %s: %w", id, err)
	}
	return expectRow(res, "folder", id)
}

func (q *Queries) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: query ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("catalog: %s %s: %w", kind, id, apperr.ErrNotFound)
	}
	return nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func ptrToNull(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
