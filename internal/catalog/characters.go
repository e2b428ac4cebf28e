package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
)

// GetCharacter returns a character with its full profile. Unset profile
// fields come back as empty strings.
func (q *Queries) GetCharacter(ctx context.Context, id string) (*models.Character, error) {
	var (
		c                                models.Character
		folder                           sql.NullString
		age, nationality, sexuality, hgt sql.NullString
		attributes, image                sql.NullString
	)
	err := q.q.QueryRowContext(ctx, `
		SELECT name, folder_id, age, nationality, sexuality, height, attributes, image_path
		FROM Character WHERE id = ?
	`, id).Scan(&c.Name, &folder, &age, &nationality, &sexuality, &hgt, &attributes, &image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: character %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get character: %w", err)
	}
	c.ID = id
	c.FolderID = nullToPtr(folder)
	c.Age = age.String
	c.Nationality = nationality.String
	c.Sexuality = sexuality.String
	c.Height = hgt.String
	c.Attributes = attributes.String
	c.Image = image.String
	return &c, nil
}

// ListCharacters returns every character ordered by name.
func (q *Queries) ListCharacters(ctx context.Context) ([]models.CharacterSummary, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, name, folder_id FROM Character ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list characters: %w", err)
	}
	defer rows.Close()

	out := []models.CharacterSummary{}
	for rows.Next() {
		var c models.CharacterSummary
		var folder sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &folder); err != nil {
			return nil, err
		}
		c.FolderID = nullToPtr(folder)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCharacter inserts a character with an empty profile.
func (t *Tx) CreateCharacter(ctx context.Context, name string, folderID *string) (*models.Character, error) {
	if folderID != nil {
		if _, err := t.GetFolder(ctx, *folderID); err != nil {
			return nil, err
		}
	}
	id := t.newID()
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO Character (id, project_id, folder_id, name, age, nationality, sexuality, height, attributes, image_path)
		VALUES (?, ?, ?, ?, '', '', '', '', '[]', '')
	`, id, projectID, ptrToNull(folderID), name)
	if err != nil {
		return nil, fmt.Errorf("catalog: create character: %w", err)
	}
	return t.GetCharacter(ctx, id)
}

// SaveCharacter overwrites the whole profile of a character.
func (t *Tx) SaveCharacter(ctx context.Context, id string, p models.CharacterProfile) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE Character
		SET age = ?, nationality = ?, sexuality = ?, height = ?, attributes = ?, image_path = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, p.Age, p.Nationality, p.Sexuality, p.Height, p.Attributes, p.Image, id)
	if err != nil {
		return fmt.Errorf("catalog: save character: %w", err)
	}
	return expectRow(res, "character", id)
}

// RenameCharacter changes a character's name.
func (t *Tx) RenameCharacter(ctx context.Context, id, name string) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE Character SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("catalog: rename character: %w", err)
	}
	return expectRow(res, "character", id)
}

// DeleteCharacter removes a character row.
func (t *Tx) DeleteCharacter(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM Character WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete character %s: %w", id, err)
	}
	return expectRow(res, "character", id)
}
