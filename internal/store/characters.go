package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/inkwell/internal/catalog"
	"github.com/starford/inkwell/internal/models"
)

// ProfileFromMap builds a character profile from loosely typed input.
// String fields that are missing or not strings become "". attributes
// defaults to "[]"; a string is kept verbatim and anything else is stored
// as its JSON encoding.
func ProfileFromMap(data map[string]any) (models.CharacterProfile, error) {
	str := func(key string) string {
		s, _ := data[key].(string)
		return s
	}
	p := models.CharacterProfile{
		Age:         str("age"),
		Nationality: str("nationality"),
		Sexuality:   str("sexuality"),
		Height:      str("height"),
		Image:       str("image"),
		Attributes:  "[]",
	}
	if v, ok := data["attributes"]; ok {
		switch a := v.(type) {
		case string:
			p.Attributes = a
		default:
			raw, err := json.Marshal(a)
			if err != nil {
				return p, fmt.Errorf("store: encode attributes: %w", err)
			}
			p.Attributes = string(raw)
		}
	}
	return p, nil
}

// CreateCharacter adds a character with an empty profile.
func (s *Store) CreateCharacter(ctx context.Context, name string, folderID *string) (*models.Character, error) {
	if err := requireName("character name", name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var c *models.Character
	err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		var err error
		c, err = tx.CreateCharacter(ctx, name, folderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(CharacterCreated, c.ID)
	return c, nil
}

// LoadCharacter returns a character with its full profile.
func (s *Store) LoadCharacter(ctx context.Context, id string) (*models.Character, error) {
	return s.db.GetCharacter(ctx, id)
}

// SaveCharacter replaces a character's profile; see ProfileFromMap.
func (s *Store) SaveCharacter(ctx context.Context, id string, data map[string]any) error {
	p, err := ProfileFromMap(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		return tx.SaveCharacter(ctx, id, p)
	}); err != nil {
		return err
	}
	s.emit(CharacterSaved, id)
	return nil
}

// RenameCharacter changes a character's name.
func (s *Store) RenameCharacter(ctx context.Context, id, name string) error {
	if err := requireName("character name", name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		return tx.RenameCharacter(ctx, id, name)
	}); err != nil {
		return err
	}
	s.emit(CharacterUpdated, id)
	return nil
}

// DeleteCharacter removes a character and its asset directory.
func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithTx(ctx, func(tx *catalog.Tx) error {
		return tx.DeleteCharacter(ctx, id)
	}); err != nil {
		return err
	}
	if err := s.mirror.RemoveAssets(id); err != nil {
		s.logger.Warn("asset cleanup failed", slog.String("character_id", id), slog.String("error", err.Error()))
	}
	s.emit(CharacterDeleted, id)
	return nil
}

// ImportCharacterImage copies an image into the character's asset
// directory and returns its absolute path. The profile is not changed.
func (s *Store) ImportCharacterImage(ctx context.Context, id, sourcePath string) (string, error) {
	if _, err := s.db.GetCharacter(ctx, id); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror.ImportImage(id, sourcePath)
}
