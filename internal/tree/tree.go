// Package tree deletes folder subtrees across the catalog and the mirror.
package tree

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/inkwell/internal/catalog"
)

// Mirror is the part of the mirror the engine cleans up after a deletion.
type Mirror interface {
	RemoveBody(documentID string) error
	RemoveAssets(characterID string) error
}

// ChildLister lists direct child folders. Both *catalog.DB and *catalog.Tx
// satisfy it.
type ChildLister interface {
	ChildFolderIDs(ctx context.Context, id string) ([]string, error)
}

// Report describes what a subtree deletion removed.
type Report struct {
	// Closure holds every folder reached from the target, in discovery order.
	Closure []string `json:"closure"`
	// FolderOrder is the order folder rows were deleted in (reverse discovery).
	FolderOrder []string `json:"folderOrder"`
	Documents   []string `json:"documents"`
	Characters  []string `json:"characters"`
	// Detached lists folders whose parent link was cleared to break a cycle.
	Detached []string `json:"detached"`
}

// Engine orchestrates recursive folder deletion.
type Engine struct {
	db     catalog.Catalog
	mirror Mirror
	logger *slog.Logger
}

// NewEngine creates a tree deletion engine.
func NewEngine(db catalog.Catalog, mirror Mirror, logger *slog.Logger) *Engine {
	return &Engine{db: db, mirror: mirror, logger: logger}
}

// Closure returns rootID and every folder transitively below it in
// breadth-first discovery order. A child that was already visited can only
// come from a corrupt parent cycle; it is not re-enqueued and is returned in
// backEdges instead.
func Closure(ctx context.Context, q ChildLister, rootID string) (order, backEdges []string, err error) {
	order = []string{rootID}
	visited := map[string]struct{}{rootID: {}}

	for i := 0; i < len(order); i++ {
		children, err := q.ChildFolderIDs(ctx, order[i])
		if err != nil {
			return nil, nil, err
		}
		for _, child := range children {
			if _, seen := visited[child]; seen {
				backEdges = append(backEdges, child)
				continue
			}
			visited[child] = struct{}{}
			order = append(order, child)
		}
	}
	return order, backEdges, nil
}

// DeleteFolder removes folderID together with every folder, document and
// character below it.
//
// All catalog rows go in one transaction: content folder by folder in
// discovery order, then the folder rows deepest first. Any catalog failure
// rolls the whole subtree back. Mirror files are removed only after commit,
// best-effort; a failed removal is logged and left for reconcile.
func (e *Engine) DeleteFolder(ctx context.Context, folderID string) (*Report, error) {
	var rep *Report
	err := e.db.WithTx(ctx, func(tx *catalog.Tx) error {
		if _, err := tx.GetFolder(ctx, folderID); err != nil {
			return err
		}
		closure, backEdges, err := Closure(ctx, tx, folderID)
		if err != nil {
			return err
		}
		rep = &Report{
			Closure:     closure,
			FolderOrder: make([]string, 0, len(closure)),
			Documents:   []string{},
			Characters:  []string{},
			Detached:    []string{},
		}

		for _, fid := range closure {
			docIDs, err := tx.FolderDocumentIDs(ctx, fid)
			if err != nil {
				return err
			}
			for _, id := range docIDs {
				if err := tx.DeleteDocument(ctx, id); err != nil {
					return err
				}
				rep.Documents = append(rep.Documents, id)
			}

			charIDs, err := tx.FolderCharacterIDs(ctx, fid)
			if err != nil {
				return err
			}
			for _, id := range charIDs {
				if err := tx.DeleteCharacter(ctx, id); err != nil {
					return err
				}
				rep.Characters = append(rep.Characters, id)
			}
		}

		for _, fid := range backEdges {
			e.logger.Warn("tree: detaching folder from parent cycle", slog.String("folder_id", fid))
			if err := tx.DetachFolder(ctx, fid); err != nil {
				return err
			}
			rep.Detached = append(rep.Detached, fid)
		}

		for i := len(closure) - 1; i >= 0; i-- {
			if err := tx.DeleteFolder(ctx, closure[i]); err != nil {
				return err
			}
			rep.FolderOrder = append(rep.FolderOrder, closure[i])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tree: delete folder %s: %w", folderID, err)
	}

	e.cleanup(rep)
	e.logger.Info("tree: folder deleted",
		slog.String("folder_id", folderID),
		slog.Int("folders", len(rep.FolderOrder)),
		slog.Int("documents", len(rep.Documents)),
		slog.Int("characters", len(rep.Characters)))
	return rep, nil
}

func (e *Engine) cleanup(rep *Report) {
	for _, id := range rep.Documents {
		if err := e.mirror.RemoveBody(id); err != nil {
			e.logger.Warn("tree: mirror cleanup failed", slog.String("document_id", id), slog.String("error", err.Error()))
		}
	}
	for _, id := range rep.Characters {
		if err := e.mirror.RemoveAssets(id); err != nil {
			e.logger.Warn("tree: asset cleanup failed", slog.String("character_id", id), slog.String("error", err.Error()))
		}
	}
}
