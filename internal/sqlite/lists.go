package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

const selectLists = `SELECT list_id, title, ord, cards, created_at, updated_at
FROM lists WHERE parent = ? ORDER BY ord, list_id`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// checkLocked validates parent against an attached backend.
// The caller must hold b.mu.
func (b *Backend) checkLocked(parent types.ParentPath) error {
	if !b.attached {
		return types.ErrDetached
	}
	_, err := types.ParseParentPath(parent.String())
	return err
}

// FetchLists returns the lists of parent sorted by order, then ID.
func (b *Backend) FetchLists(ctx context.Context, parent types.ParentPath) ([]types.List, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkLocked(parent); err != nil {
		return nil, err
	}
	return queryLists(ctx, b.db, parent)
}

func queryLists(ctx context.Context, q queryer, parent types.ParentPath) ([]types.List, error) {
	rows, err := q.QueryContext(ctx, selectLists, parent.String())
	if err != nil {
		return nil, fmt.Errorf("query lists of %s: %w", parent, err)
	}
	defer rows.Close()

	lists := []types.List{}
	for rows.Next() {
		var (
			l                       types.List
			cards, created, updated string
		)
		if err := rows.Scan(&l.ListID, &l.Title, &l.Order, &cards, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		if err := json.Unmarshal([]byte(cards), &l.Cards); err != nil {
			return nil, fmt.Errorf("decode cards of list %s: %w", l.ListID, err)
		}
		if l.Cards == nil {
			l.Cards = []types.Card{}
		}
		l.CreatedAt = parseTime(created)
		l.UpdatedAt = parseTime(updated)
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// CreateList stores a new list under parent and returns its UUID v7.
// Lists of the multi-board variant require the board to exist.
func (b *Backend) CreateList(ctx context.Context, parent types.ParentPath, list types.NewList) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkLocked(parent); err != nil {
		return "", err
	}
	if strings.TrimSpace(list.Title) == "" {
		return "", types.ErrInvalidTitle
	}
	if boardID := parent.BoardID(); boardID != "" {
		if _, err := b.getBoard(ctx, parent.UserID(), boardID); err != nil {
			return "", err
		}
	}
	cards, err := encodeCards(list.Cards)
	if err != nil {
		return "", err
	}

	id := generateUUID()
	now := formatTime(time.Now())
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO lists (list_id, parent, title, ord, cards, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, parent.String(), list.Title, list.Order, cards, now, now)
	if err != nil {
		return "", fmt.Errorf("insert list: %w", err)
	}
	b.changed(ctx, parent)
	return id, nil
}

// UpdateList applies a partial update to one list.
// Returns ErrNotFound if the list does not exist under parent.
func (b *Backend) UpdateList(ctx context.Context, parent types.ParentPath, listID string, patch types.ListPatch) error {
	return b.UpdateLists(ctx, parent, []types.ListUpdate{{ListID: listID, Patch: patch}})
}

// UpdateLists applies every update in one transaction and sends one change
// notification. Either all updates commit or none do.
func (b *Backend) UpdateLists(ctx context.Context, parent types.ParentPath, updates []types.ListUpdate) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkLocked(parent); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for _, u := range updates {
		if err := updateList(ctx, tx, parent, u.ListID, u.Patch, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	b.changed(ctx, parent)
	return nil
}

func updateList(ctx context.Context, tx *sql.Tx, parent types.ParentPath, listID string, patch types.ListPatch, now string) error {
	if listID == "" {
		return types.ErrInvalidID
	}
	sets := []string{"updated_at = ?"}
	args := []any{now}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return types.ErrInvalidTitle
		}
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Order != nil {
		sets = append(sets, "ord = ?")
		args = append(args, *patch.Order)
	}
	if patch.Cards != nil {
		cards, err := encodeCards(patch.Cards)
		if err != nil {
			return err
		}
		sets = append(sets, "cards = ?")
		args = append(args, cards)
	}
	args = append(args, parent.String(), listID)

	res, err := tx.ExecContext(ctx,
		"UPDATE lists SET "+strings.Join(sets, ", ")+" WHERE parent = ? AND list_id = ?", args...)
	if err != nil {
		return fmt.Errorf("update list %s: %w", listID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("list %s: %w", listID, types.ErrNotFound)
	}
	return nil
}

// DeleteList removes a list and its embedded cards.
func (b *Backend) DeleteList(ctx context.Context, parent types.ParentPath, listID string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkLocked(parent); err != nil {
		return err
	}
	if listID == "" {
		return types.ErrInvalidID
	}
	res, err := b.db.ExecContext(ctx, `DELETE FROM lists WHERE parent = ? AND list_id = ?`, parent.String(), listID)
	if err != nil {
		return fmt.Errorf("delete list %s: %w", listID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("list %s: %w", listID, types.ErrNotFound)
	}
	b.changed(ctx, parent)
	return nil
}

// encodeCards serializes a card sequence, rejecting cards without an ID.
func encodeCards(cards []types.Card) (string, error) {
	if cards == nil {
		cards = []types.Card{}
	}
	for _, c := range cards {
		if c.CardID == "" {
			return "", fmt.Errorf("card without id: %w", types.ErrInvalidID)
		}
	}
	data, err := json.Marshal(cards)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
