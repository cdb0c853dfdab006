package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// validID rejects IDs that would break parent paths.
func validID(id string) error {
	if id == "" || strings.Contains(id, "/") {
		return types.ErrInvalidID
	}
	return nil
}

// EnsureUser inserts the user on first use. On later calls a non-empty
// email replaces the stored one and an empty email leaves it unchanged.
func (b *Backend) EnsureUser(ctx context.Context, user types.User) error {
	if err := validID(user.UserID); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrDetached
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO users (user_id, email, created_at) VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    email = CASE WHEN excluded.email != '' THEN excluded.email ELSE users.email END`,
		user.UserID, user.Email, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("ensure user %s: %w", user.UserID, err)
	}
	return nil
}

// CreateBoard creates a board owned by ownerID.
func (b *Backend) CreateBoard(ctx context.Context, ownerID, title string) (types.Board, error) {
	if err := validID(ownerID); err != nil {
		return types.Board{}, err
	}
	if strings.TrimSpace(title) == "" {
		return types.Board{}, types.ErrInvalidTitle
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Board{}, types.ErrDetached
	}

	board := types.Board{
		BoardID:   generateUUID(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO boards (board_id, owner_id, title, created_at) VALUES (?, ?, ?, ?)`,
		board.BoardID, board.OwnerID, board.Title, formatTime(board.CreatedAt))
	if err != nil {
		return types.Board{}, fmt.Errorf("insert board: %w", err)
	}
	return board, nil
}

// GetBoard returns one of ownerID's boards.
// Returns ErrNotFound if the board does not exist or belongs to someone else.
func (b *Backend) GetBoard(ctx context.Context, ownerID, boardID string) (types.Board, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Board{}, types.ErrDetached
	}
	return b.getBoard(ctx, ownerID, boardID)
}

func (b *Backend) getBoard(ctx context.Context, ownerID, boardID string) (types.Board, error) {
	if validID(ownerID) != nil || validID(boardID) != nil {
		return types.Board{}, types.ErrInvalidID
	}
	row := b.db.QueryRowContext(ctx,
		`SELECT board_id, owner_id, title, created_at FROM boards WHERE board_id = ? AND owner_id = ?`,
		boardID, ownerID)
	board, err := scanBoard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Board{}, fmt.Errorf("board %s: %w", boardID, types.ErrNotFound)
	}
	return board, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBoard(s scanner) (types.Board, error) {
	var (
		board   types.Board
		created string
	)
	if err := s.Scan(&board.BoardID, &board.OwnerID, &board.Title, &created); err != nil {
		return types.Board{}, err
	}
	board.CreatedAt = parseTime(created)
	return board, nil
}

// ListBoards returns ownerID's boards, oldest first.
func (b *Backend) ListBoards(ctx context.Context, ownerID string) ([]types.Board, error) {
	if err := validID(ownerID); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrDetached
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT board_id, owner_id, title, created_at FROM boards WHERE owner_id = ? ORDER BY created_at, board_id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("query boards: %w", err)
	}
	defer rows.Close()

	boards := []types.Board{}
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, board)
	}
	return boards, rows.Err()
}

// DeleteBoard removes the board and every list under it in one transaction.
func (b *Backend) DeleteBoard(ctx context.Context, ownerID, boardID string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrDetached
	}
	if _, err := b.getBoard(ctx, ownerID, boardID); err != nil {
		return err
	}
	parent := types.BoardLists(ownerID, boardID)

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM lists WHERE parent = ?`, parent.String()); err != nil {
		return fmt.Errorf("delete lists of board %s: %w", boardID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE board_id = ?`, boardID); err != nil {
		return fmt.Errorf("delete board %s: %w", boardID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	b.changed(ctx, parent)
	return nil
}
