package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// Export file names, written in this order and loaded in this order.
const (
	usersFile  = "users.jsonl"
	boardsFile = "boards.jsonl"
	listsFile  = "lists.jsonl"
)

// ImportStats counts the records an import wrote.
type ImportStats struct {
	Users   int
	Boards  int
	Lists   int
	Skipped int
}

// Export writes every user, board and list to JSONL files in dir. Each file is
// replaced atomically.
func (b *Backend) Export(ctx context.Context, dir string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrDetached
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	users, err := exportRows(ctx, b.db, `SELECT user_id, email, created_at FROM users ORDER BY user_id`,
		func(rows *sql.Rows) (userJSON, error) {
			var u userJSON
			err := rows.Scan(&u.UserID, &u.Email, &u.CreatedAt)
			return u, err
		})
	if err != nil {
		return err
	}
	boards, err := exportRows(ctx, b.db, `SELECT board_id, owner_id, title, created_at FROM boards ORDER BY board_id`,
		func(rows *sql.Rows) (boardJSON, error) {
			var r boardJSON
			err := rows.Scan(&r.BoardID, &r.OwnerID, &r.Title, &r.CreatedAt)
			return r, err
		})
	if err != nil {
		return err
	}
	lists, err := exportRows(ctx, b.db,
		`SELECT list_id, parent, title, ord, cards, created_at, updated_at FROM lists ORDER BY parent, ord, list_id`,
		func(rows *sql.Rows) (listJSON, error) {
			var (
				r     listJSON
				cards string
			)
			if err := rows.Scan(&r.ListID, &r.Parent, &r.Title, &r.Order, &cards, &r.CreatedAt, &r.UpdatedAt); err != nil {
				return r, err
			}
			return r, json.Unmarshal([]byte(cards), &r.Cards)
		})
	if err != nil {
		return err
	}

	if err := writeJSONL(filepath.Join(dir, usersFile), users); err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(dir, boardsFile), boards); err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(dir, listsFile), lists); err != nil {
		return err
	}
	b.log.WithFields(log.Fields{"dir": dir, "users": len(users), "boards": len(boards), "lists": len(lists)}).Info("export written")
	return nil
}

func exportRows[T any](ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("export query: %w", err)
	}
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("export scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Import loads the JSONL files in dir in one transaction, replacing records
// that share an ID. Missing files are treated as empty. Malformed lines and
// records that fail validation are skipped and counted. The import holds the
// data directory lock, and every parent it touched is notified afterwards.
func (b *Backend) Import(ctx context.Context, dir string) (ImportStats, error) {
	var stats ImportStats
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return stats, types.ErrDetached
	}
	if err := b.acquireLock(ctx); err != nil {
		return stats, err
	}
	defer func() { _ = b.lock.Unlock() }()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	err = importFile(filepath.Join(dir, usersFile), &stats.Skipped, func(u userJSON) error {
		if err := validID(u.UserID); err != nil {
			return err
		}
		stats.Users++
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO users (user_id, email, created_at) VALUES (?, ?, ?)`,
			u.UserID, u.Email, orDefault(u.CreatedAt, now))
		return err
	})
	if err != nil {
		return stats, err
	}
	err = importFile(filepath.Join(dir, boardsFile), &stats.Skipped, func(r boardJSON) error {
		if validID(r.BoardID) != nil || validID(r.OwnerID) != nil {
			return types.ErrInvalidID
		}
		if r.Title == "" {
			return types.ErrInvalidTitle
		}
		stats.Boards++
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO boards (board_id, owner_id, title, created_at) VALUES (?, ?, ?, ?)`,
			r.BoardID, r.OwnerID, r.Title, orDefault(r.CreatedAt, now))
		return err
	})
	if err != nil {
		return stats, err
	}
	touched := map[types.ParentPath]bool{}
	err = importFile(filepath.Join(dir, listsFile), &stats.Skipped, func(r listJSON) error {
		parent, err := types.ParseParentPath(r.Parent)
		if err != nil {
			return err
		}
		if err := validID(r.ListID); err != nil {
			return err
		}
		cards, err := encodeCards(r.Cards)
		if err != nil {
			return err
		}
		stats.Lists++
		touched[parent] = true
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO lists (list_id, parent, title, ord, cards, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ListID, parent.String(), orDefault(r.Title, types.DefaultListTitle), r.Order, cards,
			orDefault(r.CreatedAt, now), orDefault(r.UpdatedAt, now))
		return err
	})
	if err != nil {
		return stats, err
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("committing import transaction: %w", err)
	}
	for parent := range touched {
		b.changed(ctx, parent)
	}
	b.log.WithFields(log.Fields{
		"dir": dir, "users": stats.Users, "boards": stats.Boards, "lists": stats.Lists, "skipped": stats.Skipped,
	}).Info("import loaded")
	return stats, nil
}

// importFile decodes each record of path and passes it to insert. Records
// that do not decode, or that insert rejects with a validation error, count
// as skipped. Database errors abort the import.
func importFile[T any](path string, skipped *int, insert func(T) error) error {
	records, err := readJSONL(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, raw := range records {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			*skipped++
			continue
		}
		if err := insert(rec); err != nil {
			if isValidation(err) {
				*skipped++
				continue
			}
			return fmt.Errorf("loading %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func isValidation(err error) bool {
	return errors.Is(err, types.ErrInvalidID) ||
		errors.Is(err, types.ErrInvalidParent) ||
		errors.Is(err, types.ErrInvalidTitle)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
