package sqlite

import (
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// JSON record structures for the export files. Timestamps are RFC 3339.

// userJSON represents a user in users.jsonl.
type userJSON struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// boardJSON represents a board in boards.jsonl.
type boardJSON struct {
	BoardID   string `json:"board_id"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// listJSON represents a list in lists.jsonl, cards embedded.
type listJSON struct {
	ListID    string       `json:"list_id"`
	Parent    string       `json:"parent"`
	Title     string       `json:"title"`
	Order     int          `json:"order"`
	Cards     []types.Card `json:"cards"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
}
