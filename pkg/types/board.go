package types

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied when a view creates a list or card without a title.
const (
	DefaultListTitle       = "New List"
	DefaultCardTitle       = "New Card"
	DefaultCardDescription = "Description"
)

// User is the owner of boards and lists. It is upserted on first use.
type User struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Board groups lists under a title for one owner.
type Board struct {
	BoardID   string    `json:"board_id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Card is a titled unit of work owned by exactly one List. Cards have no order
// field; their position in List.Cards is their order.
type Card struct {
	CardID      string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// EntityID returns the card identifier.
func (c Card) EntityID() string { return c.CardID }

// WithOrder returns the card unchanged. Card order is positional.
func (c Card) WithOrder(int) Card { return c }

// List is an ordered column of cards. Order is unique among the siblings of
// one parent and dense (0..n-1) after every successful write.
type List struct {
	ListID    string    `json:"id"`
	Title     string    `json:"title"`
	Order     int       `json:"order"`
	Cards     []Card    `json:"cards"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the list identifier.
func (l List) EntityID() string { return l.ListID }

// WithOrder returns a copy of the list with Order set.
func (l List) WithOrder(order int) List {
	l.Order = order
	return l
}

// Clone returns a copy of the list whose card slice does not alias l.Cards.
func (l List) Clone() List {
	l.Cards = append([]Card(nil), l.Cards...)
	if l.Cards == nil {
		l.Cards = []Card{}
	}
	return l
}

// CardIndex returns the position of the card with the given ID, or -1.
func (l List) CardIndex(cardID string) int {
	for i, c := range l.Cards {
		if c.CardID == cardID {
			return i
		}
	}
	return -1
}

// CloneLists deep-copies a list sequence.
func CloneLists(lists []List) []List {
	out := make([]List, len(lists))
	for i, l := range lists {
		out[i] = l.Clone()
	}
	return out
}

// NewList holds the fields of a list about to be created. The store assigns
// the identifier.
type NewList struct {
	Title string
	Order int
	Cards []Card
}

// ListPatch is a partial list update. Nil fields are left unchanged. A non-nil
// Cards replaces the whole embedded card sequence.
type ListPatch struct {
	Title *string
	Order *int
	Cards []Card
}

// IsEmpty reports whether the patch changes nothing.
func (p ListPatch) IsEmpty() bool {
	return p.Title == nil && p.Order == nil && p.Cards == nil
}

// Apply returns l with the patch applied.
func (p ListPatch) Apply(l List) List {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Order != nil {
		l.Order = *p.Order
	}
	if p.Cards != nil {
		l.Cards = append([]Card{}, p.Cards...)
	}
	return l
}

// ListUpdate pairs a list ID with a patch for batch writes.
type ListUpdate struct {
	ListID string
	Patch  ListPatch
}

// CardDraft holds the fields of a card about to be added. Empty fields take
// the Default* values.
type CardDraft struct {
	Title       string
	Description string
}

// CardPatch is a partial card update. Nil fields are left unchanged.
type CardPatch struct {
	Title       *string
	Description *string
}

// Apply returns c with the patch applied.
func (p CardPatch) Apply(c Card) Card {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	return c
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// ParentPath names the collection a set of sibling lists belongs to.
//
//	users/{uid}/lists                   single-board variant
//	users/{uid}/boards/{boardId}/lists  multi-board variant
type ParentPath string

// UserLists returns the parent path of a user's own lists.
func UserLists(userID string) ParentPath {
	return ParentPath("users/" + userID + "/lists")
}

// BoardLists returns the parent path of the lists on one board.
func BoardLists(userID, boardID string) ParentPath {
	return ParentPath("users/" + userID + "/boards/" + boardID + "/lists")
}

// ParseParentPath validates s and returns it as a ParentPath.
// Returns ErrInvalidParent when s matches neither shape.
func ParseParentPath(s string) (ParentPath, error) {
	parts := strings.Split(s, "/")
	switch {
	case len(parts) == 3 && parts[0] == "users" && parts[1] != "" && parts[2] == "lists":
	case len(parts) == 5 && parts[0] == "users" && parts[1] != "" && parts[2] == "boards" && parts[3] != "" && parts[4] == "lists":
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidParent, s)
	}
	return ParentPath(s), nil
}

// UserID returns the owning user segment of the path.
func (p ParentPath) UserID() string {
	parts := strings.Split(string(p), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// BoardID returns the board segment of the path, or "" for the single-board
// variant.
func (p ParentPath) BoardID() string {
	parts := strings.Split(string(p), "/")
	if len(parts) == 5 {
		return parts[3]
	}
	return ""
}

func (p ParentPath) String() string { return string(p) }
