package types

import (
	"context"
	"errors"
)

// Store is the persistence adapter the engine writes through. Every method
// that suspends on the remote store takes a context.
type Store interface {
	// SubscribeLists opens a live subscription on the lists of parent. The
	// first snapshot is delivered immediately; later snapshots follow every
	// committed change.
	SubscribeLists(ctx context.Context, parent ParentPath) (Subscription, error)

	// FetchLists returns the lists of parent sorted by order.
	FetchLists(ctx context.Context, parent ParentPath) ([]List, error)

	// CreateList stores a new list and returns the assigned ID.
	CreateList(ctx context.Context, parent ParentPath, list NewList) (string, error)

	// UpdateList applies a partial update.
	// Returns ErrNotFound if the list no longer exists.
	UpdateList(ctx context.Context, parent ParentPath, listID string, patch ListPatch) error

	// DeleteList removes a list and its embedded cards.
	// Returns ErrNotFound if the list does not exist.
	DeleteList(ctx context.Context, parent ParentPath, listID string) error
}

// BatchUpdater is implemented by stores that can apply several list updates
// atomically with a single change notification.
type BatchUpdater interface {
	UpdateLists(ctx context.Context, parent ParentPath, updates []ListUpdate) error
}

// BoardStore manages users and boards, the CRUD glue around the lists.
type BoardStore interface {
	// EnsureUser upserts the user record, merging a non-empty email.
	EnsureUser(ctx context.Context, user User) error
	CreateBoard(ctx context.Context, ownerID, title string) (Board, error)
	GetBoard(ctx context.Context, ownerID, boardID string) (Board, error)
	ListBoards(ctx context.Context, ownerID string) ([]Board, error)
	// DeleteBoard removes the board and every list under it.
	DeleteBoard(ctx context.Context, ownerID, boardID string) error
}

// ListSnapshot is one delivery on a subscription: either a complete,
// order-sorted list sequence or a terminal error.
type ListSnapshot struct {
	Lists []List
	Err   error
}

// Subscription is a live feed of list snapshots. Updates is closed after
// Close or after a terminal error has been delivered. Close is idempotent.
type Subscription interface {
	Updates() <-chan ListSnapshot
	Close() error
}

// Store errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity ID")
	ErrInvalidParent = errors.New("invalid parent path")
	ErrInvalidTitle  = errors.New("title must not be empty")
	ErrDetached      = errors.New("store is detached")
	ErrAttached      = errors.New("store is already attached")
	ErrClosed        = errors.New("subscription closed")
	ErrLockHeld      = errors.New("data directory is locked by another process")
)

// Engine errors.
var (
	// ErrStaleReference marks a drag or intent naming a container or entity
	// that is no longer in the local mirror. It is recoverable.
	ErrStaleReference = errors.New("stale reference")
	ErrNotActive      = errors.New("no board is active")
)
