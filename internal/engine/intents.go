package engine

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/pinboard/internal/ordering"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// Flush blocks until every queued write has resolved or ctx ends.
func (e *Engine) Flush(ctx context.Context) error {
	return e.writer.flush(ctx)
}

// newCardID generates a UUID v7 card identifier. Card IDs are never checked
// against the store before display, so they must be globally unique.
func newCardID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Intents share the drag write queue, so an intent issued while a drag write
// is pending lands after it and is never overwritten by it. Each intent
// waits for its own write; ctx bounds the wait, not the write.

// await waits for the result of a queued intent write.
func await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddList creates a list after the last one on the active board and returns
// its ID. An empty title becomes DefaultListTitle. The list is added to the
// mirror once the store has assigned its ID.
func (e *Engine) AddList(ctx context.Context, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		title = types.DefaultListTitle
	}

	var id string
	done := make(chan error, 1)
	e.mu.Lock()
	if e.parent == "" {
		e.mu.Unlock()
		return "", types.ErrNotActive
	}
	err := e.enqueueLocked("create-list", nil, done, func(ctx context.Context, parent types.ParentPath) error {
		// The order is read when the write runs so that earlier queued
		// creates have already claimed theirs.
		e.mu.RLock()
		order := 0
		for _, o := range e.stored {
			order = max(order, o+1)
		}
		e.mu.RUnlock()

		newID, err := e.store.CreateList(ctx, parent, types.NewList{Title: title, Order: order, Cards: []types.Card{}})
		if err != nil {
			return err
		}
		id = newID

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.parent != parent {
			return nil
		}
		e.stored[id] = order
		e.confirmed[id] = order
		if ordering.IndexOf(e.lists, id) < 0 {
			e.lists = append(slices.Clone(e.lists), types.List{ListID: id, Title: title, Order: len(e.lists), Cards: []types.Card{}})
		}
		return nil
	})
	e.mu.Unlock()
	if err != nil {
		return "", err
	}
	if err := await(ctx, done); err != nil {
		return "", err
	}
	return id, nil
}

// RenameList sets a list's title.
func (e *Engine) RenameList(ctx context.Context, listID, title string) error {
	if strings.TrimSpace(title) == "" {
		return types.ErrInvalidTitle
	}
	return e.editList(ctx, "rename-list", listID, func(types.List) (types.ListPatch, error) {
		return types.ListPatch{Title: &title}, nil
	})
}

// DeleteList removes a list and its cards, then renumbers the remaining
// lists so their stored orders stay dense.
func (e *Engine) DeleteList(ctx context.Context, listID string) error {
	done := make(chan error, 1)
	if err := e.queueDelete(listID, done); err != nil {
		return err
	}
	return await(ctx, done)
}

func (e *Engine) queueDelete(listID string, done chan<- error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkListLocked(listID); err != nil {
		return err
	}
	e.lists = ordering.Reindex(ordering.Remove(e.lists, listID))
	delete(e.stored, listID)
	delete(e.confirmed, listID)
	updates := e.orderUpdatesLocked(e.lists)
	return e.enqueueLocked("delete-list", updates, done, func(ctx context.Context, parent types.ParentPath) error {
		if err := e.store.DeleteList(ctx, parent, listID); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		return e.writeUpdates(ctx, parent, updates)
	})
}

// AddCard appends a card to a list and returns it. Empty draft fields take
// the default title and description.
func (e *Engine) AddCard(ctx context.Context, listID string, draft types.CardDraft) (types.Card, error) {
	card := types.Card{CardID: newCardID(), Title: draft.Title, Description: draft.Description}
	if strings.TrimSpace(card.Title) == "" {
		card.Title = types.DefaultCardTitle
	}
	if card.Description == "" {
		card.Description = types.DefaultCardDescription
	}
	err := e.editList(ctx, "add-card", listID, func(l types.List) (types.ListPatch, error) {
		return types.ListPatch{Cards: append(l.Cards, card)}, nil
	})
	if err != nil {
		return types.Card{}, err
	}
	return card, nil
}

// UpdateCard applies a partial update to one card.
func (e *Engine) UpdateCard(ctx context.Context, listID, cardID string, patch types.CardPatch) error {
	return e.editList(ctx, "update-card", listID, func(l types.List) (types.ListPatch, error) {
		ci := l.CardIndex(cardID)
		if ci < 0 {
			return types.ListPatch{}, staleRef("card %s in list %s", cardID, listID)
		}
		l.Cards[ci] = patch.Apply(l.Cards[ci])
		return types.ListPatch{Cards: l.Cards}, nil
	})
}

// DeleteCard removes one card from a list.
func (e *Engine) DeleteCard(ctx context.Context, listID, cardID string) error {
	return e.editList(ctx, "delete-card", listID, func(l types.List) (types.ListPatch, error) {
		if l.CardIndex(cardID) < 0 {
			return types.ListPatch{}, staleRef("card %s in list %s", cardID, listID)
		}
		return types.ListPatch{Cards: ordering.Remove(l.Cards, cardID)}, nil
	})
}

// editList applies the patch edit derives from the current list to the
// mirror, queues its write, and waits for it.
func (e *Engine) editList(ctx context.Context, op, listID string, edit func(types.List) (types.ListPatch, error)) error {
	done := make(chan error, 1)
	if err := e.queueEdit(op, listID, edit, done); err != nil {
		return err
	}
	return await(ctx, done)
}

func (e *Engine) queueEdit(op, listID string, edit func(types.List) (types.ListPatch, error), done chan<- error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkListLocked(listID); err != nil {
		return err
	}
	i := ordering.IndexOf(e.lists, listID)
	patch, err := edit(e.lists[i].Clone())
	if err != nil {
		return err
	}
	e.replaceLocked(i, patch.Apply(e.lists[i]))
	return e.persistLocked(op, []types.ListUpdate{{ListID: listID, Patch: patch}}, done)
}

// checkListLocked reports whether listID can be edited on the active board.
func (e *Engine) checkListLocked(listID string) error {
	if e.parent == "" {
		return types.ErrNotActive
	}
	if ordering.IndexOf(e.lists, listID) < 0 {
		return staleRef("list %s", listID)
	}
	return nil
}
