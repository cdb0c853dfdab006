package engine

import (
	"errors"
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pinboard/internal/ordering"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// Write operation names used in logs and PersistenceError.Op.
const (
	opReorderLists = "reorder-lists"
	opMoveCard     = "move-card"
	opTransferCard = "transfer-card"
)

// OnDragEnd applies a completed drag to the mirror and queues its write.
//
// The mirror is updated before OnDragEnd returns; the write runs later and a
// failure is sent to the Reporter without rolling the mirror back. A
// cancelled drag changes nothing. A drag naming a list or card that is no
// longer in the mirror changes nothing and returns ErrStaleReference.
func (e *Engine) OnDragEnd(result types.DragResult) error {
	fields := log.Fields{"draggable": result.DraggableID, "type": result.Type}
	if result.Cancelled() {
		e.log.WithFields(fields).Debug("drag cancelled")
		return nil
	}

	err := e.applyDrag(result)
	var pe *PersistenceError
	if errors.As(err, &pe) {
		// Queuing failed. The move stands, like any failed write.
		e.report.Report(err)
		return nil
	}
	if err != nil {
		e.log.WithFields(fields).WithError(err).Info("drag ignored")
	}
	return err
}

func (e *Engine) applyDrag(result types.DragResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.parent == "" {
		return types.ErrNotActive
	}
	switch result.Type {
	case types.KindList:
		return e.moveListLocked(result)
	case types.KindCard:
		if result.SameContainer() {
			return e.moveCardLocked(result)
		}
		return e.transferCardLocked(result)
	default:
		return staleRef("unknown drag type %q", result.Type)
	}
}

func (e *Engine) moveListLocked(result types.DragResult) error {
	from := ordering.IndexOf(e.lists, result.DraggableID)
	if from < 0 {
		return staleRef("list %s", result.DraggableID)
	}
	after := ordering.MoveWithin(e.lists, from, result.Destination.Index)
	updates := e.orderUpdatesLocked(after)
	e.lists = after
	if len(updates) == 0 {
		return nil
	}
	return e.persistLocked(opReorderLists, updates, nil)
}

func (e *Engine) moveCardLocked(result types.DragResult) error {
	li := ordering.IndexOf(e.lists, result.Source.DroppableID)
	if li < 0 {
		return staleRef("list %s", result.Source.DroppableID)
	}
	list := e.lists[li]
	ci := list.CardIndex(result.DraggableID)
	if ci < 0 {
		return staleRef("card %s in list %s", result.DraggableID, list.ListID)
	}
	cards := ordering.MoveWithin(list.Cards, ci, result.Destination.Index)
	if sameCardOrder(list.Cards, cards) {
		return nil
	}
	list.Cards = cards
	e.replaceLocked(li, list)
	return e.persistLocked(opMoveCard, []types.ListUpdate{
		{ListID: list.ListID, Patch: types.ListPatch{Cards: cards}},
	}, nil)
}

func (e *Engine) transferCardLocked(result types.DragResult) error {
	si := ordering.IndexOf(e.lists, result.Source.DroppableID)
	if si < 0 {
		return staleRef("source list %s", result.Source.DroppableID)
	}
	di := ordering.IndexOf(e.lists, result.Destination.DroppableID)
	if di < 0 {
		return staleRef("destination list %s", result.Destination.DroppableID)
	}
	src, dst := e.lists[si], e.lists[di]
	srcCards, dstCards, ok := ordering.Transfer(src.Cards, dst.Cards, result.DraggableID, result.Destination.Index)
	if !ok {
		return staleRef("card %s in list %s", result.DraggableID, src.ListID)
	}
	src.Cards, dst.Cards = srcCards, dstCards
	e.replaceLocked(si, src)
	e.replaceLocked(di, dst)
	// Destination first: if the second write fails the card is duplicated
	// rather than lost until the next snapshot.
	return e.persistLocked(opTransferCard, []types.ListUpdate{
		{ListID: dst.ListID, Patch: types.ListPatch{Cards: dstCards}},
		{ListID: src.ListID, Patch: types.ListPatch{Cards: srcCards}},
	}, nil)
}

// replaceLocked swaps in a new version of the list at i without mutating the
// slice other readers may hold.
func (e *Engine) replaceLocked(i int, l types.List) {
	next := slices.Clone(e.lists)
	next[i] = l
	e.lists = next
}

func sameCardOrder(a, b []types.Card) bool {
	return slices.EqualFunc(a, b, func(x, y types.Card) bool { return x.CardID == y.CardID })
}
