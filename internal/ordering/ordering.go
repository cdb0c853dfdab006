// Package ordering keeps sibling sequences dense and collision free. Every
// structural change (move, transfer, removal) ends in Reindex, so order keys
// are always 0..n-1 in sequence order.
package ordering

import (
	"cmp"
	"slices"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// Element is a sibling that can be identified and renumbered. WithOrder
// returns a copy; elements whose order is positional return themselves.
type Element[T any] interface {
	EntityID() string
	WithOrder(order int) T
}

// Reindex returns a new sequence whose elements carry their zero-based
// position as order. The input is not modified.
func Reindex[T Element[T]](seq []T) []T {
	out := make([]T, len(seq))
	for i, e := range seq {
		out[i] = e.WithOrder(i)
	}
	return out
}

// MoveWithin removes the element at from and reinserts it at to, then
// reindexes. to is clamped to the bounds of the shortened sequence. An out of
// range from leaves the order unchanged.
func MoveWithin[T Element[T]](seq []T, from, to int) []T {
	if from < 0 || from >= len(seq) {
		return Reindex(seq)
	}
	moved := seq[from]
	rest := make([]T, 0, len(seq))
	rest = append(rest, seq[:from]...)
	rest = append(rest, seq[from+1:]...)
	return Reindex(insertAt(rest, moved, to))
}

// Transfer removes the element with id from src and inserts it into dst at
// destIndex, reindexing both. ok is false, and the inputs are returned
// unchanged, when id is not in src.
func Transfer[T Element[T]](src, dst []T, id string, destIndex int) (newSrc, newDst []T, ok bool) {
	idx := IndexOf(src, id)
	if idx < 0 {
		return src, dst, false
	}
	moved := src[idx]
	rest := make([]T, 0, len(src))
	rest = append(rest, src[:idx]...)
	rest = append(rest, src[idx+1:]...)
	return Reindex(rest), Reindex(insertAt(slices.Clone(dst), moved, destIndex)), true
}

// Remove drops the element with id and reindexes. The sequence is returned
// reindexed but otherwise unchanged when id is absent.
func Remove[T Element[T]](seq []T, id string) []T {
	out := make([]T, 0, len(seq))
	for _, e := range seq {
		if e.EntityID() != id {
			out = append(out, e)
		}
	}
	return Reindex(out)
}

// IndexOf returns the position of the element with id, or -1.
func IndexOf[T Element[T]](seq []T, id string) int {
	return slices.IndexFunc(seq, func(e T) bool { return e.EntityID() == id })
}

func insertAt[T any](seq []T, e T, at int) []T {
	at = max(0, min(at, len(seq)))
	return slices.Insert(seq, at, e)
}

// SortByOrder sorts lists by order, breaking ties by ID so that two replicas
// seeing the same tied data agree on one sequence. The result is reindexed.
func SortByOrder(lists []types.List) []types.List {
	out := types.CloneLists(lists)
	slices.SortStableFunc(out, func(a, b types.List) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ListID, b.ListID)
	})
	return Reindex(out)
}

// OrderMap returns the order of every list keyed by ID.
func OrderMap(lists []types.List) map[string]int {
	m := make(map[string]int, len(lists))
	for _, l := range lists {
		m[l.ListID] = l.Order
	}
	return m
}

// ChangedOrders returns one order patch for every list in after whose order
// differs from its stored order. Lists with no stored order are included.
func ChangedOrders(stored map[string]int, after []types.List) []types.ListUpdate {
	var updates []types.ListUpdate
	for _, l := range after {
		if o, ok := stored[l.ListID]; ok && o == l.Order {
			continue
		}
		updates = append(updates, types.ListUpdate{
			ListID: l.ListID,
			Patch:  types.ListPatch{Order: types.IntPtr(l.Order)},
		})
	}
	return updates
}

// Valid reports whether the orders of lists are exactly 0..n-1 in sequence.
func Valid(lists []types.List) bool {
	for i, l := range lists {
		if l.Order != i {
			return false
		}
	}
	return true
}
