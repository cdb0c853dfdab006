package ordering

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

func lists(ids ...string) []types.List {
	out := make([]types.List, len(ids))
	for i, id := range ids {
		out[i] = types.List{ListID: id, Title: id, Order: i * 10}
	}
	return out
}

func cards(ids ...string) []types.Card {
	out := make([]types.Card, len(ids))
	for i, id := range ids {
		out[i] = types.Card{CardID: id, Title: id}
	}
	return out
}

func listIDs(seq []types.List) []string {
	ids := make([]string, len(seq))
	for i, l := range seq {
		ids[i] = l.ListID
	}
	return ids
}

func cardIDs(seq []types.Card) []string {
	ids := make([]string, len(seq))
	for i, c := range seq {
		ids[i] = c.CardID
	}
	return ids
}

func orders(seq []types.List) []int {
	out := make([]int, len(seq))
	for i, l := range seq {
		out[i] = l.Order
	}
	return out
}

func randomLists(r *rand.Rand) []types.List {
	n := r.Intn(8)
	out := make([]types.List, n)
	for i := range out {
		out[i] = types.List{ListID: fmt.Sprintf("l%d", i), Order: r.Intn(5)}
	}
	return out
}

func TestReindex(t *testing.T) {
	got := Reindex(lists("a", "b", "c"))
	assert.Equal(t, []int{0, 1, 2}, orders(got))
	assert.Equal(t, []string{"a", "b", "c"}, listIDs(got))

	assert.Empty(t, Reindex([]types.List{}))
}

func TestReindexDoesNotModifyInput(t *testing.T) {
	in := lists("a", "b")
	_ = Reindex(in)
	assert.Equal(t, []int{0, 10}, orders(in))
}

func TestReindexIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		seq := randomLists(r)
		once := Reindex(seq)
		assert.Equal(t, once, Reindex(once))
		assert.True(t, Valid(once))
	}
}

func TestMoveWithin(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{name: "last to first", from: 2, to: 0, want: []string{"c", "a", "b"}},
		{name: "first to last", from: 0, to: 2, want: []string{"b", "c", "a"}},
		{name: "middle down", from: 1, to: 2, want: []string{"a", "c", "b"}},
		{name: "to clamped high", from: 0, to: 99, want: []string{"b", "c", "a"}},
		{name: "to clamped low", from: 2, to: -5, want: []string{"c", "a", "b"}},
		{name: "from out of range", from: 7, to: 0, want: []string{"a", "b", "c"}},
		{name: "same position", from: 1, to: 1, want: []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MoveWithin(lists("a", "b", "c"), tt.from, tt.to)
			assert.Equal(t, tt.want, listIDs(got))
			assert.Equal(t, []int{0, 1, 2}, orders(got))
		})
	}
}

func TestMoveWithinSamePositionEqualsReindex(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		seq := randomLists(r)
		for j := range seq {
			assert.Equal(t, Reindex(seq), MoveWithin(seq, j, j))
		}
	}
}

func TestMoveWithinCards(t *testing.T) {
	got := MoveWithin(cards("c1", "c2", "c3"), 0, 1)
	assert.Equal(t, []string{"c2", "c1", "c3"}, cardIDs(got))
}

func TestTransfer(t *testing.T) {
	src, dst, ok := Transfer(cards("c1", "c2"), cards("c3"), "c1", 1)
	require.True(t, ok)
	assert.Equal(t, []string{"c2"}, cardIDs(src))
	assert.Equal(t, []string{"c3", "c1"}, cardIDs(dst))
}

func TestTransferUnknownElement(t *testing.T) {
	inSrc, inDst := cards("c1"), cards("c2")
	src, dst, ok := Transfer(inSrc, inDst, "missing", 0)
	assert.False(t, ok)
	assert.Equal(t, inSrc, src)
	assert.Equal(t, inDst, dst)
}

func TestTransferIntoEmptyAndClamped(t *testing.T) {
	src, dst, ok := Transfer(cards("c1"), nil, "c1", 5)
	require.True(t, ok)
	assert.Empty(t, src)
	assert.Equal(t, []string{"c1"}, cardIDs(dst))
}

func TestTransferConservation(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		ns, nd := 1+r.Intn(6), r.Intn(6)
		var s, d []types.Card
		for j := 0; j < ns; j++ {
			s = append(s, types.Card{CardID: fmt.Sprintf("s%d", j)})
		}
		for j := 0; j < nd; j++ {
			d = append(d, types.Card{CardID: fmt.Sprintf("d%d", j)})
		}
		id := s[r.Intn(ns)].CardID
		newS, newD, ok := Transfer(s, d, id, r.Intn(nd+2)-1)
		require.True(t, ok)

		assert.Equal(t, -1, IndexOf(newS, id))
		count := 0
		for _, c := range newD {
			if c.CardID == id {
				count++
			}
		}
		assert.Equal(t, 1, count)
		assert.Equal(t, ns+nd, len(newS)+len(newD))
	}
}

func TestRemove(t *testing.T) {
	got := Remove(lists("a", "b", "c"), "b")
	assert.Equal(t, []string{"a", "c"}, listIDs(got))
	assert.Equal(t, []int{0, 1}, orders(got))

	assert.Equal(t, []string{"a", "b", "c"}, listIDs(Remove(lists("a", "b", "c"), "zz")))
}

func TestSortByOrder(t *testing.T) {
	in := []types.List{
		{ListID: "b", Order: 1},
		{ListID: "c", Order: 0},
		{ListID: "a", Order: 1},
	}
	got := SortByOrder(in)
	assert.Equal(t, []string{"c", "a", "b"}, listIDs(got))
	assert.Equal(t, []int{0, 1, 2}, orders(got))
	assert.Equal(t, "b", in[0].ListID, "input untouched")
}

func TestChangedOrders(t *testing.T) {
	before := Reindex(lists("a", "b", "c"))
	after := MoveWithin(before, 2, 0)

	updates := ChangedOrders(OrderMap(before), after)
	require.Len(t, updates, 3)
	got := map[string]int{}
	for _, u := range updates {
		got[u.ListID] = *u.Patch.Order
	}
	assert.Equal(t, map[string]int{"c": 0, "a": 1, "b": 2}, got)

	assert.Empty(t, ChangedOrders(OrderMap(before), before))

	four := Reindex(lists("a", "b", "c", "d"))
	assert.Len(t, ChangedOrders(OrderMap(four), MoveWithin(four, 1, 2)), 2)
}

func TestChangedOrdersAgainstSparseStoredOrders(t *testing.T) {
	stored := map[string]int{"a": 0, "b": 10, "c": 20}
	updates := ChangedOrders(stored, Reindex(lists("a", "b", "c")))
	require.Len(t, updates, 2)
	assert.Equal(t, "b", updates[0].ListID)
	assert.Equal(t, 1, *updates[0].Patch.Order)
	assert.Equal(t, "c", updates[1].ListID)

	fresh := ChangedOrders(map[string]int{}, Reindex(lists("x")))
	require.Len(t, fresh, 1)
}
