package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mesh-intelligence/pinboard/internal/ordering"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// fakeStore is an in-memory Store. When publish is set every write pushes a
// fresh snapshot to subscribers, like a real live subscription. When gate is
// non-nil writes block until it is closed or receives.
type fakeStore struct {
	mu        sync.Mutex
	lists     map[types.ParentPath][]types.List
	subs      map[*fakeSub]struct{}
	calls     []string
	nextID    int
	publish   bool
	failWrite error
	gate      chan struct{}
	subErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lists:   map[types.ParentPath][]types.List{},
		subs:    map[*fakeSub]struct{}{},
		publish: true,
	}
}

// batchStore adds atomic batch updates to fakeStore.
type batchStore struct{ *fakeStore }

func (b batchStore) UpdateLists(ctx context.Context, parent types.ParentPath, updates []types.ListUpdate) error {
	b.record("UpdateLists")
	if err := b.wait(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWrite != nil {
		return b.failWrite
	}
	for _, u := range updates {
		if err := b.applyLocked(parent, u.ListID, u.Patch); err != nil {
			return err
		}
	}
	b.publishLocked(parent)
	return nil
}

type fakeSub struct {
	store  *fakeStore
	parent types.ParentPath
	ch     chan types.ListSnapshot
}

func (s *fakeSub) Updates() <-chan types.ListSnapshot { return s.ch }

func (s *fakeSub) Close() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if _, ok := s.store.subs[s]; ok {
		delete(s.store.subs, s)
		close(s.ch)
	}
	return nil
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeStore) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeStore) wait(ctx context.Context) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeStore) seed(parent types.ParentPath, lists ...types.List) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[parent] = types.CloneLists(lists)
}

func (f *fakeStore) stored(parent types.ParentPath) []types.List {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedCopy(f.lists[parent])
}

func sortedCopy(lists []types.List) []types.List {
	out := types.CloneLists(lists)
	slices.SortStableFunc(out, func(a, b types.List) int { return a.Order - b.Order })
	return out
}

// push delivers a snapshot to every subscriber of parent.
func (f *fakeStore) push(parent types.ParentPath, lists []types.List) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subs {
		if s.parent == parent {
			s.ch <- types.ListSnapshot{Lists: sortedCopy(lists)}
		}
	}
}

// breakSubs delivers a terminal error to every subscriber and closes them.
func (f *fakeStore) breakSubs(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for s := range f.subs {
		s.ch <- types.ListSnapshot{Err: err}
		close(s.ch)
		delete(f.subs, s)
	}
}

func (f *fakeStore) openSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeStore) publishLocked(parent types.ParentPath) {
	if !f.publish {
		return
	}
	for s := range f.subs {
		if s.parent == parent {
			s.ch <- types.ListSnapshot{Lists: sortedCopy(f.lists[parent])}
		}
	}
}

func (f *fakeStore) applyLocked(parent types.ParentPath, listID string, patch types.ListPatch) error {
	lists := f.lists[parent]
	i := ordering.IndexOf(lists, listID)
	if i < 0 {
		return fmt.Errorf("list %s: %w", listID, types.ErrNotFound)
	}
	next := types.CloneLists(lists)
	next[i] = patch.Apply(next[i])
	f.lists[parent] = next
	return nil
}

func (f *fakeStore) SubscribeLists(ctx context.Context, parent types.ParentPath) (types.Subscription, error) {
	f.record("SubscribeLists")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	s := &fakeSub{store: f, parent: parent, ch: make(chan types.ListSnapshot, 64)}
	f.subs[s] = struct{}{}
	s.ch <- types.ListSnapshot{Lists: sortedCopy(f.lists[parent])}
	return s, nil
}

func (f *fakeStore) FetchLists(ctx context.Context, parent types.ParentPath) ([]types.List, error) {
	return f.stored(parent), nil
}

func (f *fakeStore) CreateList(ctx context.Context, parent types.ParentPath, list types.NewList) (string, error) {
	f.record("CreateList")
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return "", f.failWrite
	}
	f.nextID++
	id := fmt.Sprintf("new%d", f.nextID)
	f.lists[parent] = append(f.lists[parent], types.List{ListID: id, Title: list.Title, Order: list.Order, Cards: list.Cards})
	f.publishLocked(parent)
	return id, nil
}

func (f *fakeStore) UpdateList(ctx context.Context, parent types.ParentPath, listID string, patch types.ListPatch) error {
	f.record("UpdateList")
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return f.failWrite
	}
	if err := f.applyLocked(parent, listID, patch); err != nil {
		return err
	}
	f.publishLocked(parent)
	return nil
}

func (f *fakeStore) DeleteList(ctx context.Context, parent types.ParentPath, listID string) error {
	f.record("DeleteList")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return f.failWrite
	}
	lists := f.lists[parent]
	i := ordering.IndexOf(lists, listID)
	if i < 0 {
		return types.ErrNotFound
	}
	f.lists[parent] = slices.Delete(types.CloneLists(lists), i, i+1)
	f.publishLocked(parent)
	return nil
}
