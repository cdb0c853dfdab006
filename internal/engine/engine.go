// Package engine implements the board reconciliation engine. It owns the
// local mirror of the active board's lists, applies drag results to it
// optimistically, queues the matching writes to the store, and replaces the
// mirror wholesale whenever the store's live subscription delivers a snapshot.
//
// The snapshot always wins. A snapshot that arrives between an optimistic
// move and its write's own confirmation overwrites the move until the
// confirming snapshot arrives; no merge is attempted.
package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pinboard/internal/ordering"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

const defaultWriteTimeout = 10 * time.Second

// Engine reconciles optimistic local edits with authoritative snapshots for
// one active board at a time. All methods are safe for concurrent use.
type Engine struct {
	store        types.Store
	log          *log.Logger
	report       Reporter
	writeTimeout time.Duration
	writer       *writer

	// activateMu serializes Activate and Deactivate.
	activateMu sync.Mutex

	mu      sync.RWMutex
	parent  types.ParentPath
	session *session
	lists   []types.List // normalized, sorted by order
	stale   bool

	// stored holds the orders the store will have once every queued write
	// lands; confirmed holds only what a snapshot or a successful write has
	// shown. They differ while writes are queued or after one failed.
	stored    map[string]int
	confirmed map[string]int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithReporter sets where persistence and subscription failures go.
// Defaults to a reporter that logs them as warnings.
func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.report = r }
}

// WithWriteTimeout bounds each queued write. Defaults to 10s.
func WithWriteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.writeTimeout = d
		}
	}
}

// New creates an engine writing through store. No board is active until
// Activate is called.
func New(store types.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		log:          log.StandardLogger(),
		writeTimeout: defaultWriteTimeout,
		lists:        []types.List{},
		stored:       map[string]int{},
		confirmed:    map[string]int{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.report == nil {
		e.report = NewLogReporter(e.log)
	}
	e.writer = newWriter(e.log, e.report, e.writeTimeout)
	return e
}

// Lists returns a deep copy of the local mirror in display order.
func (e *Engine) Lists() []types.List {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return types.CloneLists(e.lists)
}

// List returns a copy of one list from the mirror.
func (e *Engine) List(listID string) (types.List, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i := ordering.IndexOf(e.lists, listID)
	if i < 0 {
		return types.List{}, false
	}
	return e.lists[i].Clone(), true
}

// Parent returns the parent path of the active board, or "" when none is
// active.
func (e *Engine) Parent() types.ParentPath {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parent
}

// Stale reports whether the live subscription has failed. The mirror keeps
// its last state until the board is activated again.
func (e *Engine) Stale() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stale
}

// Close releases the subscription and waits for queued writes to finish.
func (e *Engine) Close() error {
	err := e.Deactivate()
	e.writer.close()
	return err
}

// ApplySnapshot replaces the mirror with remote, sorted by order and
// reindexed. It is the only path by which external changes become visible.
func (e *Engine) ApplySnapshot(remote []types.List) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyLocked(remote)
}

func (e *Engine) applyLocked(remote []types.List) {
	e.stored = ordering.OrderMap(remote)
	e.confirmed = ordering.OrderMap(remote)
	e.lists = ordering.SortByOrder(remote)
	e.log.WithFields(log.Fields{"parent": e.parent, "lists": len(e.lists)}).Debug("snapshot applied")
}

// orderUpdatesLocked returns an order patch for every list in after whose
// order differs from either the expected or the confirmed stored order. A
// list whose earlier write failed is therefore written again.
func (e *Engine) orderUpdatesLocked(after []types.List) []types.ListUpdate {
	expected := ordering.ChangedOrders(e.stored, after)
	unconfirmed := ordering.ChangedOrders(e.confirmed, after)
	if len(unconfirmed) == 0 {
		return expected
	}
	seen := make(map[string]bool, len(expected))
	for _, u := range expected {
		seen[u.ListID] = true
	}
	for _, u := range unconfirmed {
		if !seen[u.ListID] {
			expected = append(expected, u)
		}
	}
	slices.SortStableFunc(expected, func(a, b types.ListUpdate) int { return *a.Patch.Order - *b.Patch.Order })
	return expected
}

// persistLocked records the expected stored orders and queues the write.
// Confirmed orders move only once the write succeeds. A non-nil wait
// receives the write's result instead of the Reporter.
func (e *Engine) persistLocked(op string, updates []types.ListUpdate, wait chan<- error) error {
	return e.enqueueLocked(op, updates, wait, func(ctx context.Context, parent types.ParentPath) error {
		return e.writeUpdates(ctx, parent, updates)
	})
}

// enqueueLocked queues write for the active parent. updates name the order
// changes it carries, recorded as expected now and confirmed on success.
func (e *Engine) enqueueLocked(op string, updates []types.ListUpdate, wait chan<- error, write func(context.Context, types.ParentPath) error) error {
	for _, u := range updates {
		if u.Patch.Order != nil {
			e.stored[u.ListID] = *u.Patch.Order
		}
	}
	parent := e.parent
	return e.writer.enqueue(pendingWrite{
		parent:    parent,
		operation: op,
		result:    wait,
		persist: func(ctx context.Context) error {
			if err := write(ctx, parent); err != nil {
				return err
			}
			e.confirm(parent, updates)
			return nil
		},
	})
}

// confirm records orders the store accepted.
func (e *Engine) confirm(parent types.ParentPath, updates []types.ListUpdate) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.parent != parent {
		return
	}
	for _, u := range updates {
		if u.Patch.Order != nil {
			e.confirmed[u.ListID] = *u.Patch.Order
		}
	}
}

// writeUpdates issues updates as one atomic batch when the store supports
// it, otherwise one UpdateList at a time, stopping at the first failure.
func (e *Engine) writeUpdates(ctx context.Context, parent types.ParentPath, updates []types.ListUpdate) error {
	if b, ok := e.store.(types.BatchUpdater); ok && len(updates) > 1 {
		return b.UpdateLists(ctx, parent, updates)
	}
	for _, u := range updates {
		if err := e.store.UpdateList(ctx, parent, u.ListID, u.Patch); err != nil {
			return err
		}
	}
	return nil
}
