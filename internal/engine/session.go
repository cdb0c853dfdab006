package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// session is the scoped live subscription of one active board.
type session struct {
	parent types.ParentPath
	sub    types.Subscription

	ready     chan struct{} // closed after the first snapshot is applied
	readyOnce sync.Once
	done      chan struct{} // closed when the reader goroutine exits
	released  atomic.Bool
	err       error // set before done is closed
}

// Activate makes parent the active board. Any previous subscription is
// released first. Activate returns once the initial snapshot is in the
// mirror, or with an error if the subscription fails before that or ctx ends.
func (e *Engine) Activate(ctx context.Context, parent types.ParentPath) error {
	e.activateMu.Lock()
	defer e.activateMu.Unlock()

	if err := e.deactivateLocked(); err != nil {
		e.log.WithError(err).Debug("release previous subscription")
	}

	sub, err := e.store.SubscribeLists(ctx, parent)
	if err != nil {
		return &SubscriptionError{Parent: parent, Err: err}
	}
	s := &session{
		parent: parent,
		sub:    sub,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}

	e.mu.Lock()
	e.parent = parent
	e.session = s
	e.lists = []types.List{}
	e.stored = map[string]int{}
	e.confirmed = map[string]int{}
	e.stale = false
	e.mu.Unlock()

	go e.read(s)

	select {
	case <-s.ready:
		e.log.WithField("parent", parent).Debug("board activated")
		return nil
	case <-s.done:
		err := s.err
		_ = e.deactivateLocked()
		return err
	case <-ctx.Done():
		_ = e.deactivateLocked()
		return ctx.Err()
	}
}

// Deactivate releases the live subscription and clears the mirror.
// Idempotent.
func (e *Engine) Deactivate() error {
	e.activateMu.Lock()
	defer e.activateMu.Unlock()
	return e.deactivateLocked()
}

func (e *Engine) deactivateLocked() error {
	e.mu.Lock()
	s := e.session
	e.session = nil
	e.parent = ""
	e.lists = []types.List{}
	e.stored = map[string]int{}
	e.confirmed = map[string]int{}
	e.stale = false
	e.mu.Unlock()

	if s == nil {
		return nil
	}
	s.released.Store(true)
	err := s.sub.Close()
	<-s.done
	return err
}

// read applies every snapshot from s until the subscription ends. A
// subscription that ends without being released marks the board stale.
func (e *Engine) read(s *session) {
	defer close(s.done)
	for snap := range s.sub.Updates() {
		if snap.Err != nil {
			e.fail(s, snap.Err)
			return
		}
		e.mu.Lock()
		if e.session == s {
			e.applyLocked(snap.Lists)
		}
		e.mu.Unlock()
		s.readyOnce.Do(func() { close(s.ready) })
	}
	if !s.released.Load() {
		e.fail(s, types.ErrClosed)
	}
}

func (e *Engine) fail(s *session, cause error) {
	if s.released.Load() {
		return
	}
	s.err = &SubscriptionError{Parent: s.parent, Err: cause}
	e.mu.Lock()
	if e.session == s {
		e.stale = true
	}
	e.mu.Unlock()
	select {
	case <-s.ready:
		e.report.Report(s.err)
	default:
		// Activate is still waiting and returns s.err itself.
	}
}
