package sqlite

import (
	"context"
	"reflect"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// subscription refetches the lists of one parent whenever the notifier pings
// it, or on every poll tick, and delivers the result if it changed. Its
// channel holds at most one undelivered snapshot; a newer one replaces it.
type subscription struct {
	b      *Backend
	parent types.ParentPath
	ch     chan types.ListSnapshot

	ping    <-chan struct{}
	unwatch func()
	poll    time.Duration

	stop     chan struct{}
	detached <-chan struct{}
	done     chan struct{}
	once     sync.Once
}

// SubscribeLists opens a live subscription on parent. The initial snapshot
// is ready on the channel when SubscribeLists returns.
func (b *Backend) SubscribeLists(ctx context.Context, parent types.ParentPath) (types.Subscription, error) {
	b.mu.RLock()
	if err := b.checkLocked(parent); err != nil {
		b.mu.RUnlock()
		return nil, err
	}
	// Watch before the first read so no change between the two is missed.
	ping, unwatch := b.notifier.Watch(parent)
	s := &subscription{
		b:        b,
		parent:   parent,
		ch:       make(chan types.ListSnapshot, 1),
		ping:     ping,
		unwatch:  unwatch,
		poll:     b.config.PollInterval,
		stop:     make(chan struct{}),
		detached: b.detached,
		done:     make(chan struct{}),
	}
	initial, err := queryLists(ctx, b.db, parent)
	if err != nil {
		b.mu.RUnlock()
		unwatch()
		return nil, err
	}
	b.subs.Add(1)
	b.mu.RUnlock()

	s.ch <- types.ListSnapshot{Lists: initial}
	go s.run(initial)
	b.log.WithField("parent", parent).Debug("subscription opened")
	return s, nil
}

func (s *subscription) Updates() <-chan types.ListSnapshot { return s.ch }

// Close stops the subscription and closes its channel. Idempotent.
func (s *subscription) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *subscription) run(last []types.List) {
	defer s.b.subs.Done()
	defer close(s.done)
	defer close(s.ch)
	defer s.unwatch()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stop:
		case <-s.detached:
		}
		cancel()
	}()

	var tick <-chan time.Time
	if s.poll > 0 {
		t := time.NewTicker(s.poll)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-s.stop:
			return
		case <-s.detached:
			s.deliver(types.ListSnapshot{Err: types.ErrDetached})
			return
		case _, ok := <-s.ping:
			if !ok {
				s.deliver(types.ListSnapshot{Err: types.ErrClosed})
				return
			}
		case <-tick:
		}

		lists, err := s.b.FetchLists(ctx, s.parent)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.b.log.WithError(err).WithField("parent", s.parent).Warn("subscription refetch failed")
			s.deliver(types.ListSnapshot{Err: err})
			return
		}
		if reflect.DeepEqual(lists, last) {
			continue
		}
		last = lists
		s.deliver(types.ListSnapshot{Lists: lists})
		s.b.log.WithFields(log.Fields{"parent": s.parent, "lists": len(lists)}).Debug("snapshot delivered")
	}
}

// deliver puts snap on the channel, replacing an undelivered older snapshot.
func (s *subscription) deliver(snap types.ListSnapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		case <-s.stop:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}
