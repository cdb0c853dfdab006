// Package notify fans out "lists changed" pings between writers and live
// subscriptions. A ping carries only the parent path; subscribers refetch.
package notify

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// Notifier delivers change pings for parent paths.
type Notifier interface {
	// Notify tells every watcher of parent that its lists changed.
	Notify(ctx context.Context, parent types.ParentPath) error
	// Watch returns a channel that receives at least one value after every
	// Notify for parent. Pings coalesce: a slow watcher sees one value for
	// many notifications. cancel stops the watch.
	Watch(parent types.ParentPath) (ch <-chan struct{}, cancel func())
	Close() error
}

// Local is an in-process Notifier.
type Local struct {
	mu     sync.Mutex
	subs   map[types.ParentPath]map[chan struct{}]struct{}
	closed bool
}

// NewLocal returns an empty in-process notifier.
func NewLocal() *Local {
	return &Local{subs: make(map[types.ParentPath]map[chan struct{}]struct{})}
}

// Notify pings every watcher of parent without blocking.
func (l *Local) Notify(_ context.Context, parent types.ParentPath) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return types.ErrClosed
	}
	for ch := range l.subs[parent] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Watch registers a watcher for parent. Watching a closed notifier returns a
// closed channel.
func (l *Local) Watch(parent types.ParentPath) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		close(ch)
		return ch, func() {}
	}
	if l.subs[parent] == nil {
		l.subs[parent] = make(map[chan struct{}]struct{})
	}
	l.subs[parent][ch] = struct{}{}
	var once sync.Once
	return ch, func() { once.Do(func() { l.unwatch(parent, ch) }) }
}

func (l *Local) unwatch(parent types.ParentPath, ch chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	set, ok := l.subs[parent]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(l.subs, parent)
	}
}

// Close closes every watch channel. Idempotent.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for _, set := range l.subs {
		for ch := range set {
			close(ch)
		}
	}
	l.subs = nil
	return nil
}

var (
	_ Notifier = (*Local)(nil)
	_ Notifier = (*Redis)(nil)
)
