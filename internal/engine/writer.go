package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// errWriterClosed is reported for writes enqueued after Close.
var errWriterClosed = errors.New("engine writer is closed")

// pendingWrite is one queued persistence operation. A drag or intent
// produces exactly one pendingWrite, however many documents it touches.
type pendingWrite struct {
	parent    types.ParentPath
	operation string
	persist   func(ctx context.Context) error

	// result, when set, receives the outcome instead of the Reporter. It
	// must have room for one value.
	result chan<- error
}

// writer runs pending writes one at a time in the order they were queued.
// Drag writes are waited on only through flush; intents wait on result.
type writer struct {
	log     *log.Logger
	report  Reporter
	timeout time.Duration

	mu       sync.Mutex
	queue    []pendingWrite
	inflight int           // queued plus running
	idle     chan struct{} // closed when inflight drops to zero
	closed   bool

	wake chan struct{}
	done chan struct{}
}

func newWriter(l *log.Logger, report Reporter, timeout time.Duration) *writer {
	w := &writer{
		log:     l,
		report:  report,
		timeout: timeout,
		idle:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	close(w.idle)
	go w.run()
	return w
}

// enqueue adds a write to the queue and returns immediately. After close it
// queues nothing and returns a PersistenceError; the caller decides where
// that goes, since it may hold locks the Reporter needs.
func (w *writer) enqueue(pw pendingWrite) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return &PersistenceError{Op: pw.operation, Parent: pw.parent, Err: errWriterClosed}
	}
	if w.inflight == 0 {
		w.idle = make(chan struct{})
	}
	w.inflight++
	w.queue = append(w.queue, pw)
	w.mu.Unlock()
	w.signal()
	return nil
}

func (w *writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// flush blocks until every write queued so far has resolved.
func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	idle := w.idle
	w.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close drains the queue and stops the worker. Idempotent.
func (w *writer) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.signal()
	<-w.done
}

func (w *writer) run() {
	defer close(w.done)
	for {
		pw, ok := w.next()
		if !ok {
			return
		}
		w.execute(pw)

		w.mu.Lock()
		w.inflight--
		if w.inflight == 0 {
			close(w.idle)
		}
		w.mu.Unlock()
	}
}

// next returns the oldest queued write, waiting for one if the queue is
// empty. ok is false once the writer is closed and drained.
func (w *writer) next() (pendingWrite, bool) {
	for {
		w.mu.Lock()
		if len(w.queue) > 0 {
			pw := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()
			return pw, true
		}
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return pendingWrite{}, false
		}
		<-w.wake
	}
}

func (w *writer) execute(pw pendingWrite) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	fields := log.Fields{"parent": pw.parent, "op": pw.operation}
	start := time.Now()
	err := pw.persist(ctx)
	if err != nil {
		w.log.WithFields(fields).WithError(err).Debug("write failed")
		err = &PersistenceError{Op: pw.operation, Parent: pw.parent, Err: err}
	} else {
		w.log.WithFields(fields).WithField("elapsed", time.Since(start)).Debug("write persisted")
	}
	switch {
	case pw.result != nil:
		pw.result <- err
	case err != nil:
		w.report.Report(err)
	}
}
