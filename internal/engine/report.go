package engine

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// Reporter receives failures that happen away from the caller: queued writes
// that the store rejected and live subscriptions that broke. Report is never
// called with the mirror locked, so it may read the engine, but it must not
// call Activate, Deactivate, Flush or an intent.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

// Report calls f(err).
func (f ReporterFunc) Report(err error) { f(err) }

// NewLogReporter returns a Reporter that logs each failure as a warning.
func NewLogReporter(l *log.Logger) Reporter {
	return ReporterFunc(func(err error) {
		entry := l.WithError(err)
		var pe *PersistenceError
		var se *SubscriptionError
		switch {
		case errors.As(err, &pe):
			entry.WithFields(log.Fields{"parent": pe.Parent, "op": pe.Op}).Warn("board change was not saved")
		case errors.As(err, &se):
			entry.WithField("parent", se.Parent).Warn("live updates stopped, board may be stale")
		default:
			entry.Warn("board error")
		}
	})
}

// PersistenceError is a write the store did not complete. The optimistic
// state it belongs to is kept.
type PersistenceError struct {
	Op     string
	Parent types.ParentPath
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s on %s: %v", e.Op, e.Parent, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SubscriptionError is a live subscription that errored or disconnected.
// The engine does not reconnect; activating the board again does.
type SubscriptionError struct {
	Parent types.ParentPath
	Err    error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription on %s: %v", e.Parent, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// staleRef builds an ErrStaleReference with detail.
func staleRef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrStaleReference, fmt.Sprintf(format, args...))
}
