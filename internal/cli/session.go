package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pinboard/internal/engine"
	"github.com/mesh-intelligence/pinboard/internal/sqlite"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// session is one attached backend for the duration of a command.
type session struct {
	settings *settings
	log      *log.Logger
	backend  *sqlite.Backend
}

// openSession resolves configuration, attaches the backend and ensures the
// configured user exists. The caller must Close the session.
func openSession(cmd *cobra.Command) (*session, error) {
	s, err := resolveSettings()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), s)
	if err != nil {
		return nil, err
	}
	backend := sqlite.NewBackend(sqlite.WithLogger(logger))
	if err := backend.Attach(s.Store); err != nil {
		return nil, sysError("attach backend: %w", err)
	}
	if err := backend.EnsureUser(cmd.Context(), types.User{UserID: s.User}); err != nil {
		_ = backend.Detach()
		return nil, classify(err)
	}
	logger.WithFields(log.Fields{"data_dir": s.DataDir, "user": s.User}).Debug("backend attached")
	return &session{settings: s, log: logger, backend: backend}, nil
}

func (s *session) Close() error {
	return s.backend.Detach()
}

// parent returns the list collection addressed by --board, checking that the
// board exists.
func (s *session) parent(ctx context.Context) (types.ParentPath, error) {
	if flags.board == "" {
		return types.ParseParentPath(types.UserLists(s.settings.User).String())
	}
	if _, err := s.backend.GetBoard(ctx, s.settings.User, flags.board); err != nil {
		return "", classify(fmt.Errorf("board %s: %w", flags.board, err))
	}
	return types.ParseParentPath(types.BoardLists(s.settings.User, flags.board).String())
}

// withEngine activates an engine on the addressed parent, runs fn, and waits
// for every write fn queued. Writes the engine reported as failed are
// returned as a system error.
func (s *session) withEngine(ctx context.Context, fn func(*engine.Engine) error) error {
	parent, err := s.parent(ctx)
	if err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		failed []error
	)
	report := engine.ReporterFunc(func(err error) {
		s.log.WithError(err).Debug("engine reported failure")
		mu.Lock()
		failed = append(failed, err)
		mu.Unlock()
	})
	eng := engine.New(s.backend,
		engine.WithLogger(s.log),
		engine.WithReporter(report),
		engine.WithWriteTimeout(s.settings.WriteTimeout),
	)
	defer eng.Close()

	if err := eng.Activate(ctx, parent); err != nil {
		return sysError("open board: %w", err)
	}
	if err := fn(eng); err != nil {
		return classify(err)
	}
	if err := eng.Flush(ctx); err != nil {
		return sysError("wait for writes: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failed) > 0 {
		return sysError("%w", errors.Join(failed...))
	}
	return nil
}

// classify maps store and engine errors to an exit code. Errors that already
// carry a code pass through.
func classify(err error) error {
	var ce *codedError
	var pe *engine.PersistenceError
	var se *engine.SubscriptionError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ce):
		return err
	case errors.As(err, &pe), errors.As(err, &se):
		return sysError("%w", err)
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidParent),
		errors.Is(err, types.ErrInvalidTitle),
		errors.Is(err, types.ErrStaleReference),
		errors.Is(err, types.ErrNotActive):
		return userError(err)
	default:
		return sysError("%w", err)
	}
}
