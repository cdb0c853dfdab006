// Package sqlite implements the board store on SQLite. Lists are stored as
// documents with their cards embedded, keyed by parent path. Every committed
// write pings the change notifier, and live subscriptions refetch on ping.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/pinboard/internal/notify"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

const (
	dbFile   = "pinboard.db"
	lockFile = "pinboard.lock"

	lockTimeout    = 5 * time.Second
	lockRetryDelay = 100 * time.Millisecond
)

// Backend implements types.Store, types.BatchUpdater and types.BoardStore.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	log      *log.Logger
	lock     *flock.Flock

	lockTimeout time.Duration

	notifier     notify.Notifier
	ownsNotifier bool
	redis        *redis.Client

	// detached is closed by Detach to end every live subscription.
	detached chan struct{}
	subs     sync.WaitGroup
}

// Option configures a Backend.
type Option func(*Backend)

// WithNotifier makes the backend ping n instead of building a notifier
// from the config. The backend does not close n.
func WithNotifier(n notify.Notifier) Option {
	return func(b *Backend) { b.notifier = n }
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{log: log.StandardLogger(), lockTimeout: lockTimeout}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens (or creates) the database in config.DataDir and prepares
// the schema. Schema setup runs under an exclusive file lock so that two
// processes attaching to one directory do not race.
// Returns ErrAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	config.DataDir = dataDir
	b.lock = flock.New(filepath.Join(dataDir, lockFile))

	ctx := context.Background()
	if err := b.acquireLock(ctx); err != nil {
		return err
	}
	defer func() { _ = b.lock.Unlock() }()

	dsn := "file:" + filepath.Join(dataDir, dbFile) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	// A single connection serializes writers and keeps transactions simple.
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if b.notifier == nil {
		if err := b.openNotifier(ctx, config); err != nil {
			db.Close()
			return err
		}
	}

	b.db = db
	b.config = config
	b.detached = make(chan struct{})
	b.attached = true
	b.log.WithFields(log.Fields{"data_dir": dataDir, "notifier": config.GetNotifier()}).Debug("backend attached")
	return nil
}

func (b *Backend) openNotifier(ctx context.Context, config types.Config) error {
	switch config.GetNotifier() {
	case types.NotifierRedis:
		opts, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rc := redis.NewClient(opts)
		n, err := notify.NewRedis(ctx, rc, config.GetRedisChannel(), b.log)
		if err != nil {
			rc.Close()
			return err
		}
		b.notifier, b.redis = n, rc
	default:
		b.notifier = notify.NewLocal()
	}
	b.ownsNotifier = true
	return nil
}

// Detach ends every live subscription with ErrDetached and releases the
// database. After Detach, all operations return ErrDetached.
// Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	if !b.attached {
		b.mu.Unlock()
		return nil
	}
	b.attached = false
	detached := b.detached
	b.mu.Unlock()

	close(detached)
	b.subs.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ownsNotifier {
		_ = b.notifier.Close()
		b.notifier, b.ownsNotifier = nil, false
		if b.redis != nil {
			_ = b.redis.Close()
			b.redis = nil
		}
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// acquireLock takes the data directory lock, retrying while another process
// holds it. Returns ErrLockHeld when the lock is not free within lockTimeout.
func (b *Backend) acquireLock(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.lockTimeout)
	defer cancel()
	locked, err := b.lock.TryLockContext(ctx, lockRetryDelay)
	switch {
	case errors.Is(err, context.DeadlineExceeded), err == nil && !locked:
		return types.ErrLockHeld
	case err != nil:
		return fmt.Errorf("acquire lock: %w", err)
	}
	return nil
}

// changed pings watchers of parent. A failed ping is logged, not returned:
// the write it follows has already committed.
func (b *Backend) changed(ctx context.Context, parent types.ParentPath) {
	if err := b.notifier.Notify(ctx, parent); err != nil {
		b.log.WithError(err).WithField("parent", parent).Warn("change notification failed")
	}
}

// generateUUID generates a new UUID v7 for entity IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

var (
	_ types.Store        = (*Backend)(nil)
	_ types.BatchUpdater = (*Backend)(nil)
	_ types.BoardStore   = (*Backend)(nil)
)
