package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for attaching a store.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Notifier selects how change notifications reach subscriptions:
	// "local" (same process) or "redis" (across processes).
	Notifier     string `json:"notifier,omitempty" yaml:"notifier,omitempty"`
	RedisURL     string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
	RedisChannel string `json:"redis_channel,omitempty" yaml:"redis_channel,omitempty"`

	// PollInterval, when positive, makes subscriptions also re-read the store
	// on a timer so writes from other processes show up without Redis.
	PollInterval time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
}

// Supported backend and notifier names.
const (
	BackendSQLite  = "sqlite"
	NotifierLocal  = "local"
	NotifierRedis  = "redis"
	DefaultChannel = "pinboard:lists-changed"
)

// Config validation errors.
var (
	ErrBackendEmpty         = errors.New("backend must not be empty")
	ErrBackendUnknown       = errors.New("unknown backend")
	ErrNotifierUnknown      = errors.New("unknown notifier")
	ErrRedisURLMissing      = errors.New("redis notifier requires redis_url")
	ErrPollIntervalNegative = errors.New("poll interval must not be negative")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.GetNotifier() {
	case NotifierLocal:
	case NotifierRedis:
		if c.RedisURL == "" {
			return ErrRedisURLMissing
		}
	default:
		return ErrNotifierUnknown
	}
	if c.PollInterval < 0 {
		return ErrPollIntervalNegative
	}
	return nil
}

// GetNotifier returns the notifier name, defaulting to local.
func (c Config) GetNotifier() string {
	if c.Notifier == "" {
		return NotifierLocal
	}
	return c.Notifier
}

// GetRedisChannel returns the pub/sub channel, defaulting to DefaultChannel.
func (c Config) GetRedisChannel() string {
	if c.RedisChannel == "" {
		return DefaultChannel
	}
	return c.RedisChannel
}
