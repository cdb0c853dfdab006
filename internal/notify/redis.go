package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

const reconnectDelay = time.Second

// changeEvent is the pub/sub payload.
type changeEvent struct {
	Parent string `json:"parent"`
}

// Redis publishes pings on a Redis channel so that processes sharing one
// database see each other's writes. Pings from this process are also
// delivered locally without the round trip.
type Redis struct {
	rc      *redis.Client
	channel string
	log     *log.Logger
	local   *Local

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewRedis subscribes to channel and starts relaying its pings. It returns
// once the subscription is confirmed by the server.
func NewRedis(ctx context.Context, rc *redis.Client, channel string, logger *log.Logger) (*Redis, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	sub := rc.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	r := &Redis{
		rc:      rc,
		channel: channel,
		log:     logger,
		local:   NewLocal(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go r.relay(runCtx, sub)
	return r, nil
}

// Notify publishes a ping for parent and delivers it to local watchers.
func (r *Redis) Notify(ctx context.Context, parent types.ParentPath) error {
	if err := r.local.Notify(ctx, parent); err != nil {
		return err
	}
	data, err := json.Marshal(changeEvent{Parent: parent.String()})
	if err != nil {
		return err
	}
	if err := r.rc.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", r.channel, err)
	}
	return nil
}

// Watch registers a local watcher for parent.
func (r *Redis) Watch(parent types.ParentPath) (<-chan struct{}, func()) {
	return r.local.Watch(parent)
}

// Close stops relaying and closes every watch channel. It does not close the
// Redis client.
func (r *Redis) Close() error {
	r.once.Do(func() {
		r.cancel()
		<-r.done
		_ = r.local.Close()
	})
	return nil
}

func (r *Redis) relay(ctx context.Context, sub *redis.PubSub) {
	defer close(r.done)
	for {
		r.consume(ctx, sub)
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		r.log.WithField("channel", r.channel).Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
		sub = r.rc.Subscribe(ctx, r.channel)
	}
}

func (r *Redis) consume(ctx context.Context, sub *redis.PubSub) {
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev changeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.log.WithError(err).Warn("unable to parse change event")
				continue
			}
			parent, err := types.ParseParentPath(ev.Parent)
			if err != nil {
				r.log.WithError(err).Warn("change event for invalid parent")
				continue
			}
			_ = r.local.Notify(ctx, parent)
		}
	}
}
