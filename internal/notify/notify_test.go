package notify

import (
	"context"
	"io"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pinboard/pkg/types"
)

var (
	boardA = types.UserLists("u1")
	boardB = types.BoardLists("u1", "b1")
)

func received(ch <-chan struct{}) bool {
	select {
	case _, ok := <-ch:
		return ok
	case <-time.After(time.Second):
		return false
	}
}

func quiet(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return false
	case <-time.After(50 * time.Millisecond):
		return true
	}
}

func TestLocalNotifyReachesOnlyThatParent(t *testing.T) {
	n := NewLocal()
	defer n.Close()
	a, cancelA := n.Watch(boardA)
	defer cancelA()
	b, cancelB := n.Watch(boardB)
	defer cancelB()

	require.NoError(t, n.Notify(context.Background(), boardA))

	assert.True(t, received(a))
	assert.True(t, quiet(b))
}

func TestLocalPingsCoalesce(t *testing.T) {
	n := NewLocal()
	defer n.Close()
	ch, cancel := n.Watch(boardA)
	defer cancel()

	for range 5 {
		require.NoError(t, n.Notify(context.Background(), boardA))
	}

	assert.True(t, received(ch))
	assert.True(t, quiet(ch))
}

func TestLocalCancelAndClose(t *testing.T) {
	n := NewLocal()
	ch, cancel := n.Watch(boardA)
	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok, "cancel closes the channel")

	other, _ := n.Watch(boardA)
	require.NoError(t, n.Close())
	_, ok = <-other
	assert.False(t, ok)
	assert.ErrorIs(t, n.Notify(context.Background(), boardA), types.ErrClosed)

	late, _ := n.Watch(boardA)
	_, ok = <-late
	assert.False(t, ok)
}

func newRedisNotifier(t *testing.T, addr string) *Redis {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("redis close: %v", err)
		}
	})
	logger := log.New()
	logger.SetOutput(io.Discard)
	n, err := NewRedis(context.Background(), client, types.DefaultChannel, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func TestRedisNotifyCrossesProcesses(t *testing.T) {
	m := miniredis.RunT(t)
	writer := newRedisNotifier(t, m.Addr())
	reader := newRedisNotifier(t, m.Addr())

	ch, cancel := reader.Watch(boardB)
	defer cancel()
	other, cancelOther := reader.Watch(boardA)
	defer cancelOther()

	require.NoError(t, writer.Notify(context.Background(), boardB))

	assert.True(t, received(ch))
	assert.True(t, quiet(other))
}

func TestRedisNotifyDeliversLocally(t *testing.T) {
	m := miniredis.RunT(t)
	n := newRedisNotifier(t, m.Addr())
	ch, cancel := n.Watch(boardA)
	defer cancel()

	require.NoError(t, n.Notify(context.Background(), boardA))
	assert.True(t, received(ch))
}

func TestRedisIgnoresMalformedEvents(t *testing.T) {
	m := miniredis.RunT(t)
	n := newRedisNotifier(t, m.Addr())
	ch, cancel := n.Watch(boardA)
	defer cancel()

	m.Publish(types.DefaultChannel, "not json")
	m.Publish(types.DefaultChannel, `{"parent":"nope"}`)
	assert.True(t, quiet(ch))

	m.Publish(types.DefaultChannel, `{"parent":"users/u1/lists"}`)
	assert.True(t, received(ch))
}

func TestNewRedisFailsWithoutServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedis(ctx, client, types.DefaultChannel, nil)
	assert.Error(t, err)
}
