package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/pkg/logger"
)

type captureNotifier struct {
	mu    sync.Mutex
	got   []discovery.Notification
	err   error
	delay time.Duration
}

func (c *captureNotifier) Notify(ctx context.Context, n discovery.Notification) error {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, n)
	return c.err
}

func (c *captureNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func levelUp() discovery.Notification {
	return discovery.Notification{
		Kind: discovery.KindLevelUp, UserID: 7, OldLevel: 1, NewLevel: 2, TotalPoints: 210,
		At: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLogNotifier(t *testing.T) {
	require.NoError(t, logger.Init())
	def := model.AchievementDefinition{Name: "First Flight"}
	n := discovery.Notification{Kind: discovery.KindAchievementUnlocked, UserID: 1, Achievement: &def,
		Unlock: &model.AchievementUnlockRecord{Sequence: 1}}
	assert.NoError(t, NewLogNotifier().Notify(context.Background(), n))
	assert.NoError(t, NewLogNotifier().Notify(context.Background(), levelUp()))
}

func TestRedisPublisher(t *testing.T) {
	require.NoError(t, logger.Init())
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	pub, err := NewRedisPublisher(client, "")
	require.NoError(t, err)
	assert.Equal(t, defaultChannel, pub.Channel())

	ctx := context.Background()
	sub := client.Subscribe(ctx, pub.Channel())
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, pub.Notify(ctx, levelUp()))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var got discovery.Notification
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, discovery.KindLevelUp, got.Kind)
	assert.Equal(t, 2, got.NewLevel)
	assert.Equal(t, int64(210), got.TotalPoints)

	mr.Close()
	assert.Error(t, pub.Notify(ctx, levelUp()))

	_, err = NewRedisPublisher(nil, "x")
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	a := &captureNotifier{}
	b := &captureNotifier{err: boom}
	c := &captureNotifier{}

	err := Multi{a, b, c}.Notify(context.Background(), levelUp())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, c.count(), "later notifiers still run after a failure")
	assert.NoError(t, Multi{}.Notify(context.Background(), levelUp()))
}

func TestDispatcher(t *testing.T) {
	require.NoError(t, logger.Init())

	t.Run("delivers in the background and survives caller cancellation", func(t *testing.T) {
		next := &captureNotifier{delay: 10 * time.Millisecond}
		d := NewDispatcher(next)
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, d.Notify(ctx, levelUp()))
		cancel()
		require.NoError(t, d.Wait(context.Background()))
		assert.Equal(t, 1, next.count())
	})

	t.Run("failures never reach the caller", func(t *testing.T) {
		d := NewDispatcher(&captureNotifier{err: errors.New("down")})
		assert.NoError(t, d.Notify(context.Background(), levelUp()))
		require.NoError(t, d.Wait(context.Background()))
	})

	t.Run("slow deliveries are cut off by the timeout", func(t *testing.T) {
		next := &captureNotifier{delay: time.Second}
		d := NewDispatcher(next, WithTimeout(5*time.Millisecond))
		require.NoError(t, d.Notify(context.Background(), levelUp()))
		require.NoError(t, d.Wait(context.Background()))
		assert.Equal(t, 0, next.count())
	})

	t.Run("wait honours its context", func(t *testing.T) {
		d := NewDispatcher(&captureNotifier{delay: 200 * time.Millisecond})
		require.NoError(t, d.Notify(context.Background(), levelUp()))
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)
		require.NoError(t, d.Wait(context.Background()))
	})
}
