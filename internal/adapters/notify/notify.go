// Package notify delivers achievement and level-up notifications.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/pkg/logger"
	"github.com/cosnor/winged/pkg/metrics"
)

const (
	defaultChannel = "winged:notifications"
	defaultTimeout = 2 * time.Second
)

// ErrNilClient is returned when a publisher has no Redis client.
var ErrNilClient = errors.New("redis client is nil")

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.Named("notifications")}
}

// Notify logs n.
func (l *LogNotifier) Notify(ctx context.Context, n discovery.Notification) error { //nolint:gocritic // hugeParam
	fields := []logger.Field{
		logger.String("kind", string(n.Kind)),
		logger.Int64("user_id", n.UserID),
		logger.Int64("total_points", n.TotalPoints),
	}
	switch n.Kind {
	case discovery.KindAchievementUnlocked:
		if n.Achievement != nil {
			fields = append(fields, logger.String("achievement", n.Achievement.Name))
		}
		if n.Unlock != nil {
			fields = append(fields, logger.Int("sequence", n.Unlock.Sequence))
		}
	case discovery.KindLevelUp:
		fields = append(fields, logger.Int("old_level", n.OldLevel), logger.Int("new_level", n.NewLevel))
	}
	l.log.Info(ctx, "notification", fields...)
	return nil
}

// RedisPublisher publishes notifications as JSON on a Redis channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher creates a publisher. An empty channel uses the default.
func NewRedisPublisher(client redis.UniversalClient, channel string) (*RedisPublisher, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if channel == "" {
		channel = defaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

// Channel returns the channel notifications are published on.
func (p *RedisPublisher) Channel() string { return p.channel }

// Notify publishes n.
func (p *RedisPublisher) Notify(ctx context.Context, n discovery.Notification) error { //nolint:gocritic // hugeParam
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}

// Multi fans a notification out to every notifier.
type Multi []discovery.Notifier

// Notify calls every notifier and joins their errors.
func (m Multi) Notify(ctx context.Context, n discovery.Notification) error { //nolint:gocritic // hugeParam
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatcher hands each notification to its own goroutine with a timeout,
// so the caller never waits on delivery. Failures are logged and counted.
type Dispatcher struct {
	next    discovery.Notifier
	timeout time.Duration
	log     logger.Logger
	wg      sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout bounds each delivery.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher wraps next.
func NewDispatcher(next discovery.Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{next: next, timeout: defaultTimeout, log: logger.Named("dispatcher")}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify starts delivery and returns nil immediately.
func (d *Dispatcher) Notify(ctx context.Context, n discovery.Notification) error { //nolint:gocritic // hugeParam
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		kind := string(n.Kind)
		if err := d.next.Notify(ctx, n); err != nil {
			metrics.RecordNotificationFailed(kind)
			d.log.Warn(ctx, "notification delivery failed",
				logger.String("kind", kind),
				logger.Int64("user_id", n.UserID),
				logger.Error(err),
			)
			return
		}
		metrics.RecordNotificationSent(kind)
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for notifications: %w", ctx.Err())
	}
}
