// Package cache mirrors leaderboard metrics into Redis sorted sets.
package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/types"
	"github.com/cosnor/winged/pkg/logger"
	"github.com/cosnor/winged/pkg/metrics"
)

const (
	defaultKeyPrefix = "winged:leaderboard:"
	defaultTimeout   = 500 * time.Millisecond
	memberWidth      = 19
)

// Cache errors.
var (
	ErrNilClient  = errors.New("redis client is nil")
	ErrBadMember  = errors.New("malformed leaderboard member")
	ErrInvalidArg = errors.New("invalid leaderboard argument")
)

// Option configures a Leaderboard.
type Option func(*Leaderboard)

// WithKeyPrefix sets the prefix of the per-metric sorted set keys.
func WithKeyPrefix(prefix string) Option {
	return func(l *Leaderboard) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithTimeout bounds each write to Redis.
func WithTimeout(d time.Duration) Option {
	return func(l *Leaderboard) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Leaderboard) {
		if lg != nil {
			l.log = lg
		}
	}
}

// Leaderboard keeps one sorted set per metric. Members encode
// MaxInt64-userID zero padded, so Redis' reverse lexical order on equal
// scores yields ascending user ids.
type Leaderboard struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
	log     logger.Logger
}

// NewLeaderboard creates a Redis-backed leaderboard mirror.
func NewLeaderboard(client redis.UniversalClient, opts ...Option) (*Leaderboard, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	l := &Leaderboard{client: client, prefix: defaultKeyPrefix, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Named("leaderboard-cache")
	}
	return l, nil
}

func (l *Leaderboard) key(m model.Metric) string { return l.prefix + string(m) }

func (l *Leaderboard) versionKey() string { return l.prefix + "version" }

// setScript applies a commit only when its version is newer than the one
// last mirrored for the member. KEYS[1] is the version hash, KEYS[2:] the
// metric sets. ARGV[1] is the member, ARGV[2] the version, ARGV[3:] scores.
var setScript = redis.NewScript(`
local seen = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '-1')
if seen >= tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
for i = 2, #KEYS do
	redis.call('ZADD', KEYS[i], ARGV[i + 1], ARGV[1])
end
return 1
`)

func encodeMember(userID int64) string {
	s := strconv.FormatInt(math.MaxInt64-userID, 10)
	for len(s) < memberWidth {
		s = "0" + s
	}
	return s
}

func decodeMember(member string) (int64, error) {
	v, err := strconv.ParseInt(member, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadMember, member)
	}
	return math.MaxInt64 - v, nil
}

// ProgressCommitted writes every metric of p in one script call. Failures are
// logged and counted; the store stays the source of truth.
func (l *Leaderboard) ProgressCommitted(ctx context.Context, p model.UserProgress) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()
	applied, err := l.Set(ctx, &p)
	if err != nil {
		metrics.RecordCacheError("zadd")
		l.log.Warn(ctx, "leaderboard mirror write failed",
			logger.Int64("user_id", p.UserID),
			logger.Error(err),
		)
		return
	}
	if !applied {
		l.log.Debug(ctx, "stale leaderboard mirror write skipped",
			logger.Int64("user_id", p.UserID),
			logger.Int64("version", p.Version),
		)
	}
}

// Set writes every metric of p unless a commit with the same or a later
// Version was already mirrored. Observers run after the store commits, so
// two commits for one user can arrive out of order. It reports whether p
// was applied.
func (l *Leaderboard) Set(ctx context.Context, p *model.UserProgress) (bool, error) {
	keys := make([]string, 0, len(model.Metrics)+1)
	args := make([]any, 0, len(model.Metrics)+2)
	keys = append(keys, l.versionKey())
	args = append(args, encodeMember(p.UserID), p.Version)
	for _, m := range model.Metrics {
		keys = append(keys, l.key(m))
		args = append(args, m.Value(p))
	}
	n, err := setScript.Run(ctx, l.client, keys, args...).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// TopN implements leaderboard.Reader with ZREVRANGE WITHSCORES.
func (l *Leaderboard) TopN(ctx context.Context, metric model.Metric, limit int) ([]types.Entry, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit %d", ErrInvalidArg, limit)
	}
	zs, err := l.client.ZRevRangeWithScores(ctx, l.key(metric), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]types.Entry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrBadMember, z.Member)
		}
		id, err := decodeMember(member)
		if err != nil {
			return nil, err
		}
		out = append(out, types.Entry{UserID: id, Value: int64(z.Score)})
	}
	return out, nil
}

// CountAbove implements leaderboard.Reader with ZCOUNT (value +inf.
func (l *Leaderboard) CountAbove(ctx context.Context, metric model.Metric, value int64) (int64, error) {
	return l.client.ZCount(ctx, l.key(metric), "("+strconv.FormatInt(value, 10), "+inf").Result()
}

// Source lists users for Warm.
type Source interface {
	CountUsers(ctx context.Context) (int64, error)
	TopN(ctx context.Context, metric model.Metric, limit int) ([]types.Entry, error)
}

// Warm replaces the mirrored sets with the contents of src and forgets
// the mirrored versions.
func (l *Leaderboard) Warm(ctx context.Context, src Source) error {
	n, err := src.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if err := l.client.Del(ctx, l.versionKey()).Err(); err != nil {
		return fmt.Errorf("reset versions: %w", err)
	}
	for _, m := range model.Metrics {
		pipe := l.client.TxPipeline()
		pipe.Del(ctx, l.key(m))
		if n > 0 {
			entries, err := src.TopN(ctx, m, int(n))
			if err != nil {
				return fmt.Errorf("load %s: %w", m, err)
			}
			zs := make([]redis.Z, 0, len(entries))
			for _, e := range entries {
				zs = append(zs, redis.Z{Score: float64(e.Value), Member: encodeMember(e.UserID)})
			}
			if len(zs) > 0 {
				pipe.ZAdd(ctx, l.key(m), zs...)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("warm %s: %w", m, err)
		}
	}
	l.log.Info(ctx, "leaderboard mirror warmed", logger.Int64("users", n))
	return nil
}
