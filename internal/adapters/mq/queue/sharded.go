package queue

import (
	"context"
	"strconv"

	"github.com/cosnor/winged/pkg/metrics"
)

// Sharded routes events to one of several queues by user id, so a single
// consumer per shard sees each user's events in arrival order.
type Sharded struct {
	shards []*InMemoryQueue
}

// NewSharded creates n shards, splitting capacity evenly. n < 1 means one.
func NewSharded(n, capacity int) *Sharded {
	if n < 1 {
		n = 1
	}
	if capacity < n {
		capacity = n
	}
	per := capacity / n
	s := &Sharded{shards: make([]*InMemoryQueue, n)}
	for i := range s.shards {
		s.shards[i] = NewInMemoryQueue(WithCapacity(per), WithName("shard-"+strconv.Itoa(i)))
	}
	metrics.UpdateQueueCapacity(per * n)
	return s
}

// ShardFor returns the shard index for userID.
func (s *Sharded) ShardFor(userID int64) int {
	n := int64(len(s.shards))
	i := userID % n
	if i < 0 {
		i += n
	}
	return int(i)
}

// Enqueue routes e to its user's shard.
func (s *Sharded) Enqueue(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: events travel by value
	err := s.shards[s.ShardFor(e.UserID)].Enqueue(ctx, e)
	metrics.UpdateQueueSize(s.Len(), s.Cap())
	return err
}

// Shards returns the underlying queues.
func (s *Sharded) Shards() []*InMemoryQueue { return s.shards }

// Len sums buffered events across shards.
func (s *Sharded) Len() int {
	total := 0
	for _, q := range s.shards {
		total += q.Len()
	}
	return total
}

// Cap sums capacity across shards.
func (s *Sharded) Cap() int {
	total := 0
	for _, q := range s.shards {
		total += q.Cap()
	}
	return total
}

// Close closes every shard.
func (s *Sharded) Close() error {
	for _, q := range s.shards {
		_ = q.Close()
	}
	return nil
}
