// Package dedupe tracks discovery event ids so client retries are ingested once.
package dedupe

import (
	"container/list"
	"context"
	"strconv"
	"sync"
)

const defaultMaxSize = 50000

// Deduper records seen event keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// if not. The check and the write are atomic.
	SeenAndRecord(ctx context.Context, key string) bool
	// Unrecord forgets key so a rejected event can be retried, for example
	// after queue backpressure.
	Unrecord(ctx context.Context, key string)
	Size() int64
}

// Key scopes a client event id to its user.
func Key(userID int64, eventID string) string {
	return strconv.FormatInt(userID, 10) + "/" + eventID
}

// InMemoryDeduper keeps up to maxSize keys and evicts the oldest first.
// A maxSize of 0 or less keeps every key.
type InMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) *InMemoryDeduper {
	d := &InMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

// SeenAndRecord implements Deduper.
func (d *InMemoryDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[key] = d.order.PushBack(key)
	return false
}

// Unrecord implements Deduper.
func (d *InMemoryDeduper) Unrecord(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

// Size returns the number of recorded keys.
func (d *InMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// MaxSize returns the configured capacity, 0 or less when unbounded.
func (d *InMemoryDeduper) MaxSize() int { return d.maxSize }
