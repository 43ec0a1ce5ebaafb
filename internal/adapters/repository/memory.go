package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/types"
	"github.com/cosnor/winged/pkg/metrics"
)

const (
	defaultLockStripes           = 256
	defaultMetricsUpdateInterval = 5 * time.Second
)

type unlockKey struct {
	userID        int64
	achievementID string
	sequence      int
}

// MemoryStore keeps all state in process. User transactions are staged and
// applied on commit under a striped per-user lock.
type MemoryStore struct {
	mu           sync.RWMutex
	progress     map[int64]model.UserProgress
	collection   map[int64]map[string]model.CollectionEntry
	unlocks      map[int64][]model.AchievementUnlockRecord
	unlockKeys   map[unlockKey]struct{}
	achievements map[string]model.AchievementDefinition
	indexes      map[model.Metric]*rankIndex

	stripes   int
	userLocks []sync.Mutex
	observers []Observer

	metricsUpdateInterval time.Duration
	closed                atomic.Bool
	wg                    sync.WaitGroup
	stopChan              chan struct{}
}

// NewMemoryStore constructs an in-memory store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		progress:              make(map[int64]model.UserProgress),
		collection:            make(map[int64]map[string]model.CollectionEntry),
		unlocks:               make(map[int64][]model.AchievementUnlockRecord),
		unlockKeys:            make(map[unlockKey]struct{}),
		achievements:          make(map[string]model.AchievementDefinition),
		indexes:               make(map[model.Metric]*rankIndex, len(model.Metrics)),
		stripes:               defaultLockStripes,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.userLocks = make([]sync.Mutex, s.stripes)
	for _, m := range model.Metrics {
		s.indexes[m] = &rankIndex{}
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) lockFor(userID int64) *sync.Mutex {
	i := userID % int64(s.stripes)
	if i < 0 {
		i = -i
	}
	return &s.userLocks[i]
}

// WithinUser implements discovery.Store.
func (s *MemoryStore) WithinUser(ctx context.Context, userID int64, fn func(ctx context.Context, tx discovery.Tx) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	start := time.Now()
	defer func() {
		metrics.RecordStoreTxLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	l := s.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	tx := &memTx{store: s, userID: userID, entries: map[string]model.CollectionEntry{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	committed, ok := s.commit(tx)
	if ok {
		for _, o := range s.observers {
			o.ProgressCommitted(ctx, committed)
		}
	}
	return nil
}

// commit applies the staged writes. It returns the committed progress and
// whether progress was written at all.
func (s *MemoryStore) commit(tx *memTx) (model.UserProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tx.entries) > 0 {
		byUser := s.collection[tx.userID]
		if byUser == nil {
			byUser = make(map[string]model.CollectionEntry, len(tx.entries))
			s.collection[tx.userID] = byUser
		}
		for id, e := range tx.entries {
			byUser[id] = e
		}
	}
	for i := range tx.unlocks {
		rec := tx.unlocks[i]
		s.unlocks[tx.userID] = append(s.unlocks[tx.userID], rec)
		s.unlockKeys[unlockKey{rec.UserID, rec.AchievementID, rec.Sequence}] = struct{}{}
	}
	if tx.progress == nil {
		return model.UserProgress{}, false
	}

	p := tx.progress.Clone()
	old, had := s.progress[tx.userID]
	p.Version = old.Version + 1
	s.progress[tx.userID] = p
	for _, m := range model.Metrics {
		s.indexes[m].set(tx.userID, m.Value(&old), m.Value(&p), had)
	}
	return p.Clone(), true
}

// memTx stages writes until commit. Reads prefer staged data.
type memTx struct {
	store    *MemoryStore
	userID   int64
	progress *model.UserProgress
	entries  map[string]model.CollectionEntry
	unlocks  []model.AchievementUnlockRecord
}

func (t *memTx) checkUser(userID int64) error {
	if userID != t.userID {
		return fmt.Errorf("transaction for user %d used for user %d", t.userID, userID)
	}
	return nil
}

func (t *memTx) GetCollectionEntry(ctx context.Context, userID int64, speciesID string) (model.CollectionEntry, bool, error) {
	if err := t.checkUser(userID); err != nil {
		return model.CollectionEntry{}, false, err
	}
	if e, ok := t.entries[speciesID]; ok {
		return e.Clone(), true, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	e, ok := t.store.collection[userID][speciesID]
	if !ok {
		return model.CollectionEntry{}, false, nil
	}
	return e.Clone(), true, nil
}

func (t *memTx) PutCollectionEntry(ctx context.Context, entry model.CollectionEntry) error {
	if err := t.checkUser(entry.UserID); err != nil {
		return err
	}
	t.entries[entry.SpeciesID] = entry.Clone()
	return nil
}

func (t *memTx) ListCollection(ctx context.Context, userID int64) ([]model.CollectionEntry, error) {
	if err := t.checkUser(userID); err != nil {
		return nil, err
	}
	t.store.mu.RLock()
	merged := make(map[string]model.CollectionEntry, len(t.store.collection[userID])+len(t.entries))
	for id, e := range t.store.collection[userID] {
		merged[id] = e
	}
	t.store.mu.RUnlock()
	for id, e := range t.entries {
		merged[id] = e
	}
	return sortedEntries(merged), nil
}

func (t *memTx) GetProgress(ctx context.Context, userID int64) (model.UserProgress, bool, error) {
	if err := t.checkUser(userID); err != nil {
		return model.UserProgress{}, false, err
	}
	if t.progress != nil {
		return t.progress.Clone(), true, nil
	}
	return t.store.GetProgress(ctx, userID)
}

func (t *memTx) PutProgress(ctx context.Context, p model.UserProgress) error {
	if err := t.checkUser(p.UserID); err != nil {
		return err
	}
	c := p.Clone()
	t.progress = &c
	return nil
}

func (t *memTx) ListUnlocks(ctx context.Context, userID int64) ([]model.AchievementUnlockRecord, error) {
	if err := t.checkUser(userID); err != nil {
		return nil, err
	}
	out, err := t.store.ListUnlocks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append(out, t.unlocks...), nil
}

func (t *memTx) InsertUnlock(ctx context.Context, rec model.AchievementUnlockRecord) (bool, error) {
	if err := t.checkUser(rec.UserID); err != nil {
		return false, err
	}
	for i := range t.unlocks {
		if t.unlocks[i].AchievementID == rec.AchievementID && t.unlocks[i].Sequence == rec.Sequence {
			return false, nil
		}
	}
	t.store.mu.RLock()
	_, exists := t.store.unlockKeys[unlockKey{rec.UserID, rec.AchievementID, rec.Sequence}]
	t.store.mu.RUnlock()
	if exists {
		return false, nil
	}
	t.unlocks = append(t.unlocks, rec)
	return true, nil
}

// UpsertAchievements stores definitions keyed by name.
func (s *MemoryStore) UpsertAchievements(ctx context.Context, defs []model.AchievementDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range defs {
		d := defs[i]
		if old, ok := s.achievements[d.Name]; ok && old.ID != "" {
			d.ID = old.ID
		}
		s.achievements[d.Name] = d
	}
	return nil
}

// ListAchievements returns every definition ordered by name.
func (s *MemoryStore) ListAchievements(ctx context.Context) ([]model.AchievementDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AchievementDefinition, 0, len(s.achievements))
	for _, d := range s.achievements {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetProgress returns the committed progress of userID.
func (s *MemoryStore) GetProgress(ctx context.Context, userID int64) (model.UserProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[userID]
	if !ok {
		return model.UserProgress{}, false, nil
	}
	return p.Clone(), true, nil
}

// ListCollection returns a user's collection ordered by species id.
func (s *MemoryStore) ListCollection(ctx context.Context, userID int64) ([]model.CollectionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedEntries(s.collection[userID]), nil
}

// ListUnlocks returns a user's unlocks in unlock order.
func (s *MemoryStore) ListUnlocks(ctx context.Context, userID int64) ([]model.AchievementUnlockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.unlocks[userID]
	out := make([]model.AchievementUnlockRecord, len(src))
	copy(out, src)
	return out, nil
}

// TopN implements Store.TopN in O(log n + limit).
func (s *MemoryStore) TopN(ctx context.Context, metric model.Metric, limit int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidMetric, metric)
	}
	return idx.topN(limit), nil
}

// CountAbove implements Store.CountAbove in O(log n).
func (s *MemoryStore) CountAbove(ctx context.Context, metric model.Metric, value int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[metric]
	if !ok {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidMetric, metric)
	}
	return int64(idx.countAbove(value)), nil
}

// CountUsers returns the number of users with progress.
func (s *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.progress)), nil
}

// Close stops the metrics updater. Later transactions fail with ErrClosed.
func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				n, _ := s.CountUsers(ctx)
				metrics.UpdateTotalUsers(int(n))
			}
		}
	}()
}

func sortedEntries(m map[string]model.CollectionEntry) []model.CollectionEntry {
	out := make([]model.CollectionEntry, 0, len(m))
	for _, e := range m {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpeciesID < out[j].SpeciesID })
	return out
}
