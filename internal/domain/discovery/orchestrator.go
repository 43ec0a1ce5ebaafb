// Package discovery turns discovery events into persisted progress.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cosnor/winged/internal/domain/achievement"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/progress"
	"github.com/cosnor/winged/pkg/logger"
	"github.com/cosnor/winged/pkg/metrics"
)

// Result is the outcome of one processed discovery.
type Result struct {
	NewlyUnlocked []model.AchievementUnlockRecord
	Progress      model.UserProgress
	LevelUp       bool
	IsNewSpecies  bool
	OldLevel      int
}

// Orchestrator is the only component that writes progress.
type Orchestrator struct {
	store       Store
	catalog     Catalog
	evaluator   achievement.Evaluator
	points      *progress.PointsTable
	collections CollectionCounter
	notifier    Notifier
	now         func() time.Time
	newID       func() string
	log         logger.Logger
}

// New creates an orchestrator.
func New(store Store, catalog Catalog, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if catalog == nil {
		return nil, ErrNilCatalog
	}
	o := &Orchestrator{
		store:     store,
		catalog:   catalog,
		evaluator: achievement.NewEvaluator(),
		points:    progress.NewPointsTable(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.Named("orchestrator")
	}
	return o, nil
}

// ProcessDiscovery applies ev to the user's collection and progress,
// evaluates achievements and persists everything in one transaction.
// Notifications are dispatched only after the transaction commits.
func (o *Orchestrator) ProcessDiscovery(ctx context.Context, ev model.DiscoveryEvent) (Result, error) {
	start := time.Now()
	if err := ev.Validate(); err != nil {
		metrics.RecordDiscoveryRejected("validation")
		return Result{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	defs, err := o.catalog.Definitions()
	if err != nil {
		metrics.RecordProcessingError()
		return Result{}, fmt.Errorf("load catalog: %w", err)
	}

	var (
		res      Result
		unlocked []unlock
	)
	err = o.store.WithinUser(ctx, ev.UserID, func(ctx context.Context, tx Tx) error {
		var err error
		res, unlocked, err = o.apply(ctx, tx, &ev, defs)
		return err
	})
	if err != nil {
		metrics.RecordProcessingError()
		return Result{}, fmt.Errorf("process discovery for user %d: %w", ev.UserID, err)
	}

	o.record(&ev, &res, unlocked)
	o.dispatch(ctx, &res, unlocked)
	metrics.RecordProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	return res, nil
}

type unlock struct {
	def model.AchievementDefinition
	rec model.AchievementUnlockRecord
}

func (o *Orchestrator) apply(ctx context.Context, tx Tx, ev *model.DiscoveryEvent, defs []model.AchievementDefinition) (Result, []unlock, error) {
	isNew, err := o.updateCollection(ctx, tx, ev)
	if err != nil {
		return Result{}, nil, err
	}

	p, found, err := tx.GetProgress(ctx, ev.UserID)
	if err != nil {
		return Result{}, nil, fmt.Errorf("get progress: %w", err)
	}
	now := o.now()
	if !found {
		p = model.NewUserProgress(ev.UserID)
		p.CreatedAt = now
	}
	oldLevel := p.CurrentLevel
	if oldLevel < 1 {
		oldLevel = progress.LevelForPoints(p.TotalPoints)
	}

	p.TotalDiscoveries++
	p.TotalIdentifications++
	if progress.IsHighConfidence(ev.Confidence) {
		p.HighConfidenceIdentifications++
	}
	if isNew {
		p.UniqueSpeciesCount++
		p.TotalPoints += o.points.Points(ev.Rarity)
		if progress.IsRare(ev.Rarity) {
			p.RareSpeciesCount++
		}
	}
	p.CurrentStreakDays, p.LongestStreakDays = progress.ApplyStreak(
		p.LastDiscoveryDate, p.CurrentStreakDays, p.LongestStreakDays, ev.Timestamp)
	ts := ev.Timestamp.UTC()
	p.LastDiscoveryDate = &ts
	p.CurrentLevel = progress.LevelForPoints(p.TotalPoints)
	p.UpdatedAt = now

	entries, err := tx.ListCollection(ctx, ev.UserID)
	if err != nil {
		return Result{}, nil, fmt.Errorf("list collection: %w", err)
	}
	summary := model.Summarize(entries)
	if o.collections != nil {
		p.CollectionsCompleted = o.collections.CompletedCount(summary.SpeciesIDs)
	}

	if err := tx.PutProgress(ctx, p); err != nil {
		return Result{}, nil, fmt.Errorf("put progress: %w", err)
	}

	unlocked, err := o.evaluate(ctx, tx, &p, &summary, defs, now)
	if err != nil {
		return Result{}, nil, err
	}
	if len(unlocked) > 0 {
		p.CurrentLevel = progress.LevelForPoints(p.TotalPoints)
		if err := tx.PutProgress(ctx, p); err != nil {
			return Result{}, nil, fmt.Errorf("put progress after unlocks: %w", err)
		}
	}

	res := Result{
		Progress:     p,
		IsNewSpecies: isNew,
		OldLevel:     oldLevel,
		LevelUp:      p.CurrentLevel > oldLevel,
	}
	for i := range unlocked {
		res.NewlyUnlocked = append(res.NewlyUnlocked, unlocked[i].rec)
	}
	return res, unlocked, nil
}

func (o *Orchestrator) updateCollection(ctx context.Context, tx Tx, ev *model.DiscoveryEvent) (bool, error) {
	entry, found, err := tx.GetCollectionEntry(ctx, ev.UserID, ev.SpeciesID)
	if err != nil {
		return false, fmt.Errorf("get collection entry: %w", err)
	}
	if !found {
		entry = model.CollectionEntry{
			UserID:         ev.UserID,
			SpeciesID:      ev.SpeciesID,
			FirstSeenAt:    ev.Timestamp,
			LastSeenAt:     ev.Timestamp,
			SightingCount:  1,
			BestConfidence: ev.Confidence,
		}
	} else {
		entry.SightingCount++
		entry.LastSeenAt = ev.Timestamp
		entry.BestConfidence = max(entry.BestConfidence, ev.Confidence)
	}
	if ev.Location != nil {
		loc := *ev.Location
		entry.LastLocation = &loc
	}
	if err := tx.PutCollectionEntry(ctx, entry); err != nil {
		return false, fmt.Errorf("put collection entry: %w", err)
	}
	return !found, nil
}

// evaluate runs the achievement pass and updates p with awarded points.
func (o *Orchestrator) evaluate(ctx context.Context, tx Tx, p *model.UserProgress, summary *model.CollectionSummary, defs []model.AchievementDefinition, now time.Time) ([]unlock, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	held, err := tx.ListUnlocks(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list unlocks: %w", err)
	}
	maxSeq := make(map[string]int, len(held))
	for i := range held {
		if held[i].Sequence > maxSeq[held[i].AchievementID] {
			maxSeq[held[i].AchievementID] = held[i].Sequence
		}
	}

	var out []unlock
	for i := range defs {
		def := &defs[i]
		have := maxSeq[def.ID]
		if have > 0 && !def.IsRepeatable {
			continue
		}
		earned := o.evaluator.TimesEarned(p, summary, def)
		if earned <= have {
			continue
		}
		current, _ := o.evaluator.Current(p, summary, def)
		for seq := have + 1; seq <= earned; seq++ {
			rec := model.AchievementUnlockRecord{
				ID:                    o.newID(),
				UserID:                p.UserID,
				AchievementID:         def.ID,
				Sequence:              seq,
				UnlockedAt:            now,
				ProgressValueAtUnlock: current,
				PointsAwarded:         def.AwardPoints(),
			}
			inserted, err := tx.InsertUnlock(ctx, rec)
			if err != nil {
				return nil, fmt.Errorf("insert unlock %s: %w", def.Name, err)
			}
			if !inserted {
				metrics.RecordUnlockConflict()
				o.log.Debug(ctx, "achievement already unlocked",
					logger.Int64("user_id", p.UserID),
					logger.String("achievement", def.Name),
					logger.Int("sequence", seq),
				)
				continue
			}
			p.TotalPoints += rec.PointsAwarded
			p.AchievementsUnlockedCount++
			out = append(out, unlock{def: *def, rec: rec})
		}
	}
	return out, nil
}

func (o *Orchestrator) record(ev *model.DiscoveryEvent, res *Result, unlocked []unlock) {
	metrics.RecordDiscoveryProcessed()
	if res.IsNewSpecies {
		metrics.RecordNewSpecies()
		metrics.RecordPointsAwarded("species", o.points.Points(ev.Rarity))
	} else {
		metrics.RecordSighting()
	}
	for i := range unlocked {
		metrics.RecordAchievementUnlocked(string(unlocked[i].def.Type), string(unlocked[i].def.Tier))
		metrics.RecordPointsAwarded("achievement", unlocked[i].rec.PointsAwarded)
	}
	if res.LevelUp {
		metrics.RecordLevelUp()
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, res *Result, unlocked []unlock) {
	if o.notifier == nil {
		return
	}
	now := o.now()
	for i := range unlocked {
		u := unlocked[i]
		o.notify(ctx, Notification{
			Kind:        KindAchievementUnlocked,
			UserID:      res.Progress.UserID,
			Achievement: &u.def,
			Unlock:      &u.rec,
			TotalPoints: res.Progress.TotalPoints,
			At:          now,
		})
	}
	if res.LevelUp {
		o.notify(ctx, Notification{
			Kind:        KindLevelUp,
			UserID:      res.Progress.UserID,
			OldLevel:    res.OldLevel,
			NewLevel:    res.Progress.CurrentLevel,
			TotalPoints: res.Progress.TotalPoints,
			At:          now,
		})
	}
}

func (o *Orchestrator) notify(ctx context.Context, n Notification) {
	if err := o.notifier.Notify(ctx, n); err != nil {
		metrics.RecordNotificationFailed(string(n.Kind))
		o.log.Warn(ctx, "notification dispatch failed",
			logger.String("kind", string(n.Kind)),
			logger.Int64("user_id", n.UserID),
			logger.Error(err),
		)
	}
}
