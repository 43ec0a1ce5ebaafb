package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/progress"
	"github.com/cosnor/winged/internal/domain/types"
)

// GetProgress returns the user's progress. A user with no discoveries gets
// a zero snapshot at level 1.
func (s *Service) GetProgress(ctx context.Context, userID int64) (types.ProgressSnapshot, error) {
	if err := s.running(); err != nil {
		return types.ProgressSnapshot{}, err
	}
	if userID <= 0 {
		return types.ProgressSnapshot{}, ErrInvalidUser
	}
	p, found, err := s.store.GetProgress(ctx, userID)
	if err != nil {
		return types.ProgressSnapshot{}, fmt.Errorf("get progress %d: %w", userID, err)
	}
	if !found {
		p = model.NewUserProgress(userID)
		return toSnapshot(&p), nil
	}
	snap := toSnapshot(&p)
	entries, err := s.store.ListCollection(ctx, userID)
	if err != nil {
		return types.ProgressSnapshot{}, fmt.Errorf("list collection %d: %w", userID, err)
	}
	summary := model.Summarize(entries)
	snap.CompletedCollections = s.counter.Completed(summary.SpeciesIDs)
	return snap, nil
}

// userView is everything needed to describe achievements for one user.
type userView struct {
	progress model.UserProgress
	summary  model.CollectionSummary
	earned   map[string][]model.AchievementUnlockRecord
}

func (s *Service) loadView(ctx context.Context, userID int64) (*userView, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	p, found, err := s.store.GetProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get progress %d: %w", userID, err)
	}
	if !found {
		p = model.NewUserProgress(userID)
	}
	entries, err := s.store.ListCollection(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list collection %d: %w", userID, err)
	}
	recs, err := s.store.ListUnlocks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unlocks %d: %w", userID, err)
	}
	v := &userView{progress: p, summary: model.Summarize(entries), earned: map[string][]model.AchievementUnlockRecord{}}
	for _, r := range recs {
		v.earned[r.AchievementID] = append(v.earned[r.AchievementID], r)
	}
	return v, nil
}

func (s *Service) status(v *userView, def *model.AchievementDefinition) types.AchievementStatus {
	current, _ := s.evaluator.Current(&v.progress, &v.summary, def)
	st := types.AchievementStatus{
		AchievementID:    def.ID,
		Name:             def.Name,
		Description:      def.Description,
		Type:             string(def.Type),
		Tier:             string(def.Tier),
		RequirementValue: def.RequirementValue,
		CurrentValue:     current,
		Progress:         s.evaluator.ProgressFraction(&v.progress, &v.summary, def),
		Estimate:         s.evaluator.Estimate(&v.progress, &v.summary, def),
	}
	recs := v.earned[def.ID]
	if len(recs) == 0 {
		return st
	}
	st.Completed = true
	st.TimesEarned = len(recs)
	first := recs[0].UnlockedAt
	for _, r := range recs {
		st.PointsAwarded += r.PointsAwarded
		if r.UnlockedAt.Before(first) {
			first = r.UnlockedAt
		}
	}
	st.UnlockedAt = &first
	return st
}

// GetUnlockedAchievements lists the user's earned achievements. With
// completedOnly false, visible achievements still in progress follow them.
func (s *Service) GetUnlockedAchievements(ctx context.Context, userID int64, completedOnly bool) ([]types.AchievementStatus, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	v, err := s.loadView(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs, err := s.catalog.Definitions()
	if err != nil {
		return nil, err
	}

	var done, pending []types.AchievementStatus
	for i := range defs {
		def := &defs[i]
		st := s.status(v, def)
		switch {
		case st.Completed:
			done = append(done, st)
		case !completedOnly && !def.IsHidden:
			pending = append(pending, st)
		}
	}
	sort.SliceStable(done, func(i, j int) bool { return done[i].UnlockedAt.Before(*done[j].UnlockedAt) })
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].Progress > pending[j].Progress })
	return append(done, pending...), nil
}

// GetAchievementProgress returns every achievement the user can see in
// catalog order. Hidden ones appear once unlocked.
func (s *Service) GetAchievementProgress(ctx context.Context, userID int64) ([]types.AchievementStatus, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	v, err := s.loadView(ctx, userID)
	if err != nil {
		return nil, err
	}
	defs, err := s.catalog.Definitions()
	if err != nil {
		return nil, err
	}
	out := make([]types.AchievementStatus, 0, len(defs))
	for i := range defs {
		def := &defs[i]
		if def.IsHidden && len(v.earned[def.ID]) == 0 {
			continue
		}
		out = append(out, s.status(v, def))
	}
	return out, nil
}

// GetLeaderboard returns the top users by metric. An empty metric means
// total points.
func (s *Service) GetLeaderboard(ctx context.Context, metric string, limit int) ([]types.Entry, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	m, err := model.ParseMetric(metric)
	if err != nil {
		return nil, err
	}
	return s.ranks.Leaderboard(ctx, m, limit)
}

// GetRank returns the user's competition rank by metric.
func (s *Service) GetRank(ctx context.Context, userID int64, metric string) (types.Entry, error) {
	if err := s.running(); err != nil {
		return types.Entry{}, err
	}
	m, err := model.ParseMetric(metric)
	if err != nil {
		return types.Entry{}, err
	}
	return s.ranks.Rank(ctx, userID, m)
}

// MaxLeaderboardLimit returns the largest accepted leaderboard limit.
func (s *Service) MaxLeaderboardLimit() int { return s.maxLimit }

func toSnapshot(p *model.UserProgress) types.ProgressSnapshot {
	var last *time.Time
	if p.LastDiscoveryDate != nil {
		t := *p.LastDiscoveryDate
		last = &t
	}
	level := p.CurrentLevel
	if level < 1 {
		level = progress.LevelForPoints(p.TotalPoints)
	}
	return types.ProgressSnapshot{
		UserID:                        p.UserID,
		TotalDiscoveries:              p.TotalDiscoveries,
		UniqueSpeciesCount:            p.UniqueSpeciesCount,
		TotalPoints:                   p.TotalPoints,
		CurrentLevel:                  level,
		PointsToNextLevel:             progress.PointsToNextLevel(p.TotalPoints),
		CurrentStreakDays:             p.CurrentStreakDays,
		LongestStreakDays:             p.LongestStreakDays,
		LastDiscoveryDate:             last,
		AchievementsUnlockedCount:     p.AchievementsUnlockedCount,
		RareSpeciesCount:              p.RareSpeciesCount,
		CollectionsCompleted:          p.CollectionsCompleted,
		TotalIdentifications:          p.TotalIdentifications,
		HighConfidenceIdentifications: p.HighConfidenceIdentifications,
		AccuracyRate:                  p.AccuracyRate(),
		AveragePointsPerSpecies:       p.AveragePointsPerSpecies(),
	}
}

func (s *Service) toResult(res *discovery.Result) types.DiscoveryResult {
	out := types.DiscoveryResult{
		IsNewSpecies:  res.IsNewSpecies,
		LevelUp:       res.LevelUp,
		OldLevel:      res.OldLevel,
		NewLevel:      res.Progress.CurrentLevel,
		NewlyUnlocked: make([]types.Unlock, 0, len(res.NewlyUnlocked)),
		Progress:      toSnapshot(&res.Progress),
	}
	for _, rec := range res.NewlyUnlocked {
		u := types.Unlock{
			AchievementID: rec.AchievementID,
			Sequence:      rec.Sequence,
			PointsAwarded: rec.PointsAwarded,
			UnlockedAt:    rec.UnlockedAt,
		}
		if def, ok := s.catalog.Get(rec.AchievementID); ok {
			u.Name = def.Name
			u.Tier = string(def.Tier)
		}
		out.NewlyUnlocked = append(out.NewlyUnlocked, u)
	}
	return out
}
