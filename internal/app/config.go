package service

import (
	"fmt"
	"time"

	"github.com/cosnor/winged/internal/config"
	"github.com/cosnor/winged/internal/domain/model"
)

// Definitions converts configured achievements into catalog definitions.
func Definitions(in []config.Achievement) ([]model.AchievementDefinition, error) {
	out := make([]model.AchievementDefinition, 0, len(in))
	for _, a := range in {
		tier, err := model.ParseTier(a.Tier)
		if err != nil {
			return nil, fmt.Errorf("achievement %q: %w", a.Name, err)
		}
		out = append(out, model.AchievementDefinition{
			Name:             a.Name,
			Description:      a.Description,
			Type:             model.AchievementType(a.Type),
			Tier:             tier,
			BasePoints:       a.BasePoints,
			RequirementValue: a.RequirementValue,
			IsHidden:         a.Hidden,
			IsRepeatable:     a.Repeatable,
		})
	}
	return out, nil
}

// OptionsFromConfig maps process configuration onto service options.
func OptionsFromConfig(cfg *config.Config) ([]Option, error) {
	defs, err := Definitions(cfg.Achievements)
	if err != nil {
		return nil, err
	}
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.EventQueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithProcessRetries(cfg.ProcessRetries),
		WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		WithSpeciesPoints(cfg.SpeciesPoints),
		WithCollections(cfg.Collections),
		WithAchievements(defs),
	}, nil
}

// NotifyTimeout returns the configured notification delivery timeout.
func NotifyTimeout(cfg *config.Config) time.Duration {
	return time.Duration(cfg.NotifyTimeoutMS) * time.Millisecond
}
