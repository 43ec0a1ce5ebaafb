package achievement

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/pkg/logger"
)

// Store persists achievement definitions.
type Store interface {
	// UpsertAchievements inserts definitions by name and updates the ones
	// that already exist. Running it twice creates no duplicates.
	UpsertAchievements(ctx context.Context, defs []model.AchievementDefinition) error
	// ListAchievements returns every stored definition.
	ListAchievements(ctx context.Context) ([]model.AchievementDefinition, error)
}

// Catalog is the set of achievement definitions the engine evaluates.
// It is loaded once by Bootstrap and read-only afterwards.
type Catalog struct {
	store  Store
	strict bool
	log    logger.Logger

	mu     sync.RWMutex
	loaded bool
	defs   []model.AchievementDefinition
	byID   map[string]int
}

// NewCatalog creates a catalog backed by store.
func NewCatalog(store Store, opts ...Option) (*Catalog, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	c := &Catalog{store: store, byID: map[string]int{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("catalog")
	}
	return c, nil
}

// Bootstrap upserts defs by name and reloads the catalog from the store.
// Ids are derived from names so reruns and other processes agree on them.
func (c *Catalog) Bootstrap(ctx context.Context, defs []model.AchievementDefinition) error {
	prepared, err := c.prepare(defs)
	if err != nil {
		return err
	}
	if err := c.store.UpsertAchievements(ctx, prepared); err != nil {
		return fmt.Errorf("upsert achievements: %w", err)
	}
	if err := c.Reload(ctx); err != nil {
		return err
	}
	c.log.Info(ctx, "achievement catalog bootstrapped",
		logger.Int("requested", len(defs)),
		logger.Int("definitions", c.Len()),
	)
	return nil
}

// Reload replaces the in-memory definitions with the stored ones.
func (c *Catalog) Reload(ctx context.Context) error {
	stored, err := c.store.ListAchievements(ctx)
	if err != nil {
		return fmt.Errorf("list achievements: %w", err)
	}
	sortDefinitions(stored)

	byID := make(map[string]int, len(stored))
	for i := range stored {
		if !stored[i].Type.Known() {
			c.log.Warn(ctx, "achievement has unknown type and will never be met",
				logger.String("name", stored[i].Name),
				logger.String("type", string(stored[i].Type)),
			)
		}
		byID[stored[i].ID] = i
	}

	c.mu.Lock()
	c.defs = stored
	c.byID = byID
	c.loaded = true
	c.mu.Unlock()
	return nil
}

func (c *Catalog) prepare(defs []model.AchievementDefinition) ([]model.AchievementDefinition, error) {
	seen := make(map[string]struct{}, len(defs))
	out := make([]model.AchievementDefinition, 0, len(defs))
	for i := range defs {
		d := defs[i]
		d.Name = strings.TrimSpace(d.Name)
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("achievement %q: %w", defs[i].Name, err)
		}
		if c.strict && !d.Type.Known() {
			return nil, fmt.Errorf("achievement %q: %w: %q", d.Name, ErrUnknownType, d.Type)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, d.Name)
		}
		seen[d.Name] = struct{}{}
		d.ID = model.AchievementID(d.Name)
		out = append(out, d)
	}
	return out, nil
}

// Definitions returns a copy of every definition.
func (c *Catalog) Definitions() ([]model.AchievementDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, ErrNotBootstrapped
	}
	out := make([]model.AchievementDefinition, len(c.defs))
	copy(out, c.defs)
	return out, nil
}

// Get returns the definition with id.
func (c *Catalog) Get(id string) (model.AchievementDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return model.AchievementDefinition{}, false
	}
	return c.defs[i], true
}

// Len returns the number of loaded definitions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}

var tierOrder = map[model.Tier]int{
	model.TierBronze:   0,
	model.TierSilver:   1,
	model.TierGold:     2,
	model.TierPlatinum: 3,
	model.TierDiamond:  4,
}

// sortDefinitions orders by type, requirement, tier then name so
// evaluation and listings are deterministic.
func sortDefinitions(defs []model.AchievementDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		a, b := &defs[i], &defs[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.RequirementValue != b.RequirementValue {
			return a.RequirementValue < b.RequirementValue
		}
		if tierOrder[a.Tier] != tierOrder[b.Tier] {
			return tierOrder[a.Tier] < tierOrder[b.Tier]
		}
		return a.Name < b.Name
	})
}
