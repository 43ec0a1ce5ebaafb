package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/internal/domain/model"
	"github.com/cosnor/winged/internal/domain/types"
	"github.com/cosnor/winged/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = "schema_migrations"

// Postgres errors.
var (
	ErrMigrationFailed = errors.New("postgres: migration failed")
	ErrNoDatabaseURL   = errors.New("postgres: database url is empty")
)

// PostgresStore implements Store on PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool      *pgxpool.Pool
	observers []Observer
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresObserver registers an observer of committed progress.
func WithPostgresObserver(o Observer) PostgresOption {
	return func(s *PostgresStore) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// NewPostgresStore connects to databaseURL, verifies the connection and
// applies pending migrations.
func NewPostgresStore(ctx context.Context, databaseURL string, opts ...PostgresOption) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, ErrNoDatabaseURL
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse database url: %w", err)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 10
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies embedded migrations that are not yet recorded.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("%w: create migrations table: %w", ErrMigrationFailed, err)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	sort.Strings(names)

	for _, name := range names {
		base := strings.TrimPrefix(name, "migrations/")
		version, err := strconv.Atoi(strings.SplitN(base, "_", 2)[0])
		if err != nil {
			return fmt.Errorf("%w: bad migration name %s", ErrMigrationFailed, base)
		}
		body, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx,
				`INSERT INTO `+migrationsTable+` (version, name) VALUES ($1, $2) ON CONFLICT (version) DO NOTHING`,
				version, base)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			_, err = tx.Exec(ctx, string(body))
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %w", ErrMigrationFailed, version, err)
		}
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const progressColumns = `user_id, total_discoveries, unique_species_count, total_points,
	current_level, current_streak_days, longest_streak_days, last_discovery_date,
	achievements_unlocked_count, rare_species_count, collections_completed,
	total_identifications, high_confidence_identifications, version, created_at, updated_at`

func scanProgress(row pgx.Row) (model.UserProgress, error) {
	var p model.UserProgress
	err := row.Scan(&p.UserID, &p.TotalDiscoveries, &p.UniqueSpeciesCount, &p.TotalPoints,
		&p.CurrentLevel, &p.CurrentStreakDays, &p.LongestStreakDays, &p.LastDiscoveryDate,
		&p.AchievementsUnlockedCount, &p.RareSpeciesCount, &p.CollectionsCompleted,
		&p.TotalIdentifications, &p.HighConfidenceIdentifications, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// WithinUser implements discovery.Store. The user's progress row is locked
// with SELECT FOR UPDATE for the whole transaction.
func (s *PostgresStore) WithinUser(ctx context.Context, userID int64, fn func(ctx context.Context, tx discovery.Tx) error) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreTxLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var committed *model.UserProgress
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_progress (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
			return fmt.Errorf("ensure progress row: %w", err)
		}
		locked, err := scanProgress(tx.QueryRow(ctx,
			`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 FOR UPDATE`, userID))
		if err != nil {
			return fmt.Errorf("lock progress row: %w", err)
		}
		ptx := &pgTx{tx: tx, userID: userID, locked: locked}
		if err := fn(ctx, ptx); err != nil {
			return err
		}
		committed = ptx.written
		return nil
	})
	if err != nil {
		metrics.RecordStoreError("within_user")
		return err
	}
	if committed != nil {
		for _, o := range s.observers {
			o.ProgressCommitted(ctx, committed.Clone())
		}
	}
	return nil
}

// pgTx is a discovery.Tx over one pgx transaction.
type pgTx struct {
	tx      pgx.Tx
	userID  int64
	locked  model.UserProgress
	written *model.UserProgress
}

func (t *pgTx) checkUser(userID int64) error {
	if userID != t.userID {
		return fmt.Errorf("transaction for user %d used for user %d", t.userID, userID)
	}
	return nil
}

func (t *pgTx) GetCollectionEntry(ctx context.Context, userID int64, speciesID string) (model.CollectionEntry, bool, error) {
	if err := t.checkUser(userID); err != nil {
		return model.CollectionEntry{}, false, err
	}
	e, err := scanEntry(t.tx.QueryRow(ctx, `SELECT user_id, species_id, first_seen_at, last_seen_at,
		sighting_count, best_confidence, last_lat, last_lon
		FROM species_collection WHERE user_id = $1 AND species_id = $2`, userID, speciesID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CollectionEntry{}, false, nil
	}
	if err != nil {
		return model.CollectionEntry{}, false, err
	}
	return e, true, nil
}

func (t *pgTx) PutCollectionEntry(ctx context.Context, e model.CollectionEntry) error {
	if err := t.checkUser(e.UserID); err != nil {
		return err
	}
	var lat, lon *float64
	if e.LastLocation != nil {
		lat, lon = &e.LastLocation.Lat, &e.LastLocation.Lon
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO species_collection
		(user_id, species_id, first_seen_at, last_seen_at, sighting_count, best_confidence, last_lat, last_lon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, species_id) DO UPDATE SET
			last_seen_at = EXCLUDED.last_seen_at,
			sighting_count = EXCLUDED.sighting_count,
			best_confidence = EXCLUDED.best_confidence,
			last_lat = EXCLUDED.last_lat,
			last_lon = EXCLUDED.last_lon`,
		e.UserID, e.SpeciesID, e.FirstSeenAt, e.LastSeenAt, e.SightingCount, e.BestConfidence, lat, lon)
	return err
}

func (t *pgTx) ListCollection(ctx context.Context, userID int64) ([]model.CollectionEntry, error) {
	if err := t.checkUser(userID); err != nil {
		return nil, err
	}
	return listCollection(ctx, t.tx, userID)
}

func (t *pgTx) GetProgress(ctx context.Context, userID int64) (model.UserProgress, bool, error) {
	if err := t.checkUser(userID); err != nil {
		return model.UserProgress{}, false, err
	}
	if t.written != nil {
		return t.written.Clone(), true, nil
	}
	if t.locked.Version == 0 {
		return model.UserProgress{}, false, nil
	}
	return t.locked.Clone(), true, nil
}

func (t *pgTx) PutProgress(ctx context.Context, p model.UserProgress) error {
	if err := t.checkUser(p.UserID); err != nil {
		return err
	}
	p.Version = t.locked.Version + 1
	if p.CreatedAt.IsZero() {
		p.CreatedAt = t.locked.CreatedAt
	}
	_, err := t.tx.Exec(ctx, `UPDATE user_progress SET
			total_discoveries = $2, unique_species_count = $3, total_points = $4,
			current_level = $5, current_streak_days = $6, longest_streak_days = $7,
			last_discovery_date = $8, achievements_unlocked_count = $9, rare_species_count = $10,
			collections_completed = $11, total_identifications = $12,
			high_confidence_identifications = $13, version = $14, created_at = $15, updated_at = $16
		WHERE user_id = $1`,
		p.UserID, p.TotalDiscoveries, p.UniqueSpeciesCount, p.TotalPoints,
		p.CurrentLevel, p.CurrentStreakDays, p.LongestStreakDays,
		p.LastDiscoveryDate, p.AchievementsUnlockedCount, p.RareSpeciesCount,
		p.CollectionsCompleted, p.TotalIdentifications,
		p.HighConfidenceIdentifications, p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	c := p.Clone()
	t.written = &c
	return nil
}

func (t *pgTx) ListUnlocks(ctx context.Context, userID int64) ([]model.AchievementUnlockRecord, error) {
	if err := t.checkUser(userID); err != nil {
		return nil, err
	}
	return listUnlocks(ctx, t.tx, userID)
}

func (t *pgTx) InsertUnlock(ctx context.Context, rec model.AchievementUnlockRecord) (bool, error) {
	if err := t.checkUser(rec.UserID); err != nil {
		return false, err
	}
	tag, err := t.tx.Exec(ctx, `INSERT INTO user_achievements
		(id, user_id, achievement_id, sequence, unlocked_at, progress_value_at_unlock, points_awarded)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, achievement_id, sequence) DO NOTHING`,
		rec.ID, rec.UserID, rec.AchievementID, rec.Sequence, rec.UnlockedAt, rec.ProgressValueAtUnlock, rec.PointsAwarded)
	if IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpsertAchievements inserts or updates definitions by name in one batch.
func (s *PostgresStore) UpsertAchievements(ctx context.Context, defs []model.AchievementDefinition) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i := range defs {
			d := &defs[i]
			batch.Queue(`INSERT INTO achievements
				(id, name, description, type, tier, base_points, requirement_value, is_hidden, is_repeatable)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (name) DO UPDATE SET
					description = EXCLUDED.description,
					type = EXCLUDED.type,
					tier = EXCLUDED.tier,
					base_points = EXCLUDED.base_points,
					requirement_value = EXCLUDED.requirement_value,
					is_hidden = EXCLUDED.is_hidden,
					is_repeatable = EXCLUDED.is_repeatable,
					updated_at = NOW()`,
				d.ID, d.Name, d.Description, string(d.Type), string(d.Tier),
				d.BasePoints, d.RequirementValue, d.IsHidden, d.IsRepeatable)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// ListAchievements returns every definition ordered by name.
func (s *PostgresStore) ListAchievements(ctx context.Context) ([]model.AchievementDefinition, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, type, tier, base_points,
		requirement_value, is_hidden, is_repeatable FROM achievements ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AchievementDefinition, error) {
		var d model.AchievementDefinition
		var typ, tier string
		err := row.Scan(&d.ID, &d.Name, &d.Description, &typ, &tier, &d.BasePoints,
			&d.RequirementValue, &d.IsHidden, &d.IsRepeatable)
		d.Type, d.Tier = model.AchievementType(typ), model.Tier(tier)
		return d, err
	})
}

// GetProgress returns committed progress. Placeholder rows left by
// concurrent transactions count as not found.
func (s *PostgresStore) GetProgress(ctx context.Context, userID int64) (model.UserProgress, bool, error) {
	p, err := scanProgress(s.pool.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM user_progress WHERE user_id = $1 AND version > 0`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.UserProgress{}, false, nil
	}
	if err != nil {
		metrics.RecordStoreError("get_progress")
		return model.UserProgress{}, false, err
	}
	return p, true, nil
}

// ListCollection returns a user's collection ordered by species id.
func (s *PostgresStore) ListCollection(ctx context.Context, userID int64) ([]model.CollectionEntry, error) {
	return listCollection(ctx, s.pool, userID)
}

// ListUnlocks returns a user's unlocks in unlock order.
func (s *PostgresStore) ListUnlocks(ctx context.Context, userID int64) ([]model.AchievementUnlockRecord, error) {
	return listUnlocks(ctx, s.pool, userID)
}

// TopN implements Store.TopN with ORDER BY metric DESC, user_id ASC.
func (s *PostgresStore) TopN(ctx context.Context, metric model.Metric, limit int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	col, err := metricColumn(metric)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT user_id, `+col+` FROM user_progress
		WHERE version > 0 ORDER BY `+col+` DESC, user_id ASC LIMIT $1`, limit)
	if err != nil {
		metrics.RecordStoreError("top_n")
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Entry, error) {
		var e types.Entry
		err := row.Scan(&e.UserID, &e.Value)
		return e, err
	})
}

// CountAbove implements Store.CountAbove.
func (s *PostgresStore) CountAbove(ctx context.Context, metric model.Metric, value int64) (int64, error) {
	col, err := metricColumn(metric)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_progress
		WHERE version > 0 AND `+col+` > $1`, value).Scan(&n)
	if err != nil {
		metrics.RecordStoreError("count_above")
	}
	return n, err
}

// CountUsers returns the number of users with progress.
func (s *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_progress WHERE version > 0`).Scan(&n)
	return n, err
}

// metricColumn maps a metric to its column. Only known metrics reach SQL.
func metricColumn(m model.Metric) (string, error) {
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidMetric, m)
	}
	return string(m), nil
}

// querier is implemented by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanEntry(row pgx.Row) (model.CollectionEntry, error) {
	var e model.CollectionEntry
	var lat, lon *float64
	err := row.Scan(&e.UserID, &e.SpeciesID, &e.FirstSeenAt, &e.LastSeenAt,
		&e.SightingCount, &e.BestConfidence, &lat, &lon)
	if err == nil && lat != nil && lon != nil {
		e.LastLocation = &model.Location{Lat: *lat, Lon: *lon}
	}
	return e, err
}

func listCollection(ctx context.Context, q querier, userID int64) ([]model.CollectionEntry, error) {
	rows, err := q.Query(ctx, `SELECT user_id, species_id, first_seen_at, last_seen_at,
		sighting_count, best_confidence, last_lat, last_lon
		FROM species_collection WHERE user_id = $1 ORDER BY species_id`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CollectionEntry, error) {
		return scanEntry(row)
	})
}

func listUnlocks(ctx context.Context, q querier, userID int64) ([]model.AchievementUnlockRecord, error) {
	rows, err := q.Query(ctx, `SELECT id, user_id, achievement_id, sequence, unlocked_at,
		progress_value_at_unlock, points_awarded
		FROM user_achievements WHERE user_id = $1 ORDER BY unlocked_at, achievement_id, sequence`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AchievementUnlockRecord, error) {
		var r model.AchievementUnlockRecord
		err := row.Scan(&r.ID, &r.UserID, &r.AchievementID, &r.Sequence, &r.UnlockedAt,
			&r.ProgressValueAtUnlock, &r.PointsAwarded)
		return r, err
	})
}

// IsUniqueViolation checks if the error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
