package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cosnor/winged/internal/adapters/cache"
	"github.com/cosnor/winged/internal/adapters/notify"
	"github.com/cosnor/winged/internal/adapters/repository"
	app "github.com/cosnor/winged/internal/app"
	"github.com/cosnor/winged/internal/config"
	"github.com/cosnor/winged/internal/domain/discovery"
	"github.com/cosnor/winged/pkg/logger"
)

// runtime holds every long-lived component of the process.
type runtime struct {
	cfg        *config.Config
	redis      *redis.Client
	mirror     *cache.Leaderboard
	store      repository.Store
	dispatcher *notify.Dispatcher
	svc        *app.Service
}

// build wires the components described by cfg. The caller must call close.
func build(ctx context.Context, cfg *config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}
	if err := rt.wire(ctx); err != nil {
		if cerr := rt.close(context.WithoutCancel(ctx)); cerr != nil {
			return nil, errors.Join(err, cerr)
		}
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) wire(ctx context.Context) (err error) {
	cfg := rt.cfg
	log := logger.Named("main")

	if cfg.RedisAddr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		if rt.mirror, err = cache.NewLeaderboard(rt.redis); err != nil {
			return err
		}
		log.Info(ctx, "redis enabled", logger.String("addr", cfg.RedisAddr))
	}

	if rt.store, err = buildStore(ctx, cfg, rt.mirror); err != nil {
		return err
	}
	if rt.mirror != nil {
		if err := rt.mirror.Warm(ctx, rt.store); err != nil {
			return fmt.Errorf("warm leaderboard mirror: %w", err)
		}
	}

	notifiers := notify.Multi{notify.NewLogNotifier()}
	if rt.redis != nil {
		pub, err := notify.NewRedisPublisher(rt.redis, cfg.NotifyChannel)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, pub)
	}
	rt.dispatcher = notify.NewDispatcher(notifiers, notify.WithTimeout(app.NotifyTimeout(cfg)))

	opts, err := app.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts = append(opts, app.WithNotifier(discovery.Notifier(rt.dispatcher)))
	if rt.mirror != nil {
		opts = append(opts, app.WithLeaderboardCache(rt.mirror))
	}
	if rt.svc, err = app.New(rt.store, opts...); err != nil {
		return err
	}
	// Workers outlive the signal context; close drains them.
	if err := rt.svc.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	return nil
}

func buildStore(ctx context.Context, cfg *config.Config, mirror *cache.Leaderboard) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		var opts []repository.PostgresOption
		if mirror != nil {
			opts = append(opts, repository.WithPostgresObserver(mirror))
		}
		store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreMemory:
		var opts []repository.Option
		if mirror != nil {
			opts = append(opts, repository.WithObserver(mirror))
		}
		return repository.NewMemoryStore(ctx, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// close stops the components in reverse order of construction.
func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	if rt.svc != nil {
		errs = append(errs, rt.svc.Stop(ctx))
	}
	if rt.dispatcher != nil {
		errs = append(errs, rt.dispatcher.Wait(ctx))
	}
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	if rt.redis != nil {
		errs = append(errs, rt.redis.Close())
	}
	return errors.Join(errs...)
}
