package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/tempvoice/config"
	"github.com/cwrk-planet/tempvoice/internal/postgres"
	"github.com/cwrk-planet/tempvoice/internal/redisx"
	"github.com/cwrk-planet/tempvoice/internal/registry"
	"github.com/cwrk-planet/tempvoice/internal/service"
	"github.com/cwrk-planet/tempvoice/internal/sqlite"
)

// Store is the migrated registry for the configured driver, optionally behind
// the redis cache. Close releases everything it opened.
type Store struct {
	registry.Registry
	closers []func() error
}

func (s *Store) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Store, error) {
	var (
		reg registry.Registry
		st  = &Store{}
	)
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Store.PostgresConfig())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		reg = postgres.NewRegistry(pool)
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Store.SQLiteConfig())
		if err != nil {
			return nil, err
		}
		reg = sqlite.NewRegistry(db)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	st.closers = append(st.closers, reg.Close)

	if err := reg.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	if cfg.Redis.Enabled() {
		client, err := redisx.NewClient(ctx, cfg.Redis.ClientConfig())
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st.closers = append(st.closers, client.Close)
		reg = registry.NewCached(reg, redisx.NewCache(client, cfg.Redis.Prefix), cfg.Redis.CacheTTL(), log)
	}

	st.Registry = reg
	log.Info("registry ready", "driver", cfg.Store.Driver, "cache", cfg.Redis.Enabled())
	return st, nil
}

// Services is the domain layer over one registry and one gateway.
type Services struct {
	Rooms       *service.LifecycleManager
	Generators  *service.GeneratorService
	Provisioner *service.Provisioner
	Reconciler  *service.Reconciler
}

func NewServices(reg registry.Registry, gw service.Gateway, cfg *config.Config, log *slog.Logger, opts ...service.LifecycleOption) *Services {
	locks := service.NewKeyLock()
	rooms := service.NewLifecycleManager(reg, gw, locks, cfg.Rooms.LifecycleConfig(), log, opts...)
	return &Services{
		Rooms:       rooms,
		Generators:  service.NewGeneratorService(reg, gw, rooms, log),
		Provisioner: service.NewProvisioner(reg, gw, locks, cfg.Unique.ProvisionerConfig(), log),
		Reconciler:  service.NewReconciler(reg, rooms, cfg.Reconcile.Concurrency, log),
	}
}
