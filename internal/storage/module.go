package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/growthmart/internal/config"
	"github.com/polkiloo/growthmart/internal/domain/repository"
	"github.com/polkiloo/growthmart/internal/storage/memory"
	"github.com/polkiloo/growthmart/internal/storage/postgres"
)

// Module wires the configured storage backend and its repositories.
var Module = fx.Options(
	fx.Provide(newStore),
	fx.Provide(func(s repository.Store) repository.OrderRepository { return s.Orders() }),
	fx.Invoke(registerLifecycle),
)

type storeParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newStore(p storeParams) (repository.Store, error) {
	switch p.Config.StorageDriver {
	case config.DriverPostgres:
		return postgres.New(p.Ctx, p.Config.DatabaseURI, p.Logger)
	case config.DriverMemory, "":
		p.Logger.Warn("using in-memory order storage; orders are lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", p.Config.StorageDriver)
	}
}

func registerLifecycle(lc fx.Lifecycle, store repository.Store) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			store.Close()
			return nil
		},
	})
}
