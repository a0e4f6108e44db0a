package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/growthmart/internal/config"
	"github.com/polkiloo/growthmart/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newOrderUseCase,
	newLifecycle,
)

type orderParams struct {
	fx.In

	Orders  repository.OrderRepository
	Metrics OrderMetrics `optional:"true"`
}

func newOrderUseCase(p orderParams) *OrderUseCase {
	return NewOrderUseCase(p.Orders, p.Metrics)
}

type lifecycleParams struct {
	fx.In

	Orders      repository.OrderRepository
	Gateway     Gateway
	Broadcaster StatusBroadcaster
	Metrics     DispatchMetrics `optional:"true"`
	Config      *config.Config
	Logger      *slog.Logger
}

func newLifecycle(p lifecycleParams) *Lifecycle {
	return NewLifecycle(p.Orders, p.Gateway, p.Broadcaster, p.Metrics, LifecycleConfig{
		ProviderTimeout: p.Config.ProviderTimeout,
		ClaimTTL:        p.Config.DispatchClaimTTL,
		MaxAttempts:     p.Config.MaxDispatchAttempts,
	}, p.Logger)
}
