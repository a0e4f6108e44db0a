package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/growthmart/internal/adapter/provider"
	"github.com/polkiloo/growthmart/internal/app"
	"github.com/polkiloo/growthmart/internal/broadcast"
	"github.com/polkiloo/growthmart/internal/config"
	"github.com/polkiloo/growthmart/internal/logger"
	"github.com/polkiloo/growthmart/internal/metrics"
	"github.com/polkiloo/growthmart/internal/server/http/handlers"
	"github.com/polkiloo/growthmart/internal/server/http/router"
	"github.com/polkiloo/growthmart/internal/storage"
	"github.com/polkiloo/growthmart/internal/usecase"
	"github.com/polkiloo/growthmart/internal/worker"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		storage.Module,
		provider.Module,
		broadcast.Module,
		usecase.Module,
		fx.Provide(
			func(g provider.Gateway) usecase.Gateway { return g },
			func(b broadcast.Broadcaster) usecase.StatusBroadcaster { return b },
			func(r *metrics.Recorder) usecase.OrderMetrics { return r },
			func(r *metrics.Recorder) usecase.DispatchMetrics { return r },
			func(r *metrics.Recorder) worker.SweepMetrics { return r },
			func(u *usecase.OrderUseCase) worker.StaleOrderSource { return u },
			func(l *usecase.Lifecycle) worker.Dispatcher { return l },
			func(f *app.FulfillmentFacade) handlers.FulfillmentFacade { return f },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
