package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/growthmart/internal/config"
	"github.com/polkiloo/growthmart/internal/worker"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewFulfillmentFacade,
		newHTTPServer,
		newSweeper,
		newScheduler,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type sweeperParams struct {
	fx.In

	Source     worker.StaleOrderSource
	Dispatcher worker.Dispatcher
	Metrics    worker.SweepMetrics `optional:"true"`
	Config     *config.Config
	Logger     *slog.Logger
}

func newSweeper(p sweeperParams) *worker.Sweeper {
	return worker.NewSweeper(p.Source, p.Dispatcher, p.Metrics, worker.SweeperConfig{
		StaleAfter:  p.Config.SweepStaleAfter,
		BatchSize:   p.Config.SweepBatchSize,
		Concurrency: p.Config.SweepConcurrency,
	}, p.Logger)
}

type schedulerParams struct {
	fx.In

	Sweeper *worker.Sweeper
	Config  *config.Config
	Logger  *slog.Logger
}

func newScheduler(p schedulerParams) (*worker.Scheduler, error) {
	return worker.NewScheduler(p.Config.SweepSchedule, func(ctx context.Context) {
		if _, err := p.Sweeper.SweepStalePending(ctx); err != nil {
			p.Logger.Error("scheduled sweep failed", slog.String("error", err.Error()))
		}
	}, p.Logger)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Scheduler  *worker.Scheduler
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting growthmart",
				slog.String("addr", p.Server.Addr),
				slog.String("storage", p.Config.StorageDriver),
				slog.String("broadcast", p.Config.BroadcastDriver),
				slog.String("sweep_schedule", p.Config.SweepSchedule))
			p.Scheduler.Start()
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Scheduler.Stop(shutdownCtx); err != nil {
				p.Logger.Warn("sweep scheduler did not stop in time", slog.String("error", err.Error()))
			}

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("growthmart stopped")
			return nil
		},
	})
}
