package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

// StaleOrderSource lists PENDING orders that have waited too long.
type StaleOrderSource interface {
	StalePending(ctx context.Context, staleAfter time.Duration, limit int) ([]model.Order, error)
}

// Dispatcher submits a single order.
type Dispatcher interface {
	Dispatch(ctx context.Context, orderID string) (*model.Order, error)
}

// SweepMetrics records sweep results.
type SweepMetrics interface {
	ObserveSweep(dispatched, skipped, failed int, err error)
}

type nopSweepMetrics struct{}

func (nopSweepMetrics) ObserveSweep(int, int, int, error) {}

// SweeperConfig bounds a single sweep.
type SweeperConfig struct {
	StaleAfter  time.Duration
	BatchSize   int
	Concurrency int
}

// Sweeper re-dispatches orders stuck in PENDING.
type Sweeper struct {
	source     StaleOrderSource
	dispatcher Dispatcher
	metrics    SweepMetrics
	cfg        SweeperConfig
	logger     *slog.Logger
}

// NewSweeper constructs Sweeper, substituting defaults for non-positive settings.
func NewSweeper(source StaleOrderSource, dispatcher Dispatcher, m SweepMetrics, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if m == nil {
		m = nopSweepMetrics{}
	}
	return &Sweeper{source: source, dispatcher: dispatcher, metrics: m, cfg: cfg, logger: logger}
}

// SweepStalePending dispatches up to BatchSize stale orders, oldest first.
// Individual dispatch failures are logged and counted; only a failure to list
// candidates is returned. Orders that come back still PENDING were left alone
// by the engine and count as skipped.
func (s *Sweeper) SweepStalePending(ctx context.Context) (model.SweepReport, error) {
	orders, err := s.source.StalePending(ctx, s.cfg.StaleAfter, s.cfg.BatchSize)
	if err != nil {
		s.metrics.ObserveSweep(0, 0, 0, err)
		return model.SweepReport{}, fmt.Errorf("list stale orders: %w", err)
	}
	if len(orders) > s.cfg.BatchSize {
		orders = orders[:s.cfg.BatchSize]
	}

	var dispatched, skipped, failed atomic.Int32

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for _, order := range orders {
		id := order.ID
		g.Go(func() error {
			result, err := s.dispatchOne(ctx, id)
			switch {
			case err != nil:
				failed.Add(1)
				s.logger.Error("stale order dispatch failed",
					slog.String("order", id),
					slog.String("error", err.Error()))
			case result == nil || result.Status == model.OrderStatusPending:
				skipped.Add(1)
			default:
				dispatched.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := model.SweepReport{
		Selected:   len(orders),
		Dispatched: int(dispatched.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}
	s.metrics.ObserveSweep(report.Dispatched, report.Skipped, report.Failed, nil)

	if report.Selected > 0 {
		s.logger.Info("stale order sweep finished",
			slog.Int("selected", report.Selected),
			slog.Int("dispatched", report.Dispatched),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", report.Failed))
	}
	return report, nil
}

func (s *Sweeper) dispatchOne(ctx context.Context, id string) (order *model.Order, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while dispatching order",
				slog.String("order", id),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("dispatch panicked: %v", r)
		}
	}()

	return s.dispatcher.Dispatch(ctx, id)
}
