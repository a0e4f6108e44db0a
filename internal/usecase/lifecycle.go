package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/growthmart/internal/domain/errors"
	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/domain/repository"
	"github.com/polkiloo/growthmart/internal/metrics"
)

// Gateway submits fulfillment requests to the external provider.
type Gateway interface {
	Submit(ctx context.Context, req model.FulfillmentRequest) (model.FulfillmentResult, error)
}

// StatusBroadcaster pushes order status changes to subscribers.
type StatusBroadcaster interface {
	Notify(ctx context.Context, update model.StatusUpdate)
}

// DispatchMetrics records dispatch outcomes.
type DispatchMetrics interface {
	ObserveDispatch(outcome string, elapsed time.Duration)
}

const (
	MessageTimedOut          = "provider request timed out"
	MessageRequestFailed     = "provider request failed"
	MessageRejected          = "provider rejected order"
	MessageNoTracking        = "provider returned no tracking identifier"
	MessageAttemptsExhausted = "dispatch attempts exhausted"
)

const (
	defaultProviderTimeout = 15 * time.Second
	defaultClaimTTL        = 2 * time.Minute
	defaultUpdateRetries   = 3
	defaultRetryDelay      = 100 * time.Millisecond

	// claimTTLMargin is added on top of the worst case dispatch duration.
	claimTTLMargin = time.Second
)

// LifecycleConfig tunes dispatch behaviour.
type LifecycleConfig struct {
	ProviderTimeout time.Duration
	ClaimTTL        time.Duration
	// MaxAttempts bounds dispatch claims per order; zero disables the bound.
	MaxAttempts int
}

// Lifecycle drives an order through PENDING -> PROCESSING | FAILED and the
// provider progress transitions that follow.
type Lifecycle struct {
	orders      repository.OrderRepository
	gateway     Gateway
	broadcaster StatusBroadcaster
	metrics     DispatchMetrics
	cfg         LifecycleConfig
	logger      *slog.Logger

	now           func() time.Time
	newToken      func() string
	updateRetries int
	retryDelay    time.Duration
}

type nopDispatchMetrics struct{}

func (nopDispatchMetrics) ObserveDispatch(string, time.Duration) {}

// NewLifecycle constructs the dispatch engine. A nil metrics recorder is allowed.
func NewLifecycle(orders repository.OrderRepository, gateway Gateway, broadcaster StatusBroadcaster, m DispatchMetrics, cfg LifecycleConfig, logger *slog.Logger) *Lifecycle {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = defaultClaimTTL
	}
	if m == nil {
		m = nopDispatchMetrics{}
	}
	// A claim must outlive the provider call and the outcome write, otherwise a
	// second dispatcher takes over an order that is still in flight.
	if floor := minClaimTTL(cfg.ProviderTimeout, defaultUpdateRetries, defaultRetryDelay); cfg.ClaimTTL < floor {
		logger.Warn("claim ttl raised above provider timeout",
			slog.Duration("configured", cfg.ClaimTTL),
			slog.Duration("effective", floor))
		cfg.ClaimTTL = floor
	}
	return &Lifecycle{
		orders:        orders,
		gateway:       gateway,
		broadcaster:   broadcaster,
		metrics:       m,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
		newToken:      uuid.NewString,
		updateRetries: defaultUpdateRetries,
		retryDelay:    defaultRetryDelay,
	}
}

// minClaimTTL is the longest a claimed dispatch can take: the provider call,
// the outcome write retries with their linear back-off, and a margin.
func minClaimTTL(timeout time.Duration, retries int, delay time.Duration) time.Duration {
	ttl := timeout + claimTTLMargin
	for attempt := 1; attempt < retries; attempt++ {
		ttl += time.Duration(attempt) * delay
	}
	return ttl
}

// Dispatch submits a PENDING order to the provider and records the outcome.
// Orders in any other status, or claimed by a concurrent dispatcher, are left
// untouched. Provider failures are recorded on the order and are not returned.
func (l *Lifecycle) Dispatch(ctx context.Context, orderID string) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	order, err := l.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPending {
		l.metrics.ObserveDispatch(metrics.OutcomeSkipped, 0)
		return order, nil
	}

	token := l.newToken()
	now := l.now()
	claimed, err := l.orders.Claim(ctx, orderID, token, now, now.Add(-l.cfg.ClaimTTL))
	if errors.Is(err, domainErrors.ErrStatusConflict) {
		l.logger.Debug("order already claimed", slog.String("order", orderID))
		l.metrics.ObserveDispatch(metrics.OutcomeSkipped, 0)
		return l.reload(ctx, order), nil
	}
	if err != nil {
		l.metrics.ObserveDispatch(metrics.OutcomeError, 0)
		return nil, fmt.Errorf("claim order %s: %w", orderID, err)
	}

	// The claim is ours; from here on the outcome must be recorded even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	var (
		update  model.OrderUpdate
		elapsed time.Duration
	)
	if l.cfg.MaxAttempts > 0 && claimed.Attempts > l.cfg.MaxAttempts {
		l.logger.Warn("dispatch attempts exhausted",
			slog.String("order", orderID),
			slog.Int("attempts", claimed.Attempts))
		update = failedUpdate(MessageAttemptsExhausted)
	} else {
		start := time.Now()
		update = l.submit(ctx, claimed)
		elapsed = time.Since(start)
	}

	updated, err := l.record(ctx, orderID, token, update)
	if err != nil {
		l.metrics.ObserveDispatch(metrics.OutcomeError, elapsed)
		return nil, err
	}

	outcome := metrics.OutcomeProcessing
	if updated.Status == model.OrderStatusFailed {
		outcome = metrics.OutcomeFailed
	}
	l.metrics.ObserveDispatch(outcome, elapsed)

	l.logger.Info("order dispatched",
		slog.String("order", orderID),
		slog.String("status", string(updated.Status)),
		slog.Int("attempts", updated.Attempts))

	l.notify(ctx, updated)
	return updated, nil
}

func (l *Lifecycle) submit(ctx context.Context, order *model.Order) model.OrderUpdate {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.ProviderTimeout)
	defer cancel()

	result, err := l.gateway.Submit(callCtx, model.FulfillmentRequest{
		OrderID:   order.ID,
		ServiceID: order.ServiceID,
		TargetURL: order.TargetURL,
		Quantity:  order.Quantity,
	})

	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)):
		l.logger.Warn("provider request timed out",
			slog.String("order", order.ID),
			slog.Duration("timeout", l.cfg.ProviderTimeout))
		return failedUpdate(MessageTimedOut)
	case err != nil:
		l.logger.Warn("provider request failed",
			slog.String("order", order.ID),
			slog.String("error", err.Error()))
		return failedUpdate(MessageRequestFailed)
	case !result.Success:
		msg := strings.TrimSpace(result.ErrorMessage)
		if msg == "" {
			msg = MessageRejected
		}
		return failedUpdate(msg)
	case strings.TrimSpace(result.ExternalOrderID) == "":
		return failedUpdate(MessageNoTracking)
	}

	externalID := result.ExternalOrderID
	processedAt := l.now()
	return model.OrderUpdate{
		Status:      model.OrderStatusProcessing,
		APIOrderID:  &externalID,
		ProcessedAt: &processedAt,
	}
}

func failedUpdate(msg string) model.OrderUpdate {
	return model.OrderUpdate{Status: model.OrderStatusFailed, APIError: &msg}
}

// record applies the dispatch outcome, retrying transient store errors.
func (l *Lifecycle) record(ctx context.Context, orderID, token string, update model.OrderUpdate) (*model.Order, error) {
	var lastErr error
	for attempt := 1; attempt <= l.updateRetries; attempt++ {
		updated, err := l.orders.UpdateConditional(ctx, orderID, model.OrderStatusPending, token, update)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, domainErrors.ErrStatusConflict) || errors.Is(err, domainErrors.ErrNotFound) {
			return nil, fmt.Errorf("record dispatch outcome for %s: %w", orderID, err)
		}
		lastErr = err
		l.logger.Warn("record dispatch outcome failed",
			slog.String("order", orderID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if attempt < l.updateRetries && l.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * l.retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("record dispatch outcome for %s: %w", orderID, lastErr)
}

// RecordProgress applies a provider reported status/progress change to an order in flight.
func (l *Lifecycle) RecordProgress(ctx context.Context, orderID string, progress model.ProgressUpdate) (*model.Order, error) {
	if progress.Progress < 0 || progress.Progress > 100 {
		return nil, domainErrors.ErrInvalidProgress
	}

	order, err := l.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(progress.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, order.Status, progress.Status)
	}

	value := progress.Progress
	if progress.Status == model.OrderStatusCompleted {
		value = 100
	}

	updated, err := l.orders.UpdateConditional(ctx, orderID, order.Status, "", model.OrderUpdate{
		Status:   progress.Status,
		Progress: &value,
	})
	if err != nil {
		return nil, err
	}

	l.notify(ctx, updated)
	return updated, nil
}

func (l *Lifecycle) notify(ctx context.Context, order *model.Order) {
	l.broadcaster.Notify(ctx, model.StatusUpdate{
		OrderID:   order.ID,
		Status:    order.Status,
		Progress:  order.Progress,
		UpdatedAt: order.UpdatedAt,
	})
}

func (l *Lifecycle) reload(ctx context.Context, fallback *model.Order) *model.Order {
	current, err := l.orders.Get(ctx, fallback.ID)
	if err != nil {
		return fallback
	}
	return current
}
