package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

// GatewayStub provides controllable provider responses and counts submissions.
type GatewayStub struct {
	SubmitFn func(context.Context, model.FulfillmentRequest) (model.FulfillmentResult, error)
	Result   model.FulfillmentResult
	Err      error
	Delay    time.Duration

	calls    atomic.Int32
	mu       sync.Mutex
	requests []model.FulfillmentRequest
}

// Submit waits for Delay (or ctx) and returns the configured outcome.
func (g *GatewayStub) Submit(ctx context.Context, req model.FulfillmentRequest) (model.FulfillmentResult, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if g.Delay > 0 {
		timer := time.NewTimer(g.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.FulfillmentResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	if g.SubmitFn != nil {
		return g.SubmitFn(ctx, req)
	}
	return g.Result, g.Err
}

// Calls returns number of submissions.
func (g *GatewayStub) Calls() int {
	return int(g.calls.Load())
}

// Requests returns a copy of submitted requests.
func (g *GatewayStub) Requests() []model.FulfillmentRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.FulfillmentRequest(nil), g.requests...)
}

// BroadcasterStub records every notification.
type BroadcasterStub struct {
	mu      sync.Mutex
	updates []model.StatusUpdate
}

// Notify stores update.
func (b *BroadcasterStub) Notify(_ context.Context, update model.StatusUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, update)
}

// Updates returns a copy of received notifications.
func (b *BroadcasterStub) Updates() []model.StatusUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.StatusUpdate(nil), b.updates...)
}

// DispatcherStub simulates the lifecycle engine for worker tests.
type DispatcherStub struct {
	DispatchFn func(context.Context, string) (*model.Order, error)

	mu  sync.Mutex
	ids []string
}

// Dispatch records the order id and delegates to DispatchFn.
func (d *DispatcherStub) Dispatch(ctx context.Context, orderID string) (*model.Order, error) {
	d.mu.Lock()
	d.ids = append(d.ids, orderID)
	d.mu.Unlock()

	if d.DispatchFn != nil {
		return d.DispatchFn(ctx, orderID)
	}
	return &model.Order{ID: orderID, Status: model.OrderStatusProcessing}, nil
}

// Dispatched returns ids passed to Dispatch.
func (d *DispatcherStub) Dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

// StaleSourceStub returns predefined stale orders.
type StaleSourceStub struct {
	Orders []model.Order
	Err    error

	StaleAfter time.Duration
	Limit      int
}

// StalePending captures arguments and returns configured data.
func (s *StaleSourceStub) StalePending(_ context.Context, staleAfter time.Duration, limit int) ([]model.Order, error) {
	s.StaleAfter, s.Limit = staleAfter, limit
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Orders, nil
}

// FulfillmentFacadeStub provides controllable behaviour for HTTP handlers.
type FulfillmentFacadeStub struct {
	CreateFn   func(context.Context, model.NewOrder) (*model.Order, error)
	OrderFn    func(context.Context, string) (*model.Order, error)
	OrdersFn   func(context.Context, model.OrderFilter) (*model.OrderPage, error)
	DispatchFn func(context.Context, string) (*model.Order, error)
	ProgressFn func(context.Context, string, model.ProgressUpdate) (*model.Order, error)
	SweepFn    func(context.Context) (model.SweepReport, error)
	WatchFn    func(string) (<-chan model.StatusUpdate, func())
	HealthFn   func(context.Context) error
}

// SampleOrder returns a deterministic order for handler assertions.
func SampleOrder(id string) *model.Order {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Order{
		ID:             id,
		UserID:         "user-1",
		ServiceID:      "svc-followers",
		TargetURL:      "https://instagram.com/acme",
		Quantity:       100,
		PricePerUnit:   decimal.RequireFromString("150"),
		BaseAmount:     decimal.RequireFromString("15000"),
		DiscountAmount: decimal.Zero,
		Charge:         decimal.RequireFromString("15000"),
		FinalPrice:     decimal.RequireFromString("15000"),
		Status:         model.OrderStatusPending,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

// CreateOrder delegates to CreateFn or echoes the request as a PENDING order.
func (s FulfillmentFacadeStub) CreateOrder(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, in)
	}
	order := SampleOrder("order-1")
	order.UserID, order.ServiceID, order.TargetURL, order.Quantity = in.UserID, in.ServiceID, in.TargetURL, in.Quantity
	return order, nil
}

// Order returns the sample order unless overridden.
func (s FulfillmentFacadeStub) Order(ctx context.Context, id string) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, id)
	}
	return SampleOrder(id), nil
}

// Orders returns a single item page unless overridden.
func (s FulfillmentFacadeStub) Orders(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, filter)
	}
	return &model.OrderPage{Items: []model.Order{*SampleOrder("order-1")}, Total: 1, Page: 1, Limit: 20, Pages: 1}, nil
}

// Dispatch returns a PROCESSING order unless overridden.
func (s FulfillmentFacadeStub) Dispatch(ctx context.Context, id string) (*model.Order, error) {
	if s.DispatchFn != nil {
		return s.DispatchFn(ctx, id)
	}
	order := SampleOrder(id)
	ext := "EXT-1"
	order.Status, order.APIOrderID = model.OrderStatusProcessing, &ext
	return order, nil
}

// RecordProgress applies update onto the sample order unless overridden.
func (s FulfillmentFacadeStub) RecordProgress(ctx context.Context, id string, update model.ProgressUpdate) (*model.Order, error) {
	if s.ProgressFn != nil {
		return s.ProgressFn(ctx, id, update)
	}
	order := SampleOrder(id)
	order.Status, order.Progress = update.Status, update.Progress
	return order, nil
}

// SweepStalePending returns an empty report unless overridden.
func (s FulfillmentFacadeStub) SweepStalePending(ctx context.Context) (model.SweepReport, error) {
	if s.SweepFn != nil {
		return s.SweepFn(ctx)
	}
	return model.SweepReport{}, nil
}

// Watch returns a closed feed unless overridden.
func (s FulfillmentFacadeStub) Watch(orderID string) (<-chan model.StatusUpdate, func()) {
	if s.WatchFn != nil {
		return s.WatchFn(orderID)
	}
	ch := make(chan model.StatusUpdate)
	close(ch)
	return ch, func() {}
}

// Health reports healthy unless overridden.
func (s FulfillmentFacadeStub) Health(ctx context.Context) error {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return nil
}
