package app

import (
	"context"

	"github.com/polkiloo/growthmart/internal/broadcast"
	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/domain/repository"
	"github.com/polkiloo/growthmart/internal/usecase"
	"github.com/polkiloo/growthmart/internal/worker"
)

// FulfillmentFacade exposes order placement, lifecycle and live status
// operations to the transport layer.
type FulfillmentFacade struct {
	orders    *usecase.OrderUseCase
	lifecycle *usecase.Lifecycle
	sweeper   *worker.Sweeper
	hub       *broadcast.Hub
	store     repository.Store
}

func NewFulfillmentFacade(orders *usecase.OrderUseCase, lifecycle *usecase.Lifecycle, sweeper *worker.Sweeper, hub *broadcast.Hub, store repository.Store) *FulfillmentFacade {
	return &FulfillmentFacade{orders: orders, lifecycle: lifecycle, sweeper: sweeper, hub: hub, store: store}
}

// CreateOrder stores a new PENDING order. Dispatch is triggered separately.
func (f *FulfillmentFacade) CreateOrder(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	return f.orders.Create(ctx, in)
}

func (f *FulfillmentFacade) Order(ctx context.Context, id string) (*model.Order, error) {
	return f.orders.Get(ctx, id)
}

func (f *FulfillmentFacade) Orders(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error) {
	return f.orders.List(ctx, filter)
}

func (f *FulfillmentFacade) Dispatch(ctx context.Context, id string) (*model.Order, error) {
	return f.lifecycle.Dispatch(ctx, id)
}

func (f *FulfillmentFacade) RecordProgress(ctx context.Context, id string, update model.ProgressUpdate) (*model.Order, error) {
	return f.lifecycle.RecordProgress(ctx, id, update)
}

func (f *FulfillmentFacade) SweepStalePending(ctx context.Context) (model.SweepReport, error) {
	return f.sweeper.SweepStalePending(ctx)
}

// Watch subscribes to the local status hub.
func (f *FulfillmentFacade) Watch(orderID string) (<-chan model.StatusUpdate, func()) {
	sub := f.hub.Subscribe(orderID)
	return sub.C, sub.Close
}

func (f *FulfillmentFacade) Health(ctx context.Context) error {
	return f.store.HealthCheck(ctx)
}
