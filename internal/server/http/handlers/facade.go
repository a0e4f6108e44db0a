package handlers

import (
	"context"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

// OrderFacade encapsulates order placement and lookup exposed via HTTP.
type OrderFacade interface {
	CreateOrder(ctx context.Context, in model.NewOrder) (*model.Order, error)
	Order(ctx context.Context, id string) (*model.Order, error)
	Orders(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error)
}

// DispatchFacade drives the order lifecycle.
type DispatchFacade interface {
	Dispatch(ctx context.Context, id string) (*model.Order, error)
	RecordProgress(ctx context.Context, id string, update model.ProgressUpdate) (*model.Order, error)
	SweepStalePending(ctx context.Context) (model.SweepReport, error)
}

// StatusFacade exposes live status updates and health.
type StatusFacade interface {
	// Watch subscribes to updates of orderID, or of every order when empty.
	// The returned func releases the subscription.
	Watch(orderID string) (<-chan model.StatusUpdate, func())
	Health(ctx context.Context) error
}

// FulfillmentFacade aggregates the full set of operations used across handlers.
type FulfillmentFacade interface {
	OrderFacade
	DispatchFacade
	StatusFacade
}
