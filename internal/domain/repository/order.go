package repository

import (
	"context"
	"time"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
	Get(ctx context.Context, id string) (*model.Order, error)
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)
	// ListStalePending returns PENDING orders created before olderThan, oldest first.
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error)
	// Claim marks a PENDING order with no live claim as taken by token and
	// increments its attempts. Returns ErrNotFound for an unknown id and
	// ErrStatusConflict when another dispatcher holds the order or it already left PENDING.
	Claim(ctx context.Context, id, token string, now, staleBefore time.Time) (*model.Order, error)
	// UpdateConditional applies update only while the order is still in expected
	// status (and, if token is not empty, still claimed by token). The claim is released.
	// Error results follow Claim.
	UpdateConditional(ctx context.Context, id string, expected model.OrderStatus, token string, update model.OrderUpdate) (*model.Order, error)
}
