package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/domain/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// OrderMetrics counts created orders.
type OrderMetrics interface {
	OrderCreated()
}

// OrderUseCase encapsulates order placement and lookup.
type OrderUseCase struct {
	orders  repository.OrderRepository
	metrics OrderMetrics
	now     func() time.Time
	newID   func() string
}

// NewOrderUseCase constructs OrderUseCase. A nil metrics recorder is allowed.
func NewOrderUseCase(orders repository.OrderRepository, m OrderMetrics) *OrderUseCase {
	return &OrderUseCase{orders: orders, metrics: m, now: time.Now, newID: uuid.NewString}
}

// Create persists a new PENDING order. It does not dispatch the order.
func (u *OrderUseCase) Create(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	discount := decimal.Zero
	if in.DiscountAmount != nil {
		discount = *in.DiscountAmount
	}
	finalPrice := in.Charge
	if in.FinalPrice != nil {
		finalPrice = *in.FinalPrice
	}

	now := u.now().UTC()
	order, err := u.orders.Create(ctx, &model.Order{
		ID:             u.newID(),
		UserID:         in.UserID,
		ServiceID:      in.ServiceID,
		TargetURL:      in.TargetURL,
		Quantity:       in.Quantity,
		PricePerUnit:   in.PricePerUnit,
		BaseAmount:     in.BaseAmount,
		DiscountAmount: discount,
		Charge:         in.Charge,
		FinalPrice:     finalPrice,
		Status:         model.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	if u.metrics != nil {
		u.metrics.OrderCreated()
	}
	return order, nil
}

// Get returns a single order.
func (u *OrderUseCase) Get(ctx context.Context, id string) (*model.Order, error) {
	return u.orders.Get(ctx, id)
}

// List returns one page of orders, newest first.
func (u *OrderUseCase) List(ctx context.Context, filter model.OrderFilter) (*model.OrderPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultPageLimit
	case filter.Limit > maxPageLimit:
		filter.Limit = maxPageLimit
	}

	items, total, err := u.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &model.OrderPage{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
		Pages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

// StalePending returns PENDING orders created at least staleAfter ago, oldest first.
func (u *OrderUseCase) StalePending(ctx context.Context, staleAfter time.Duration, limit int) ([]model.Order, error) {
	return u.orders.ListStalePending(ctx, u.now().Add(-staleAfter), limit)
}
