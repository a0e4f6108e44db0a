package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/growthmart/internal/domain/errors"
	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/domain/repository"
)

// OrderRepositoryStub delegates to Base unless an override is set, which lets
// tests inject failures into an otherwise working repository.
type OrderRepositoryStub struct {
	Base repository.OrderRepository

	CreateFn            func(context.Context, *model.Order) (*model.Order, error)
	GetFn               func(context.Context, string) (*model.Order, error)
	ListFn              func(context.Context, model.OrderFilter) ([]model.Order, int, error)
	ListStalePendingFn  func(context.Context, time.Time, int) ([]model.Order, error)
	ClaimFn             func(context.Context, string, string, time.Time, time.Time) (*model.Order, error)
	UpdateConditionalFn func(context.Context, string, model.OrderStatus, string, model.OrderUpdate) (*model.Order, error)

	mu      sync.Mutex
	Updates []model.OrderUpdate
	Claims  int
}

// Create persists order through override or Base.
func (s *OrderRepositoryStub) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, order)
	}
	if s.Base == nil {
		return order, nil
	}
	return s.Base.Create(ctx, order)
}

// Get fetches order through override or Base.
func (s *OrderRepositoryStub) Get(ctx context.Context, id string) (*model.Order, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	if s.Base == nil {
		return nil, domainErrors.ErrNotFound
	}
	return s.Base.Get(ctx, id)
}

// List returns orders through override or Base.
func (s *OrderRepositoryStub) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, filter)
	}
	if s.Base == nil {
		return nil, 0, nil
	}
	return s.Base.List(ctx, filter)
}

// ListStalePending returns candidates through override or Base.
func (s *OrderRepositoryStub) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	if s.ListStalePendingFn != nil {
		return s.ListStalePendingFn(ctx, olderThan, limit)
	}
	if s.Base == nil {
		return nil, nil
	}
	return s.Base.ListStalePending(ctx, olderThan, limit)
}

// Claim counts invocations before delegating.
func (s *OrderRepositoryStub) Claim(ctx context.Context, id, token string, now, staleBefore time.Time) (*model.Order, error) {
	s.mu.Lock()
	s.Claims++
	s.mu.Unlock()

	if s.ClaimFn != nil {
		return s.ClaimFn(ctx, id, token, now, staleBefore)
	}
	if s.Base == nil {
		return nil, domainErrors.ErrStatusConflict
	}
	return s.Base.Claim(ctx, id, token, now, staleBefore)
}

// UpdateConditional records the requested update before delegating.
func (s *OrderRepositoryStub) UpdateConditional(ctx context.Context, id string, expected model.OrderStatus, token string, update model.OrderUpdate) (*model.Order, error) {
	s.mu.Lock()
	s.Updates = append(s.Updates, update)
	s.mu.Unlock()

	if s.UpdateConditionalFn != nil {
		return s.UpdateConditionalFn(ctx, id, expected, token, update)
	}
	if s.Base == nil {
		return nil, domainErrors.ErrStatusConflict
	}
	return s.Base.UpdateConditional(ctx, id, expected, token, update)
}

// UpdateCount returns number of conditional updates attempted.
func (s *OrderRepositoryStub) UpdateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Updates)
}

var _ repository.OrderRepository = (*OrderRepositoryStub)(nil)
