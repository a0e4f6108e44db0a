package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/growthmart/internal/domain/errors"
	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/domain/repository"
)

// Storage keeps orders in process memory. Suitable for local runs and tests.
type Storage struct {
	mu     sync.Mutex
	orders map[string]*model.Order
	now    func() time.Time
}

type orderRepository struct {
	storage *Storage
}

// New creates empty in-memory storage.
func New() *Storage {
	return &Storage{
		orders: make(map[string]*model.Order),
		now:    time.Now,
	}
}

func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

// HealthCheck always succeeds.
func (s *Storage) HealthCheck(context.Context) error {
	return nil
}

func (s *Storage) Close() {}

func clone(o *model.Order) *model.Order {
	c := *o
	return &c
}

func (r *orderRepository) Create(_ context.Context, order *model.Order) (*model.Order, error) {
	if order.Quantity <= 0 || order.Charge.IsNegative() {
		return nil, domainErrors.ErrInvalidOrder
	}

	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return nil, domainErrors.ErrInvalidOrder
	}
	stored := clone(order)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.orders[stored.ID] = stored
	return clone(stored), nil
}

func (r *orderRepository) Get(_ context.Context, id string) (*model.Order, error) {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return clone(order), nil
}

func (r *orderRepository) List(_ context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	s := r.storage
	s.mu.Lock()
	matched := make([]model.Order, 0, len(s.orders))
	search := strings.ToLower(filter.Search)
	for _, o := range s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(o.ID), search) &&
			!strings.Contains(strings.ToLower(o.TargetURL), search) {
			continue
		}
		matched = append(matched, *o)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := filter.Offset()
	if offset >= total {
		return []model.Order{}, total, nil
	}
	end := total
	if filter.Limit > 0 && offset+filter.Limit < end {
		end = offset + filter.Limit
	}
	return matched[offset:end], total, nil
}

func (r *orderRepository) ListStalePending(_ context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	s := r.storage
	s.mu.Lock()
	var stale []model.Order
	for _, o := range s.orders {
		if o.Status == model.OrderStatusPending && o.CreatedAt.Before(olderThan) {
			stale = append(stale, *o)
		}
	}
	s.mu.Unlock()

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].CreatedAt.Before(stale[j].CreatedAt)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (r *orderRepository) Claim(_ context.Context, id, token string, now, staleBefore time.Time) (*model.Order, error) {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusPending {
		return nil, domainErrors.ErrStatusConflict
	}
	if order.ClaimedAt != nil && !order.ClaimedAt.Before(staleBefore) {
		return nil, domainErrors.ErrStatusConflict
	}

	claimedAt := now
	order.ClaimToken = token
	order.ClaimedAt = &claimedAt
	order.Attempts++
	order.UpdatedAt = now
	return clone(order), nil
}

func (r *orderRepository) UpdateConditional(_ context.Context, id string, expected model.OrderStatus, token string, update model.OrderUpdate) (*model.Order, error) {
	s := r.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if order.Status != expected || (token != "" && order.ClaimToken != token) {
		return nil, domainErrors.ErrStatusConflict
	}

	order.Status = update.Status
	if update.APIOrderID != nil {
		order.APIOrderID = update.APIOrderID
	}
	order.APIError = update.APIError
	if update.Progress != nil {
		order.Progress = *update.Progress
	}
	if update.ProcessedAt != nil {
		order.ProcessedAt = update.ProcessedAt
	}
	order.ClaimToken = ""
	order.ClaimedAt = nil
	order.UpdatedAt = s.now()
	return clone(order), nil
}
