package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/growthmart/internal/domain/errors"
	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/storage/memory"
	testhelpers "github.com/polkiloo/growthmart/internal/test"
)

type orderMetricsStub struct {
	created int
}

func (m *orderMetricsStub) OrderCreated() { m.created++ }

func TestOrderUseCaseCreateDefaults(t *testing.T) {
	m := &orderMetricsStub{}
	uc := NewOrderUseCase(memory.New().Orders(), m)
	uc.newID = func() string { return "order-1" }

	order, err := uc.Create(context.Background(), model.NewOrder{
		UserID:    "user-1",
		ServiceID: "svc-followers",
		TargetURL: "https://instagram.com/acme",
		Quantity:  100,
		Charge:    decimal.NewFromInt(15000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.ID != "order-1" {
		t.Fatalf("unexpected id %q", order.ID)
	}
	if !order.FinalPrice.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("expected final price 15000, got %s", order.FinalPrice)
	}
	if !order.DiscountAmount.IsZero() {
		t.Fatalf("expected zero discount, got %s", order.DiscountAmount)
	}
	if order.Status != model.OrderStatusPending {
		t.Fatalf("expected PENDING, got %s", order.Status)
	}
	if order.APIOrderID != nil || order.APIError != nil || order.Progress != 0 || order.Attempts != 0 {
		t.Fatalf("expected untouched lifecycle fields, got %+v", order)
	}
	if order.CreatedAt.IsZero() || !order.CreatedAt.Equal(order.UpdatedAt) {
		t.Fatalf("unexpected timestamps %v %v", order.CreatedAt, order.UpdatedAt)
	}
	if m.created != 1 {
		t.Fatalf("expected created counter, got %d", m.created)
	}
}

func TestOrderUseCaseCreateKeepsExplicitAmounts(t *testing.T) {
	uc := NewOrderUseCase(memory.New().Orders(), nil)

	discount := decimal.RequireFromString("500.00")
	final := decimal.RequireFromString("14500.00")
	in := testhelpers.RandomNewOrder()
	in.Charge = decimal.RequireFromString("15000.00")
	in.DiscountAmount = &discount
	in.FinalPrice = &final

	order, err := uc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !order.DiscountAmount.Equal(discount) || !order.FinalPrice.Equal(final) {
		t.Fatalf("explicit amounts not kept: %s %s", order.DiscountAmount, order.FinalPrice)
	}
	if order.TargetURL != in.TargetURL || order.Quantity != in.Quantity {
		t.Fatalf("request fields not kept: %+v", order)
	}
	if order.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestOrderUseCaseCreateDoesNotDispatch(t *testing.T) {
	repo := &testhelpers.OrderRepositoryStub{Base: memory.New().Orders()}
	uc := NewOrderUseCase(repo, nil)

	if _, err := uc.Create(context.Background(), testhelpers.RandomNewOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.Claims != 0 || repo.UpdateCount() != 0 {
		t.Fatal("create must not claim or update orders")
	}
}

func TestOrderUseCaseCreatePropagatesStoreErrors(t *testing.T) {
	m := &orderMetricsStub{}
	uc := NewOrderUseCase(memory.New().Orders(), m)

	in := testhelpers.RandomNewOrder()
	in.Quantity = 0
	if _, err := uc.Create(context.Background(), in); !errors.Is(err, domainErrors.ErrInvalidOrder) {
		t.Fatalf("expected invalid order from store, got %v", err)
	}
	if m.created != 0 {
		t.Fatal("failed create must not be counted")
	}
}

func TestOrderUseCaseList(t *testing.T) {
	tests := []struct {
		name      string
		filter    model.OrderFilter
		wantPage  int
		wantLimit int
	}{
		{name: "defaults", filter: model.OrderFilter{}, wantPage: 1, wantLimit: defaultPageLimit},
		{name: "capped", filter: model.OrderFilter{Page: 2, Limit: 1000}, wantPage: 2, wantLimit: maxPageLimit},
		{name: "explicit", filter: model.OrderFilter{Page: 3, Limit: 7}, wantPage: 3, wantLimit: 7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen model.OrderFilter
			repo := &testhelpers.OrderRepositoryStub{ListFn: func(_ context.Context, f model.OrderFilter) ([]model.Order, int, error) {
				seen = f
				return []model.Order{{ID: "a"}}, 45, nil
			}}
			page, err := NewOrderUseCase(repo, nil).List(context.Background(), tc.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if seen.Page != tc.wantPage || seen.Limit != tc.wantLimit {
				t.Fatalf("unexpected normalized filter %+v", seen)
			}
			wantPages := (45 + tc.wantLimit - 1) / tc.wantLimit
			if page.Total != 45 || page.Pages != wantPages || len(page.Items) != 1 {
				t.Fatalf("unexpected page %+v", page)
			}
		})
	}
}

func TestOrderUseCaseListPastTheEnd(t *testing.T) {
	uc := NewOrderUseCase(memory.New().Orders(), nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := uc.Create(ctx, testhelpers.RandomNewOrder()); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	for _, p := range []int{2, math.MaxInt / 50, math.MaxInt} {
		page, err := uc.List(ctx, model.OrderFilter{Page: p, Limit: maxPageLimit})
		if err != nil {
			t.Fatalf("page %d: unexpected error: %v", p, err)
		}
		if len(page.Items) != 0 || page.Total != 3 || page.Page != p {
			t.Fatalf("page %d: expected empty page with total 3, got %+v", p, page)
		}
	}
}

func TestOrderUseCaseGetAndStalePending(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "old", model.OrderStatusPending)
	if _, err := repo.Create(context.Background(), &model.Order{ID: "young", Quantity: 1, Status: model.OrderStatusPending, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	uc := NewOrderUseCase(repo, nil)

	if _, err := uc.Get(context.Background(), "nope"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	stale, err := uc.StalePending(context.Background(), 5*time.Minute, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "old" {
		t.Fatalf("expected only the old order, got %+v", stale)
	}
}
