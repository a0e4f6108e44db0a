package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/growthmart/internal/domain/errors"
	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/domain/repository"
	"github.com/polkiloo/growthmart/internal/metrics"
	"github.com/polkiloo/growthmart/internal/storage/memory"
	testhelpers "github.com/polkiloo/growthmart/internal/test"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type dispatchObservation struct {
	outcome string
	elapsed time.Duration
}

type dispatchMetricsStub struct {
	mu   sync.Mutex
	seen []dispatchObservation
}

func (m *dispatchMetricsStub) ObserveDispatch(outcome string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, dispatchObservation{outcome: outcome, elapsed: elapsed})
}

func (m *dispatchMetricsStub) outcomes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.seen))
	for _, o := range m.seen {
		out = append(out, o.outcome)
	}
	return out
}

type lifecycleFixture struct {
	lifecycle   *Lifecycle
	broadcaster *testhelpers.BroadcasterStub
	metrics     *dispatchMetricsStub
}

func newLifecycleFixture(repo repository.OrderRepository, gw Gateway, cfg LifecycleConfig) lifecycleFixture {
	b := &testhelpers.BroadcasterStub{}
	m := &dispatchMetricsStub{}
	l := NewLifecycle(repo, gw, b, m, cfg, discardLogger())
	l.retryDelay = 0
	return lifecycleFixture{lifecycle: l, broadcaster: b, metrics: m}
}

func seedOrder(t *testing.T, repo repository.OrderRepository, id string, status model.OrderStatus) *model.Order {
	t.Helper()
	order, err := repo.Create(context.Background(), &model.Order{
		ID:        id,
		UserID:    "user-1",
		ServiceID: "svc-likes",
		TargetURL: "https://instagram.com/p/abc",
		Quantity:  250,
		Charge:    decimal.RequireFromString("12.50"),
		Status:    status,
		CreatedAt: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestDispatchEndToEndSuccess(t *testing.T) {
	repo := memory.New().Orders()
	orders := NewOrderUseCase(repo, nil)
	created, err := orders.Create(context.Background(), model.NewOrder{
		UserID:    "user-1",
		ServiceID: "svc-followers",
		TargetURL: "https://instagram.com/acme",
		Quantity:  100,
		Charge:    decimal.NewFromInt(15000),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	gw := &testhelpers.GatewayStub{Result: model.FulfillmentResult{Success: true, ExternalOrderID: "EXT-123"}}
	env := newLifecycleFixture(repo, gw, LifecycleConfig{})

	got, err := env.lifecycle.Dispatch(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if got.Status != model.OrderStatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", got.Status)
	}
	if got.APIOrderID == nil || *got.APIOrderID != "EXT-123" {
		t.Fatalf("expected api order id EXT-123, got %v", got.APIOrderID)
	}
	if got.APIError != nil {
		t.Fatalf("expected no api error, got %q", *got.APIError)
	}
	if got.ProcessedAt == nil {
		t.Fatal("expected processed at to be set")
	}
	if got.ClaimToken != "" || got.ClaimedAt != nil {
		t.Fatal("expected claim to be released")
	}

	reqs := gw.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one gateway call, got %d", len(reqs))
	}
	want := model.FulfillmentRequest{OrderID: created.ID, ServiceID: "svc-followers", TargetURL: "https://instagram.com/acme", Quantity: 100}
	if reqs[0] != want {
		t.Fatalf("unexpected request %+v", reqs[0])
	}

	updates := env.broadcaster.Updates()
	if len(updates) != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", len(updates))
	}
	if updates[0].OrderID != created.ID || updates[0].Status != model.OrderStatusProcessing || updates[0].Progress != 0 {
		t.Fatalf("unexpected broadcast %+v", updates[0])
	}

	stored, _ := repo.Get(context.Background(), created.ID)
	if stored.Status != model.OrderStatusProcessing || stored.Attempts != 1 {
		t.Fatalf("store not updated: %+v", stored)
	}
	if outcomes := env.metrics.outcomes(); len(outcomes) != 1 || outcomes[0] != metrics.OutcomeProcessing {
		t.Fatalf("unexpected metrics %v", outcomes)
	}
}

func TestDispatchEndToEndFailure(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)

	gw := &testhelpers.GatewayStub{Result: model.FulfillmentResult{Success: false, ErrorMessage: "Service unavailable"}}
	env := newLifecycleFixture(repo, gw, LifecycleConfig{})

	got, err := env.lifecycle.Dispatch(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("provider failure must not be returned, got %v", err)
	}
	if got.Status != model.OrderStatusFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if got.APIError == nil || *got.APIError != "Service unavailable" {
		t.Fatalf("unexpected api error %v", got.APIError)
	}
	if got.APIOrderID != nil {
		t.Fatalf("expected no api order id, got %q", *got.APIOrderID)
	}
	if got.ProcessedAt != nil {
		t.Fatal("processed at must stay unset on failure")
	}

	updates := env.broadcaster.Updates()
	if len(updates) != 1 || updates[0].Status != model.OrderStatusFailed {
		t.Fatalf("expected one FAILED broadcast, got %+v", updates)
	}
	if outcomes := env.metrics.outcomes(); len(outcomes) != 1 || outcomes[0] != metrics.OutcomeFailed {
		t.Fatalf("unexpected metrics %v", outcomes)
	}
}

func TestDispatchFailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		gateway *testhelpers.GatewayStub
		cfg     LifecycleConfig
		want    string
	}{
		{
			name:    "transport error",
			gateway: &testhelpers.GatewayStub{Err: errors.New("dial tcp: connection refused")},
			want:    MessageRequestFailed,
		},
		{
			name:    "rejected without message",
			gateway: &testhelpers.GatewayStub{Result: model.FulfillmentResult{Success: false, ErrorMessage: "  "}},
			want:    MessageRejected,
		},
		{
			name:    "missing tracking identifier",
			gateway: &testhelpers.GatewayStub{Result: model.FulfillmentResult{Success: true}},
			want:    MessageNoTracking,
		},
		{
			name:    "timeout",
			gateway: &testhelpers.GatewayStub{Delay: time.Second, Result: model.FulfillmentResult{Success: true, ExternalOrderID: "late"}},
			cfg:     LifecycleConfig{ProviderTimeout: 20 * time.Millisecond},
			want:    MessageTimedOut,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := memory.New().Orders()
			seedOrder(t, repo, "o-1", model.OrderStatusPending)
			env := newLifecycleFixture(repo, tc.gateway, tc.cfg)

			got, err := env.lifecycle.Dispatch(context.Background(), "o-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != model.OrderStatusFailed {
				t.Fatalf("expected FAILED, got %s", got.Status)
			}
			if got.APIError == nil || *got.APIError != tc.want {
				t.Fatalf("expected api error %q, got %v", tc.want, got.APIError)
			}
			if got.APIOrderID != nil {
				t.Fatal("expected api order id unset")
			}
		})
	}
}

func TestDispatchNonPendingIsNoop(t *testing.T) {
	for _, status := range []model.OrderStatus{
		model.OrderStatusProcessing,
		model.OrderStatusFailed,
		model.OrderStatusCompleted,
		model.OrderStatusPartial,
	} {
		t.Run(string(status), func(t *testing.T) {
			repo := memory.New().Orders()
			seeded := seedOrder(t, repo, "o-1", status)
			ext := "EXT-1"
			if status == model.OrderStatusProcessing {
				var err error
				seeded, err = repo.UpdateConditional(context.Background(), "o-1", status, "", model.OrderUpdate{Status: status, APIOrderID: &ext})
				if err != nil {
					t.Fatalf("prepare order: %v", err)
				}
			}

			gw := &testhelpers.GatewayStub{Result: model.FulfillmentResult{Success: true, ExternalOrderID: "EXT-2"}}
			stub := &testhelpers.OrderRepositoryStub{Base: repo}
			env := newLifecycleFixture(stub, gw, LifecycleConfig{})

			got, err := env.lifecycle.Dispatch(context.Background(), "o-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gw.Calls() != 0 {
				t.Fatalf("gateway must not be called, got %d calls", gw.Calls())
			}
			if stub.Claims != 0 || stub.UpdateCount() != 0 {
				t.Fatalf("store must not be touched, claims=%d updates=%d", stub.Claims, stub.UpdateCount())
			}
			if len(env.broadcaster.Updates()) != 0 {
				t.Fatal("no broadcast expected")
			}
			if got.Status != status || !got.UpdatedAt.Equal(seeded.UpdatedAt) {
				t.Fatalf("order changed: %+v", got)
			}
			if status == model.OrderStatusProcessing && (got.APIOrderID == nil || *got.APIOrderID != "EXT-1") {
				t.Fatalf("expected EXT-1 kept, got %v", got.APIOrderID)
			}
		})
	}
}

func TestDispatchNotFound(t *testing.T) {
	env := newLifecycleFixture(memory.New().Orders(), &testhelpers.GatewayStub{}, LifecycleConfig{})
	if _, err := env.lifecycle.Dispatch(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDispatchConcurrentCallsSubmitOnce(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)

	gw := &testhelpers.GatewayStub{
		Delay:  50 * time.Millisecond,
		Result: model.FulfillmentResult{Success: true, ExternalOrderID: "EXT-9"},
	}
	env := newLifecycleFixture(repo, gw, LifecycleConfig{})

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.lifecycle.Dispatch(context.Background(), "o-1"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected dispatch error: %v", err)
	}
	if gw.Calls() != 1 {
		t.Fatalf("expected exactly one gateway call, got %d", gw.Calls())
	}
	if n := len(env.broadcaster.Updates()); n != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", n)
	}
	stored, _ := repo.Get(context.Background(), "o-1")
	if stored.Status != model.OrderStatusProcessing || *stored.APIOrderID != "EXT-9" {
		t.Fatalf("unexpected final state %+v", stored)
	}
}

func TestDispatchAttemptsExhausted(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)

	// A dispatcher that died an hour ago left an expired claim behind.
	old := time.Now().Add(-time.Hour)
	if _, err := repo.Claim(context.Background(), "o-1", "dead", old, old.Add(-time.Minute)); err != nil {
		t.Fatalf("prepare claim: %v", err)
	}

	gw := &testhelpers.GatewayStub{Result: model.FulfillmentResult{Success: true, ExternalOrderID: "EXT-1"}}
	env := newLifecycleFixture(repo, gw, LifecycleConfig{MaxAttempts: 1, ClaimTTL: time.Minute})

	got, err := env.lifecycle.Dispatch(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.Calls() != 0 {
		t.Fatalf("gateway must not be called once attempts are exhausted")
	}
	if got.Status != model.OrderStatusFailed || got.APIError == nil || *got.APIError != MessageAttemptsExhausted {
		t.Fatalf("unexpected order %+v", got)
	}
	if got.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", got.Attempts)
	}
}

func TestDispatchLiveClaimIsNoop(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)
	now := time.Now()
	if _, err := repo.Claim(context.Background(), "o-1", "other", now, now.Add(-time.Minute)); err != nil {
		t.Fatalf("prepare claim: %v", err)
	}

	gw := &testhelpers.GatewayStub{}
	env := newLifecycleFixture(repo, gw, LifecycleConfig{ClaimTTL: time.Minute})

	got, err := env.lifecycle.Dispatch(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.Calls() != 0 || got.Status != model.OrderStatusPending {
		t.Fatalf("expected untouched pending order, calls=%d status=%s", gw.Calls(), got.Status)
	}
	if outcomes := env.metrics.outcomes(); len(outcomes) != 1 || outcomes[0] != metrics.OutcomeSkipped {
		t.Fatalf("unexpected metrics %v", outcomes)
	}
}

func TestDispatchRetriesTransientStoreErrors(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)

	failures := 2
	stub := &testhelpers.OrderRepositoryStub{Base: repo}
	stub.UpdateConditionalFn = func(ctx context.Context, id string, expected model.OrderStatus, token string, update model.OrderUpdate) (*model.Order, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("connection reset")
		}
		return repo.UpdateConditional(ctx, id, expected, token, update)
	}

	gw := &testhelpers.GatewayStub{Result: model.FulfillmentResult{Success: true, ExternalOrderID: "EXT-1"}}
	env := newLifecycleFixture(stub, gw, LifecycleConfig{})

	got, err := env.lifecycle.Dispatch(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got.Status != model.OrderStatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", got.Status)
	}
	if stub.UpdateCount() != 3 {
		t.Fatalf("expected 3 update attempts, got %d", stub.UpdateCount())
	}
}

func TestDispatchPropagatesPersistentStoreErrors(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)

	errDown := errors.New("database is down")
	stub := &testhelpers.OrderRepositoryStub{Base: repo}
	stub.UpdateConditionalFn = func(context.Context, string, model.OrderStatus, string, model.OrderUpdate) (*model.Order, error) {
		return nil, errDown
	}

	gw := &testhelpers.GatewayStub{Result: model.FulfillmentResult{Success: true, ExternalOrderID: "EXT-1"}}
	env := newLifecycleFixture(stub, gw, LifecycleConfig{})

	if _, err := env.lifecycle.Dispatch(context.Background(), "o-1"); !errors.Is(err, errDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if stub.UpdateCount() != defaultUpdateRetries {
		t.Fatalf("expected %d attempts, got %d", defaultUpdateRetries, stub.UpdateCount())
	}
	if len(env.broadcaster.Updates()) != 0 {
		t.Fatal("no broadcast expected when the store update failed")
	}
	stored, _ := repo.Get(context.Background(), "o-1")
	if stored.Status != model.OrderStatusPending {
		t.Fatalf("order must stay pending for the sweeper, got %s", stored.Status)
	}
}

func TestDispatchClaimError(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)

	errDown := errors.New("database is down")
	stub := &testhelpers.OrderRepositoryStub{Base: repo}
	stub.ClaimFn = func(context.Context, string, string, time.Time, time.Time) (*model.Order, error) {
		return nil, errDown
	}
	gw := &testhelpers.GatewayStub{}
	env := newLifecycleFixture(stub, gw, LifecycleConfig{})

	if _, err := env.lifecycle.Dispatch(context.Background(), "o-1"); !errors.Is(err, errDown) {
		t.Fatalf("expected claim error, got %v", err)
	}
	if gw.Calls() != 0 {
		t.Fatal("gateway must not be called without a claim")
	}
}

func TestDispatchRecordsOutcomeAfterCallerCancels(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &testhelpers.GatewayStub{SubmitFn: func(callCtx context.Context, _ model.FulfillmentRequest) (model.FulfillmentResult, error) {
		cancel()
		if callCtx.Err() != nil {
			return model.FulfillmentResult{}, callCtx.Err()
		}
		return model.FulfillmentResult{Success: true, ExternalOrderID: "EXT-5"}, nil
	}}
	env := newLifecycleFixture(repo, gw, LifecycleConfig{})

	got, err := env.lifecycle.Dispatch(ctx, "o-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.OrderStatusProcessing || *got.APIOrderID != "EXT-5" {
		t.Fatalf("expected recorded success, got %+v", got)
	}
}

func TestDispatchCancelledBeforeClaim(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)
	gw := &testhelpers.GatewayStub{Result: model.FulfillmentResult{Success: true, ExternalOrderID: "EXT-1"}}
	env := newLifecycleFixture(repo, gw, LifecycleConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := env.lifecycle.Dispatch(ctx, "o-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if gw.Calls() != 0 {
		t.Fatalf("expected no provider call, got %d", gw.Calls())
	}
	order, _ := repo.Get(context.Background(), "o-1")
	if order.Status != model.OrderStatusPending || order.Attempts != 0 {
		t.Fatalf("expected untouched order, got %+v", order)
	}
}

func TestNewLifecycleRaisesClaimTTLAboveProviderTimeout(t *testing.T) {
	l := NewLifecycle(memory.New().Orders(), &testhelpers.GatewayStub{}, &testhelpers.BroadcasterStub{}, nil,
		LifecycleConfig{ProviderTimeout: 3 * time.Minute, ClaimTTL: 2 * time.Minute}, discardLogger())
	want := 3*time.Minute + claimTTLMargin + 300*time.Millisecond
	if l.cfg.ClaimTTL != want {
		t.Fatalf("expected claim ttl %v, got %v", want, l.cfg.ClaimTTL)
	}

	l = NewLifecycle(memory.New().Orders(), &testhelpers.GatewayStub{}, &testhelpers.BroadcasterStub{}, nil,
		LifecycleConfig{ProviderTimeout: time.Second, ClaimTTL: time.Hour}, discardLogger())
	if l.cfg.ClaimTTL != time.Hour {
		t.Fatalf("expected long claim ttl to be kept, got %v", l.cfg.ClaimTTL)
	}
}

func TestDispatchShortClaimTTLStillSubmitsOnce(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)
	gw := &testhelpers.GatewayStub{
		Delay:  200 * time.Millisecond,
		Result: model.FulfillmentResult{Success: true, ExternalOrderID: "EXT-1"},
	}
	env := newLifecycleFixture(repo, gw, LifecycleConfig{ProviderTimeout: time.Second, ClaimTTL: 50 * time.Millisecond})

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = env.lifecycle.Dispatch(context.Background(), "o-1")
	}()

	time.Sleep(100 * time.Millisecond)
	if _, err := env.lifecycle.Dispatch(context.Background(), "o-1"); err != nil {
		t.Fatalf("second dispatch returned error: %v", err)
	}
	wg.Wait()

	if firstErr != nil {
		t.Fatalf("first dispatch returned error: %v", firstErr)
	}
	if gw.Calls() != 1 {
		t.Fatalf("expected one provider call, got %d", gw.Calls())
	}
	order, _ := repo.Get(context.Background(), "o-1")
	if order.Status != model.OrderStatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", order.Status)
	}
}

func TestRecordProgress(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)
	gw := &testhelpers.GatewayStub{Result: model.FulfillmentResult{Success: true, ExternalOrderID: "EXT-1"}}
	env := newLifecycleFixture(repo, gw, LifecycleConfig{})
	ctx := context.Background()

	if _, err := env.lifecycle.RecordProgress(ctx, "o-1", model.ProgressUpdate{Status: model.OrderStatusCompleted, Progress: 100}); !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from PENDING, got %v", err)
	}

	if _, err := env.lifecycle.Dispatch(ctx, "o-1"); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	got, err := env.lifecycle.RecordProgress(ctx, "o-1", model.ProgressUpdate{Status: model.OrderStatusProcessing, Progress: 40})
	if err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	if got.Progress != 40 || got.Status != model.OrderStatusProcessing || *got.APIOrderID != "EXT-1" {
		t.Fatalf("unexpected order %+v", got)
	}

	got, err = env.lifecycle.RecordProgress(ctx, "o-1", model.ProgressUpdate{Status: model.OrderStatusCompleted, Progress: 90})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if got.Status != model.OrderStatusCompleted || got.Progress != 100 {
		t.Fatalf("expected completed at 100, got %s %d", got.Status, got.Progress)
	}

	if _, err := env.lifecycle.RecordProgress(ctx, "o-1", model.ProgressUpdate{Status: model.OrderStatusProcessing, Progress: 10}); !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected terminal status to reject updates, got %v", err)
	}

	updates := env.broadcaster.Updates()
	if len(updates) != 3 {
		t.Fatalf("expected dispatch and two progress broadcasts, got %d", len(updates))
	}
	if last := updates[2]; last.Status != model.OrderStatusCompleted || last.Progress != 100 {
		t.Fatalf("unexpected last broadcast %+v", last)
	}
}

func TestRecordProgressValidation(t *testing.T) {
	env := newLifecycleFixture(memory.New().Orders(), &testhelpers.GatewayStub{}, LifecycleConfig{})

	for _, p := range []int{-1, 101} {
		if _, err := env.lifecycle.RecordProgress(context.Background(), "o-1", model.ProgressUpdate{Status: model.OrderStatusProcessing, Progress: p}); !errors.Is(err, domainErrors.ErrInvalidProgress) {
			t.Fatalf("expected invalid progress for %d, got %v", p, err)
		}
	}
	if _, err := env.lifecycle.RecordProgress(context.Background(), "missing", model.ProgressUpdate{Status: model.OrderStatusProcessing, Progress: 1}); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordProgressLostRace(t *testing.T) {
	repo := memory.New().Orders()
	seedOrder(t, repo, "o-1", model.OrderStatusPending)
	stub := &testhelpers.OrderRepositoryStub{Base: repo}
	stub.GetFn = func(ctx context.Context, id string) (*model.Order, error) {
		o, err := repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		o.Status = model.OrderStatusProcessing
		return o, nil
	}
	env := newLifecycleFixture(stub, &testhelpers.GatewayStub{}, LifecycleConfig{})

	if _, err := env.lifecycle.RecordProgress(context.Background(), "o-1", model.ProgressUpdate{Status: model.OrderStatusProcessing, Progress: 5}); !errors.Is(err, domainErrors.ErrStatusConflict) {
		t.Fatalf("expected status conflict, got %v", err)
	}
	if len(env.broadcaster.Updates()) != 0 {
		t.Fatal("no broadcast expected on conflict")
	}
}

func TestNewLifecycleDefaults(t *testing.T) {
	l := NewLifecycle(nil, nil, nil, nil, LifecycleConfig{}, discardLogger())
	if l.cfg.ProviderTimeout != defaultProviderTimeout || l.cfg.ClaimTTL != defaultClaimTTL {
		t.Fatalf("unexpected defaults %+v", l.cfg)
	}
	if l.metrics == nil {
		t.Fatal("expected nop metrics")
	}
}
