package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/polkiloo/growthmart/internal/app"
	"github.com/polkiloo/growthmart/internal/config"
	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/server/http/handlers"
	"github.com/polkiloo/growthmart/internal/test"
)

func testConfig() *config.Config {
	return &config.Config{
		RunAddress:          "127.0.0.1:0",
		LogLevel:            "error",
		ShutdownTimeout:     time.Second,
		StorageDriver:       config.DriverMemory,
		ProviderTimeout:     time.Second,
		SweepSchedule:       "@every 1h",
		SweepStaleAfter:     time.Minute,
		SweepBatchSize:      5,
		SweepConcurrency:    2,
		DispatchClaimTTL:    time.Minute,
		MaxDispatchAttempts: 3,
		BroadcastDriver:     config.DriverMemory,
	}
}

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	var (
		facade  *app.FulfillmentFacade
		handler handlers.FulfillmentFacade
		engine  *gin.Engine
	)
	fxApp := fx.New(
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(testConfig()),
			fx.Replace(logger),
		),
		fx.Populate(&facade, &handler, &engine),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	if facade == nil || handler == nil || engine == nil {
		t.Fatal("expected fulfillment facade, handler facade and router instances")
	}
}

func TestModuleRunsOrderLifecycle(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	var facade handlers.FulfillmentFacade
	fxApp := fxtest.New(t,
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		Module(
			fx.Replace(testConfig()),
			fx.Replace(logger),
		),
		fx.Populate(&facade),
	)
	fxApp.RequireStart()
	defer fxApp.RequireStop()

	ctx := context.Background()
	order, err := facade.CreateOrder(ctx, test.RandomNewOrder())
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	updates, stop := facade.Watch(order.ID)
	defer stop()

	dispatched, err := facade.Dispatch(ctx, order.ID)
	if err != nil {
		t.Fatalf("dispatch returned error: %v", err)
	}
	if dispatched.Status != model.OrderStatusProcessing || dispatched.APIOrderID == nil {
		t.Fatalf("expected mock provider to accept order, got %+v", dispatched)
	}

	select {
	case update := <-updates:
		if update.Status != model.OrderStatusProcessing {
			t.Fatalf("unexpected update %+v", update)
		}
	case <-time.After(time.Second):
		t.Fatal("expected broadcast through the memory hub")
	}

	if err := facade.Health(ctx); err != nil {
		t.Fatalf("expected healthy store, got %v", err)
	}
}
