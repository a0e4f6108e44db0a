package broadcast

import (
	"context"
	"testing"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/polkiloo/growthmart/internal/config"
	"github.com/polkiloo/growthmart/internal/metrics"
)

func newModuleApp(t *testing.T, cfg *config.Config, target *Broadcaster, hub **Hub) *fxtest.App {
	t.Helper()
	return fxtest.New(t,
		fx.NopLogger,
		fx.Supply(cfg, discardLogger()),
		metrics.Module,
		Module,
		fx.Populate(target, hub),
	)
}

func TestModuleMemoryDriver(t *testing.T) {
	var (
		b   Broadcaster
		hub *Hub
	)
	app := newModuleApp(t, &config.Config{BroadcastDriver: config.DriverMemory}, &b, &hub)
	app.RequireStart()

	if b != Broadcaster(hub) {
		t.Fatalf("expected hub as broadcaster, got %T", b)
	}
	sub := hub.Subscribe("")

	app.RequireStop()
	if _, ok := <-sub.C; ok {
		t.Fatal("expected hub closed on stop")
	}
}

func TestModuleKafkaDriver(t *testing.T) {
	var (
		b   Broadcaster
		hub *Hub
	)
	cfg := &config.Config{
		BroadcastDriver: config.DriverKafka,
		KafkaBrokers:    []string{"127.0.0.1:9092"},
		KafkaTopic:      "orders.status",
	}
	app := newModuleApp(t, cfg, &b, &hub)
	app.RequireStart()

	multi, ok := b.(Multi)
	if !ok || len(multi) != 2 {
		t.Fatalf("expected hub and kafka publisher, got %T", b)
	}
	if _, ok := multi[1].(*KafkaPublisher); !ok {
		t.Fatalf("expected kafka publisher, got %T", multi[1])
	}
	app.RequireStop()
}

func TestModuleRedisDriverFailsWithoutServer(t *testing.T) {
	var (
		b   Broadcaster
		hub *Hub
	)
	cfg := &config.Config{
		BroadcastDriver: config.DriverRedis,
		RedisAddr:       "127.0.0.1:1",
		RedisChannel:    "orders:status",
	}
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, discardLogger()),
		metrics.Module,
		Module,
		fx.Populate(&b, &hub),
	)
	if err := app.Err(); err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if _, ok := b.(*RedisPublisher); !ok {
		t.Fatalf("expected redis publisher, got %T", b)
	}
	if err := app.Start(context.Background()); err == nil {
		_ = app.Stop(context.Background())
		t.Fatal("expected start to fail without redis")
	}
}

func TestNewBroadcasterRejectsUnknownDriver(t *testing.T) {
	_, err := newBroadcaster(broadcasterParams{
		Config: &config.Config{BroadcastDriver: "nats"},
		Logger: discardLogger(),
		Hub:    NewHub(1, discardLogger()),
	})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
