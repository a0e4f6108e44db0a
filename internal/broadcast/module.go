package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/growthmart/internal/config"
	"github.com/polkiloo/growthmart/internal/metrics"
)

const (
	DriverMemory = config.DriverMemory
	DriverRedis  = config.DriverRedis
	DriverKafka  = config.DriverKafka
)

// Module provides the local hub and the configured status broadcaster.
var Module = fx.Options(
	fx.Provide(newHub, newBroadcaster),
	fx.Invoke(registerHubLifecycle),
)

func newHub(logger *slog.Logger) *Hub {
	return NewHub(defaultSubscriberBuffer, logger)
}

func registerHubLifecycle(lc fx.Lifecycle, hub *Hub) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			hub.Close()
			return nil
		},
	})
}

type broadcasterParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
	Hub       *Hub
	Metrics   *metrics.Recorder
}

func newBroadcaster(p broadcasterParams) (Broadcaster, error) {
	switch p.Config.BroadcastDriver {
	case DriverMemory, "":
		return p.Hub, nil
	case DriverRedis:
		return newRedisBroadcaster(p), nil
	case DriverKafka:
		return newKafkaBroadcaster(p), nil
	default:
		return nil, fmt.Errorf("unsupported broadcast driver: %s", p.Config.BroadcastDriver)
	}
}

// Updates published to Redis come back through the relay, which feeds the local hub.
func newRedisBroadcaster(p broadcasterParams) Broadcaster {
	cfg := p.Config
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	relay := NewRelay(func(ctx context.Context) messageSource {
		return client.Subscribe(ctx, cfg.RedisChannel)
	}, p.Hub, p.Logger)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
			relay.Start()
			p.Logger.Info("redis broadcast connected",
				slog.String("addr", cfg.RedisAddr),
				slog.String("channel", cfg.RedisChannel))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("closing redis broadcast")
			if err := relay.Stop(ctx); err != nil {
				return err
			}
			return client.Close()
		},
	})

	return NewRedisPublisher(client, cfg.RedisChannel, p.Metrics, p.Logger)
}

func newKafkaBroadcaster(p broadcasterParams) Broadcaster {
	writer := newKafkaWriter(p.Config.KafkaBrokers, p.Config.KafkaTopic, p.Logger)
	publisher := NewKafkaPublisher(writer, p.Metrics, p.Logger)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("closing kafka broadcast")
			return publisher.Close()
		},
	})

	return Multi{p.Hub, publisher}
}
