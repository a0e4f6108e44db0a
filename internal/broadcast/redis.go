package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

const publishTimeout = 2 * time.Second

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// RedisPublisher publishes status updates as JSON on a Redis channel.
type RedisPublisher struct {
	client   redisPublisher
	channel  string
	observer Observer
	logger   *slog.Logger
}

func NewRedisPublisher(client redisPublisher, channel string, observer Observer, logger *slog.Logger) *RedisPublisher {
	if observer == nil {
		observer = nopObserver{}
	}
	return &RedisPublisher{client: client, channel: channel, observer: observer, logger: logger}
}

func (p *RedisPublisher) Notify(ctx context.Context, update model.StatusUpdate) {
	err := p.publish(ctx, update)
	p.observer.ObserveBroadcast(DriverRedis, err)
	if err != nil {
		p.logger.Warn("redis status publish failed",
			slog.String("order_id", update.OrderID),
			slog.String("channel", p.channel),
			slog.String("error", err.Error()))
	}
}

func (p *RedisPublisher) publish(ctx context.Context, update model.StatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode status update: %w", err)
	}

	// The order change is already committed; a cancelled request must not drop the event.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	return p.client.Publish(ctx, p.channel, payload).Err()
}

type messageSource interface {
	Channel(opts ...goredis.ChannelOption) <-chan *goredis.Message
	Close() error
}

// Relay forwards updates received on a Redis channel into a local broadcaster,
// so every instance can serve subscribers regardless of where a change happened.
type Relay struct {
	subscribe func(ctx context.Context) messageSource
	sink      Broadcaster
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRelay(subscribe func(ctx context.Context) messageSource, sink Broadcaster, logger *slog.Logger) *Relay {
	return &Relay{subscribe: subscribe, sink: sink, logger: logger}
}

// Run consumes messages until ctx is cancelled or the source closes.
func (r *Relay) Run(ctx context.Context) error {
	src := r.subscribe(ctx)
	defer func() {
		if err := src.Close(); err != nil {
			r.logger.Warn("redis subscription close failed", slog.String("error", err.Error()))
		}
	}()

	messages := src.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var update model.StatusUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				r.logger.Warn("discarding malformed status update",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()))
				continue
			}
			r.sink.Notify(ctx, update)
		}
	}
}

// Start launches Run in the background.
func (r *Relay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := r.Run(ctx); err != nil {
			r.logger.Error("redis relay stopped", slog.String("error", err.Error()))
		}
	}(r.done)
}

// Stop cancels the background loop and waits for it to exit or ctx to expire.
func (r *Relay) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
