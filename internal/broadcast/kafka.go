package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits status updates to a Kafka topic keyed by order id.
type KafkaPublisher struct {
	writer   messageWriter
	observer Observer
	logger   *slog.Logger
}

func NewKafkaPublisher(writer messageWriter, observer Observer, logger *slog.Logger) *KafkaPublisher {
	if observer == nil {
		observer = nopObserver{}
	}
	return &KafkaPublisher{writer: writer, observer: observer, logger: logger}
}

func (p *KafkaPublisher) Notify(ctx context.Context, update model.StatusUpdate) {
	err := p.publish(ctx, update)
	p.observer.ObserveBroadcast(DriverKafka, err)
	if err != nil {
		p.logger.Warn("kafka status publish failed",
			slog.String("order_id", update.OrderID),
			slog.String("error", err.Error()))
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, update model.StatusUpdate) error {
	value, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode status update: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(update.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(update.Status)},
		},
	})
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// writerBatchTimeout bounds how long a synchronous WriteMessages waits for a
// batch to fill. The kafka-go default of one second would stall every Notify.
const writerBatchTimeout = 10 * time.Millisecond

func newKafkaWriter(brokers []string, topic string, logger *slog.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    1,
		BatchTimeout: writerBatchTimeout,
		Logger:       kafkaLogger{logger: logger, level: slog.LevelDebug},
		ErrorLogger:  kafkaLogger{logger: logger, level: slog.LevelError},
	}
}

type kafkaLogger struct {
	logger *slog.Logger
	level  slog.Level
}

func (k kafkaLogger) Printf(msg string, args ...interface{}) {
	k.logger.Log(context.Background(), k.level, fmt.Sprintf(msg, args...), slog.String("component", "kafka"))
}
