package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

const defaultSubscriberBuffer = 16

// Hub is an in-process fan-out of status updates.
type Hub struct {
	mu     sync.Mutex
	next   uint64
	subs   map[uint64]*subscriber
	closed bool
	buffer int
	logger *slog.Logger
}

type subscriber struct {
	orderID string
	ch      chan model.StatusUpdate
}

// Subscription receives updates on C until Close is called or the hub shuts down.
type Subscription struct {
	C <-chan model.StatusUpdate

	hub *Hub
	id  uint64
}

// NewHub creates a hub whose subscribers buffer up to buffer updates.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[uint64]*subscriber),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a listener for orderID, or for all orders when orderID is empty.
func (h *Hub) Subscribe(orderID string) *Subscription {
	ch := make(chan model.StatusUpdate, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return &Subscription{C: ch, hub: h}
	}

	h.next++
	id := h.next
	h.subs[id] = &subscriber{orderID: orderID, ch: ch}
	return &Subscription{C: ch, hub: h, id: id}
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.hub.remove(s.id)
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Notify delivers update to matching subscribers without blocking. Slow
// subscribers miss updates instead of stalling the sender.
func (h *Hub) Notify(_ context.Context, update model.StatusUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.orderID != "" && sub.orderID != update.OrderID {
			continue
		}
		select {
		case sub.ch <- update:
		default:
			h.logger.Warn("dropping status update for slow subscriber",
				slog.String("order_id", update.OrderID),
				slog.String("status", string(update.Status)))
		}
	}
}

// Subscribers reports the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close terminates every subscription. Later subscriptions receive a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
	h.closed = true
}
