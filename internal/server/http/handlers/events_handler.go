package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/server/http/dto"
)

const defaultHeartbeat = 15 * time.Second

// EventsHandler streams order status updates as server-sent events.
type EventsHandler struct {
	facade    StatusFacade
	heartbeat time.Duration
}

// NewEventsHandler constructs EventsHandler. Non-positive heartbeat selects the default.
func NewEventsHandler(facade StatusFacade, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &EventsHandler{facade: facade, heartbeat: heartbeat}
}

// Stream handles GET /api/orders/events?order_id=.
func (h *EventsHandler) Stream(c *gin.Context) {
	updates, stop := h.facade.Watch(c.Query("order_id"))
	defer stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.SSEvent("status", toStatusEvent(update))
		}
		c.Writer.Flush()
	}
}

func toStatusEvent(u model.StatusUpdate) dto.StatusEvent {
	return dto.StatusEvent{
		OrderID:   u.OrderID,
		Status:    string(u.Status),
		Progress:  u.Progress,
		UpdatedAt: u.UpdatedAt,
	}
}
