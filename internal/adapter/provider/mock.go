package provider

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

// Mock accepts every order after a fixed delay and returns a synthetic tracking id.
type Mock struct {
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMock constructs mock provider with the given simulated latency.
func NewMock(delay time.Duration) *Mock {
	return &Mock{
		delay: delay,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Submit waits for the simulated latency and accepts the order.
func (m *Mock) Submit(ctx context.Context, _ model.FulfillmentRequest) (model.FulfillmentResult, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.FulfillmentResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	return model.FulfillmentResult{
		Success:         true,
		ExternalOrderID: fmt.Sprintf("EXT-%d-%s", time.Now().UnixMilli(), m.suffix()),
	}, nil
}

func (m *Mock) suffix() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := strconv.FormatInt(m.rng.Int63(), 36)
	if len(s) > 9 {
		s = s[:9]
	}
	return s
}
