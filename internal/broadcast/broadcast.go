package broadcast

import (
	"context"

	"github.com/polkiloo/growthmart/internal/domain/model"
)

// Broadcaster delivers order status changes to subscribers. Delivery is best
// effort and never reports failure to the caller.
type Broadcaster interface {
	Notify(ctx context.Context, update model.StatusUpdate)
}

// Observer records broadcast outcomes per driver.
type Observer interface {
	ObserveBroadcast(driver string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveBroadcast(string, error) {}

// Multi fans a single update out to several broadcasters in order.
type Multi []Broadcaster

func (m Multi) Notify(ctx context.Context, update model.StatusUpdate) {
	for _, b := range m {
		b.Notify(ctx, update)
	}
}
