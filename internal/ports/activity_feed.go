package ports

import (
	"context"

	"github.com/mdelgado/polycopy/internal/domain"
)

// ActivityFeed is the realtime leg of the Activity Ingester (C7, §4.1): one
// authenticated subscription carrying trades/orders-matched activity,
// reconnecting with backoff on its own. Run blocks until ctx is cancelled.
type ActivityFeed interface {
	Run(ctx context.Context) error
	Events() <-chan domain.ActivityEvent
	Connected() bool
}
