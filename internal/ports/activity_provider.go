package ports

import (
	"context"

	"github.com/mdelgado/polycopy/internal/domain"
)

// ActivityProvider fetches a target wallet's recent activity over HTTP,
// used by the per-target poller leg of the Activity Ingester (C7) for
// activity types the realtime stream does not carry (SPLIT, MERGE, REDEEM).
type ActivityProvider interface {
	// FetchActivity returns up to limit of the most recent activities for
	// target, sorted oldest-first and already normalized to ActivityEvent.
	FetchActivity(ctx context.Context, target string, limit int) ([]domain.ActivityEvent, error)
}
