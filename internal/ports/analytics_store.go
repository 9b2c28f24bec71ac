package ports

import (
	"context"

	"github.com/mdelgado/polycopy/internal/domain"
)

// AnalyticsStore is the optional historical side-car (§11's DOMAIN STACK
// "Historical analytics store"): an append-only mirror of closed trades
// and equity snapshots for ad-hoc SQL querying. It is never read back into
// the live decision path and its absence never changes engine behavior —
// the JSON files written by DataStore remain the system of record.
type AnalyticsStore interface {
	RecordTrade(ctx context.Context, trade domain.Trade) error
	RecordSnapshot(ctx context.Context, snap domain.Snapshot) error
	Close() error
}
