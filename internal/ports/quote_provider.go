package ports

import (
	"context"

	"github.com/mdelgado/polycopy/internal/domain"
)

// QuoteProvider fetches order books for the current-price fallback the
// P&L Aggregator (C9) uses when the metadata cache holds no price.
type QuoteProvider interface {
	// FetchOrderBooks returns order books for the given token IDs, batching
	// internally to respect the exchange's per-request limit.
	FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error)
}
