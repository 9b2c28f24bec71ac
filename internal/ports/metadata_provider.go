package ports

import (
	"context"

	"github.com/mdelgado/polycopy/internal/domain"
)

// MetadataProvider is the opaque, read-only market-metadata source the
// Metadata Cache (C2) fronts with a TTL.
type MetadataProvider interface {
	// FetchMarketBySlug resolves a market by its human-readable slug,
	// falling back to the events endpoint when the direct lookup misses.
	FetchMarketBySlug(ctx context.Context, slug string) (domain.Market, error)

	// FetchMarketByToken resolves the market owning a given token ID.
	FetchMarketByToken(ctx context.Context, tokenID string) (domain.Market, error)
}
