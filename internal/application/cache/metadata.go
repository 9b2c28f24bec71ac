// Package cache implements the Metadata Cache (C2, §2) and the
// Balance/Market-Params Cache (C3, §2, §4.6): short-TTL read-through
// fronts over the opaque metadata/executor ports, so a brief API outage
// does not stall the risk/executor pipeline.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/mdelgado/polycopy/internal/ports"
)

const defaultMetadataTTL = 5 * time.Minute

type metadataEntry struct {
	market    domain.Market
	expiresAt time.Time
}

// Metadata is a TTL cache of market descriptors keyed by slug and token ID
// (C2). A slug miss and a token miss both populate both indexes once the
// underlying market is known, since a Market carries its own token IDs.
type Metadata struct {
	provider ports.MetadataProvider
	ttl      time.Duration

	mu      sync.RWMutex
	bySlug  map[string]metadataEntry
	byToken map[string]metadataEntry
}

// NewMetadata builds a Metadata cache over provider. ttl<=0 selects the
// default 5 minute freshness window.
func NewMetadata(provider ports.MetadataProvider, ttl time.Duration) *Metadata {
	if ttl <= 0 {
		ttl = defaultMetadataTTL
	}
	return &Metadata{
		provider: provider,
		ttl:      ttl,
		bySlug:   make(map[string]metadataEntry),
		byToken:  make(map[string]metadataEntry),
	}
}

// BySlug returns the cached (or freshly fetched) market for slug.
func (m *Metadata) BySlug(ctx context.Context, slug string) (domain.Market, error) {
	if mkt, ok := m.lookup(m.bySlug, slug); ok {
		return mkt, nil
	}
	mkt, err := m.provider.FetchMarketBySlug(ctx, slug)
	if err != nil {
		return domain.Market{}, err
	}
	m.store(mkt)
	return mkt, nil
}

// ByToken returns the cached (or freshly fetched) market owning tokenID.
func (m *Metadata) ByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	if mkt, ok := m.lookup(m.byToken, tokenID); ok {
		return mkt, nil
	}
	mkt, err := m.provider.FetchMarketByToken(ctx, tokenID)
	if err != nil {
		return domain.Market{}, err
	}
	m.store(mkt)
	return mkt, nil
}

// CurrentPrice returns tokenID's last known CLOB price from the cache, if
// the owning market is cached; used by the P&L aggregator's current-price
// step (§4.7) before falling back to a live quote.
func (m *Metadata) CurrentPrice(tokenID string) (float64, bool) {
	m.mu.RLock()
	entry, ok := m.byToken[tokenID]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return 0, false
	}
	tok, found := entry.market.TokenByID(tokenID)
	if !found {
		return 0, false
	}
	return tok.Price, true
}

func (m *Metadata) lookup(idx map[string]metadataEntry, key string) (domain.Market, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := idx[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return domain.Market{}, false
	}
	return entry.market, true
}

func (m *Metadata) store(mkt domain.Market) {
	entry := metadataEntry{market: mkt, expiresAt: time.Now().Add(m.ttl)}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySlug[mkt.Slug] = entry
	for _, tok := range mkt.Tokens {
		if tok.TokenID != "" {
			m.byToken[tok.TokenID] = entry
		}
	}
}

// Invalidate drops the token-index entry for tokenID, forcing the next
// ByToken lookup to refetch; the market's slug-index entry and its other
// token's entry are kept. Used after an order invalidates stale state.
func (m *Metadata) Invalidate(tokenID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byToken, tokenID)
}
