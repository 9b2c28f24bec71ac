package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mdelgado/polycopy/internal/ports"
)

const (
	balanceFreshness     = 15 * time.Second
	marketParamsFreshness = 60 * time.Second
)

type marketParams struct {
	tickSize   float64
	negRisk    bool
	feeRateBps int
	expiresAt  time.Time
}

// Balance is C3's USDC-balance and market-parameter cache in front of the
// LIVE OrderExecutor: 15s freshness on balance, 60s on tick size/negRisk/fee,
// per §4.6 step 1.
type Balance struct {
	executor ports.OrderExecutor

	mu            sync.Mutex
	balance       float64
	balanceAt     time.Time
	params        map[string]marketParams
	tokenBalances map[string]tokenBalanceEntry
}

type tokenBalanceEntry struct {
	shares    float64
	expiresAt time.Time
}

// NewBalance builds a Balance cache over executor.
func NewBalance(executor ports.OrderExecutor) *Balance {
	return &Balance{
		executor:      executor,
		params:        make(map[string]marketParams),
		tokenBalances: make(map[string]tokenBalanceEntry),
	}
}

// USDC returns the cached (or freshly fetched) available USDC balance,
// honoring the 15s freshness window the BUY pre-flight requires.
func (b *Balance) USDC(ctx context.Context) (float64, error) {
	b.mu.Lock()
	if time.Since(b.balanceAt) < balanceFreshness {
		bal := b.balance
		b.mu.Unlock()
		return bal, nil
	}
	b.mu.Unlock()

	bal, err := b.executor.GetBalance(ctx)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	b.balance = bal
	b.balanceAt = time.Now()
	b.mu.Unlock()
	return bal, nil
}

// TokenShares returns the cached (or freshly fetched) conditional-token
// balance for tokenID, ground truth for the SELL pre-flight.
func (b *Balance) TokenShares(ctx context.Context, tokenID string) (float64, error) {
	b.mu.Lock()
	if entry, ok := b.tokenBalances[tokenID]; ok && time.Now().Before(entry.expiresAt) {
		b.mu.Unlock()
		return entry.shares, nil
	}
	b.mu.Unlock()

	shares, err := b.executor.TokenBalance(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	b.tokenBalances[tokenID] = tokenBalanceEntry{shares: shares, expiresAt: time.Now().Add(balanceFreshness)}
	b.mu.Unlock()
	return shares, nil
}

// Params returns (tickSize, negRisk, feeRateBps) for tokenID, cached for 60s.
func (b *Balance) Params(ctx context.Context, tokenID string) (tickSize float64, negRisk bool, feeRateBps int, err error) {
	b.mu.Lock()
	if p, ok := b.params[tokenID]; ok && time.Now().Before(p.expiresAt) {
		b.mu.Unlock()
		return p.tickSize, p.negRisk, p.feeRateBps, nil
	}
	b.mu.Unlock()

	tick, neg, fee, err := b.executor.MarketParams(ctx, tokenID)
	if err != nil {
		return 0, false, 0, err
	}
	b.mu.Lock()
	b.params[tokenID] = marketParams{tickSize: tick, negRisk: neg, feeRateBps: fee, expiresAt: time.Now().Add(marketParamsFreshness)}
	b.mu.Unlock()
	return tick, neg, fee, nil
}

// InvalidatePosition drops the cached token balance for tokenID and marks
// the USDC balance stale after an order executes, per §4.6 step 6. Cached
// market params are kept until their own 60s expiry.
func (b *Balance) InvalidatePosition(tokenID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokenBalances, tokenID)
	b.balanceAt = time.Time{}
}
