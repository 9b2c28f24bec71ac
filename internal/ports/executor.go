package ports

import (
	"context"

	"github.com/mdelgado/polycopy/internal/domain"
)

// OrderExecutor places and monitors real orders on the Polymarket CLOB;
// the LIVE implementation of C6 (§4.6).
type OrderExecutor interface {
	// PlaceOrder signs and submits a marketable limit order.
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error)

	// CancelOrder cancels a specific order by its CLOB order ID.
	CancelOrder(ctx context.Context, clobOrderID string) error

	// GetOpenOrders returns all currently open/partial orders for this wallet.
	GetOpenOrders(ctx context.Context) ([]domain.LiveOrder, error)

	// GetBalance returns the available USDC balance (C3's balance cache
	// fetches through this with a 15s freshness window).
	GetBalance(ctx context.Context) (float64, error)

	// TokenBalance returns the on-chain conditional-token balance, in
	// shares, for tokenID — ground truth for the SELL pre-flight.
	TokenBalance(ctx context.Context, tokenID string) (float64, error)

	// MarketParams returns (tickSize, negRisk, feeRateBps) for tokenID,
	// the remainder of C3's short-TTL cache.
	MarketParams(ctx context.Context, tokenID string) (tickSize float64, negRisk bool, feeRateBps int, err error)
}

// RedeemExecutor invokes the opaque on-chain "settle(conditionId) →
// txHash" operation (§1's Out-of-scope list); this engine only ever
// originates this call from the auto-redeem sweep (§11), never as part of
// the core replication pipeline.
type RedeemExecutor interface {
	Redeem(ctx context.Context, conditionID string) (txHash string, err error)
}
