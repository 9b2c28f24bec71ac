package domain

import "time"

// ActivityType classifies an on-chain/off-chain event observed for a target wallet.
type ActivityType string

const (
	ActivityTrade  ActivityType = "TRADE"
	ActivitySplit  ActivityType = "SPLIT"
	ActivityMerge  ActivityType = "MERGE"
	ActivityRedeem ActivityType = "REDEEM"
)

// Side is the direction of a trade or replica order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Outcome identifies which leg of a binary market a token represents.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// ActivityEvent is an immutable record of something a target wallet did,
// produced by the ingester and consumed by the dedup store, risk manager,
// and executor in that order. Never mutated after construction.
type ActivityEvent struct {
	TargetWallet string
	TradeID      string // stable dedup key: txHash × tokenID × side × size
	Timestamp    time.Time
	TokenID      string
	ConditionID  string
	MarketSlug   string
	Outcome      Outcome
	Side         Side
	Price        float64 // in [0,1]
	SizeShares   float64
	ActivityType ActivityType
}

// NotionalUsd is price × size, the USD value of the event.
func (e ActivityEvent) NotionalUsd() float64 {
	return e.Price * e.SizeShares
}

// ReplicaSide maps SPLIT/MERGE/REDEEM onto the BUY/SELL axis the risk
// manager and executor operate on. TRADE passes its own side through.
func (e ActivityEvent) ReplicaSide() Side {
	switch e.ActivityType {
	case ActivitySplit:
		return SideBuy
	case ActivityMerge, ActivityRedeem:
		return SideSell
	default:
		return e.Side
	}
}

// Trade is an append-only ledger entry: the system of record in paper mode,
// a derived copy of exchange-reported fills in live mode.
type Trade struct {
	ID           string
	Timestamp    time.Time
	TokenID      string
	Side         Side
	Price        float64
	Shares       float64
	UsdValue     float64
	Fees         float64
	Pnl          *float64 // set on SELLs at the moment of FIFO match
	TargetWallet string
	TradeID      string // the ActivityEvent.TradeID that produced this trade
}
