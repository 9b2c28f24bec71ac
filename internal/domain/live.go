package domain

import "time"

// SignatureType enumerates how an AccountConfig's orders are authorized on-chain.
type SignatureType int

const (
	SignatureEOA        SignatureType = 0
	SignatureMagicProxy SignatureType = 1
	SignatureSafeProxy  SignatureType = 2
)

// AccountConfig holds the credentials needed to trade LIVE. Activating one
// transitions the Mode Controller to LIVE intent (see ModeController).
type AccountConfig struct {
	ID              string
	PrivateKeyHex   string
	APIKey          string
	APISecret       string
	APIPassphrase   string
	FunderAddress   string // optional proxy/funder wallet
	SignatureType   SignatureType
}

// OrderType is the time-in-force of a submitted order. GTC is the only
// type this engine submits.
type OrderType string

const GTC OrderType = "GTC"

// Order is a replica order about to be signed and submitted.
type Order struct {
	TokenID      string
	Side         Side
	LimitPrice   float64 // rounded to tick, clamped to [0.01, 0.99]
	Size         float64 // shares, >= minShares
	OrderType    OrderType
}

// PlaceOrderRequest carries everything the executor needs to submit an order.
type PlaceOrderRequest struct {
	Order       Order
	ConditionID string
	NegRisk     bool
	TickSize    float64
	FeeRateBps  int
}

// PlacedOrder is the outcome of a submission. Exactly one of OrderID or
// ErrorMessage is set on return from a live submission attempt.
type PlacedOrder struct {
	OrderID           string
	TransactionHashes []string
	ErrorMessage      string
}

// Success reports whether the exchange accepted the order, per §4.6:
// success iff an orderID is present or transactionHashes is non-empty.
func (p PlacedOrder) Success() bool {
	return p.OrderID != "" || len(p.TransactionHashes) > 0
}

// Fill is the exchange's report of execution for a submitted Order.
// At most one Fill per Order in this engine's view.
type Fill struct {
	OrderID       string
	ExecutedPrice float64
	ExecutedSize  float64
	Fees          float64
	LatencyMs     int64
}

// LiveOrderStatus is the lifecycle state of a real order on the CLOB.
type LiveOrderStatus string

const (
	LiveStatusOpen      LiveOrderStatus = "OPEN"
	LiveStatusPartial   LiveOrderStatus = "PARTIAL"
	LiveStatusFilled    LiveOrderStatus = "FILLED"
	LiveStatusCancelled LiveOrderStatus = "CANCELLED"
	LiveStatusExpired   LiveOrderStatus = "EXPIRED"
)

// LiveOrder is a real order placed on the Polymarket CLOB, as reported back
// by GetOpenOrders.
type LiveOrder struct {
	CLOBOrderID string
	ConditionID string
	TokenID     string
	Side        Side
	LimitPrice  float64
	Size        float64
	FilledSize  float64
	PlacedAt    time.Time
	Status      LiveOrderStatus
	NegRisk     bool
}
