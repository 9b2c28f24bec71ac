package domain

// RiskReason names why the risk manager rejected or shrank an event, per §4.4/§7.
type RiskReason string

const (
	ReasonBelowMinimumShares RiskReason = "BelowMinimumShares"
	ReasonPerMarketCap       RiskReason = "PerMarketCapExceeded"
	ReasonDailyCap           RiskReason = "DailyCapExceeded"
	ReasonDenylisted         RiskReason = "MarketDenylisted"
	ReasonNotAllowlisted     RiskReason = "MarketNotAllowlisted"
	ReasonInsufficientFunds  RiskReason = "InsufficientFunds"
	ReasonInsufficientShares RiskReason = "InsufficientShares"
	ReasonRateLimited        RiskReason = "RateLimited"
)

// SkipDecision is the outcome of a rejected event: the risk manager (or
// executor pre-flight) never mutates state when it produces one.
type SkipDecision struct {
	Reason  RiskReason
	Detail  string
}

// SizedOrder is what the risk manager hands to the executor after sizing,
// floors, and caps have been applied to an ActivityEvent.
type SizedOrder struct {
	Event  ActivityEvent
	Shares float64 // post sizing/floor/cap
}
