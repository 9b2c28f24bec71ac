package polymarket

import "encoding/json"

// Wire DTOs for the Polymarket CLOB, Gamma, and Data APIs. Never leave this
// package — mapping.go converts these into domain entities.

// --- Data API (activity / trade history) ---

// activityEntry is one row of GET /activity?user=<wallet>.
type activityEntry struct {
	ProxyWallet  string      `json:"proxyWallet"`
	Timestamp    json.Number `json:"timestamp"`
	ConditionID  string      `json:"conditionId"`
	Type         string      `json:"type"` // TRADE, SPLIT, MERGE, REDEEM
	Size         json.Number `json:"size"`
	USDCSize     json.Number `json:"usdcSize"`
	TransactionHash string   `json:"transactionHash"`
	Price        json.Number `json:"price"`
	Asset        string      `json:"asset"` // token ID
	Side         string      `json:"side"`  // BUY, SELL
	OutcomeIndex int         `json:"outcomeIndex"`
	Slug         string      `json:"slug"`
	Outcome      string      `json:"outcome"`
}

// --- CLOB API ---

// orderBookRequest is one item of the POST /books batch body.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse is one item of the POST /books batch response.
type orderBookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw is a single raw price level (strings, for precision).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// clobMarketResponse is GET /markets/{condition_id} (tick size, neg-risk).
type clobMarketResponse struct {
	ConditionID   string      `json:"condition_id"`
	MinimumTickSize json.Number `json:"minimum_tick_size"`
	NegRisk       bool        `json:"neg_risk"`
	Closed        bool        `json:"closed"`
	Tokens        []clobToken `json:"tokens"`
}

// clobToken is one outcome leg as reported by the CLOB.
type clobToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}

// --- Gamma API ---

// gammaMarketsResponse is GET /markets.
type gammaMarketsResponse []gammaMarket

// gammaMarket is Gamma's enriched market metadata. Numeric fields arrive as
// JSON strings on some endpoints, hence json.Number throughout.
type gammaMarket struct {
	ConditionID string      `json:"conditionId"`
	Question    string      `json:"question"`
	Slug        string      `json:"slug"`
	EndDateISO  string      `json:"endDateIso"`
	ClobTokenIDs string     `json:"clobTokenIds"` // JSON-encoded array of 2 strings
	Outcomes    string      `json:"outcomes"`     // JSON-encoded array of 2 strings
	OutcomePrices string    `json:"outcomePrices"`
	Active      bool        `json:"active"`
	Closed      bool        `json:"closed"`
}
