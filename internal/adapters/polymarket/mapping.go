package polymarket

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/mdelgado/polycopy/internal/domain"
)

// mapGammaMarket converts Gamma's market DTO into a domain.Market. Tick
// size, neg-risk, and settlement payouts are filled in later by
// applyClobMarket — Gamma doesn't carry them reliably.
func mapGammaMarket(gm gammaMarket) domain.Market {
	m := domain.Market{
		ConditionID: gm.ConditionID,
		Slug:        gm.Slug,
	}

	tokenIDs := parseJSONStringArray(gm.ClobTokenIDs)
	outcomes := parseJSONStringArray(gm.Outcomes)
	prices := parseJSONStringArray(gm.OutcomePrices)

	for i := 0; i < len(tokenIDs) && i < 2; i++ {
		outcome := domain.OutcomeYes
		if i < len(outcomes) && outcomes[i] == "No" {
			outcome = domain.OutcomeNo
		}
		var price float64
		if i < len(prices) {
			price, _ = strconv.ParseFloat(prices[i], 64)
		}
		m.Tokens[i] = domain.Token{
			TokenID: tokenIDs[i],
			Outcome: outcome,
			Price:   price,
		}
	}

	if gm.EndDateISO != "" {
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, gm.EndDateISO); err == nil {
				m.EndDate = t.UTC()
				break
			}
		}
	}

	return m
}

// applyClobMarket layers the CLOB's tick size, neg-risk flag, and
// resolution state onto a Market already populated from Gamma.
func applyClobMarket(m *domain.Market, cm clobMarketResponse) {
	if ts, err := cm.MinimumTickSize.Float64(); err == nil && ts > 0 {
		m.TickSize = ts
	} else {
		m.TickSize = 0.01
	}
	m.NegRisk = cm.NegRisk
	m.Resolved = cm.Closed

	if !m.Resolved {
		return
	}
	m.Payouts = make(map[domain.Outcome]float64, 2)
	for _, t := range cm.Tokens {
		outcome := domain.OutcomeYes
		if t.Outcome == "No" {
			outcome = domain.OutcomeNo
		}
		payout := 0.0
		if t.Price >= 0.5 {
			payout = 1
		}
		m.Payouts[outcome] = payout
	}
}

// parseJSONStringArray decodes Gamma's JSON-encoded-as-string array fields
// (e.g. `"[\"token1\",\"token2\"]"`).
func parseJSONStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// mapOrderBooks converts the /books batch response to a tokenID→OrderBook map.
func mapOrderBooks(raw []orderBookResponse) map[string]domain.OrderBook {
	result := make(map[string]domain.OrderBook, len(raw))
	for _, r := range raw {
		result[r.AssetID] = domain.OrderBook{
			TokenID: r.AssetID,
			Bids:    mapBookEntries(r.Bids, false),
			Asks:    mapBookEntries(r.Asks, true),
		}
	}
	return result
}

// mapBookEntries converts raw string-valued entries to domain.BookEntry,
// sorted by price. ascending=true orders lowest-to-highest (asks);
// ascending=false orders highest-to-lowest (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price := domain.ParsePrice(r.Price)
		size := domain.ParsePrice(r.Size)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}

// mapActivityEntry converts one Data API activity row to a domain.ActivityEvent.
func mapActivityEntry(target string, a activityEntry) domain.ActivityEvent {
	price, _ := a.Price.Float64()
	size, _ := a.Size.Float64()

	outcome := domain.OutcomeYes
	if a.OutcomeIndex == 1 || a.Outcome == "No" {
		outcome = domain.OutcomeNo
	}

	side := domain.SideBuy
	if a.Side == "SELL" {
		side = domain.SideSell
	}

	return domain.ActivityEvent{
		TargetWallet: target,
		TradeID:      activityTradeID(a),
		Timestamp:    parseActivityTimestamp(a.Timestamp),
		TokenID:      a.Asset,
		ConditionID:  a.ConditionID,
		MarketSlug:   a.Slug,
		Outcome:      outcome,
		Side:         side,
		Price:        price,
		SizeShares:   size,
		ActivityType: mapActivityType(a.Type),
	}
}

func mapActivityType(raw string) domain.ActivityType {
	switch raw {
	case "SPLIT":
		return domain.ActivitySplit
	case "MERGE":
		return domain.ActivityMerge
	case "REDEEM":
		return domain.ActivityRedeem
	default:
		return domain.ActivityTrade
	}
}

// activityTradeID builds the stable dedup key described in domain.ActivityEvent:
// txHash × tokenID × side × size.
func activityTradeID(a activityEntry) string {
	if a.TransactionHash == "" {
		return a.ConditionID + ":" + a.Asset + ":" + a.Side + ":" + a.Size.String()
	}
	return a.TransactionHash + ":" + a.Asset + ":" + a.Side + ":" + a.Size.String()
}

func parseActivityTimestamp(n json.Number) time.Time {
	sec, err := n.Int64()
	if err != nil {
		return time.Time{}
	}
	if sec > 1e12 {
		return time.UnixMilli(sec).UTC()
	}
	return time.Unix(sec, 0).UTC()
}
