package ledger

import (
	"sort"

	"github.com/mdelgado/polycopy/internal/domain"
)

// Aggregate derives realized P&L, win/loss stats, and open positions from
// an ordered trade log using FIFO per token (C9, §4.7). It is the live-mode
// counterpart to Ledger's incremental bookkeeping: live trades are whatever
// the exchange reports, so state is rebuilt from the log rather than
// maintained incrementally. Each trade's own Fees are folded in as it is
// replayed, rather than relying on a pre-computed Pnl field the exchange
// never supplies.
func Aggregate(trades []domain.Trade, currentPrices map[string]float64) (map[string]domain.Position, domain.Stats) {
	byToken := make(map[string][]domain.Trade)
	for _, t := range trades {
		byToken[t.TokenID] = append(byToken[t.TokenID], t)
	}

	positions := make(map[string]domain.Position)
	var stats domain.Stats

	for tokenID, tt := range byToken {
		sort.Slice(tt, func(i, j int) bool { return tt[i].Timestamp.Before(tt[j].Timestamp) })

		var state domain.FIFOState
		for _, t := range tt {
			switch t.Side {
			case domain.SideBuy:
				state = state.ApplyBuy(t.Shares, t.Price)
				state.CostBasis += t.Fees
				stats = stats.AddFees(t.Fees)
			case domain.SideSell:
				var pnl float64
				state, pnl = state.ApplySell(t.Shares, t.Price)
				pnl -= t.Fees
				stats = stats.ApplyRealizedPnl(pnl, t.Fees)
			}
		}

		if state.Shares <= 0 {
			continue
		}

		pos := domain.Position{
			TokenID:   tokenID,
			Shares:    state.Shares,
			TotalCost: state.CostBasis,
			OpenedAt:  tt[0].Timestamp,
		}
		if price, ok := currentPrices[tokenID]; ok {
			p := price
			pos.CurrentPrice = &p
		}
		positions[tokenID] = pos
	}

	return positions, stats
}
