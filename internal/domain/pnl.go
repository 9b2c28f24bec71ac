package domain

// FIFOState tracks one token's running cost basis while a trade log is
// traversed oldest-first. Zero value is a flat (no shares) starting state.
type FIFOState struct {
	Shares    float64
	CostBasis float64
}

// AvgEntry is CostBasis / Shares, or 0 when flat.
func (s FIFOState) AvgEntry() float64 {
	if s.Shares == 0 {
		return 0
	}
	return s.CostBasis / s.Shares
}

// ApplyBuy folds a BUY into the running FIFO state (§4.7).
func (s FIFOState) ApplyBuy(size, price float64) FIFOState {
	s.Shares += size
	s.CostBasis += size * price
	return s
}

// ApplySell folds a SELL into the running FIFO state and returns the
// realized P&L booked by this sell, per §4.7's FIFO-per-token algorithm.
// No-op (zero pnl, unchanged state) when the state is already flat.
func (s FIFOState) ApplySell(size, price float64) (FIFOState, float64) {
	if s.Shares <= 0 {
		return s, 0
	}
	if size > s.Shares {
		size = s.Shares
	}
	avgCost := s.AvgEntry()
	pnl := (price - avgCost) * size
	s.CostBasis -= s.CostBasis * (size / s.Shares)
	s.Shares -= size
	return s, pnl
}

// RunFIFO replays an ordered (oldest-first) per-token trade slice and
// returns the final FIFO state plus the total realized P&L; trade fees are
// not applied. The P&L aggregator (C9) runs the same ApplyBuy/ApplySell
// steps itself; RunFIFO is exercised directly by the FIFO round-trip
// property test.
func RunFIFO(trades []Trade) (FIFOState, float64) {
	var state FIFOState
	var realized float64
	for _, t := range trades {
		switch t.Side {
		case SideBuy:
			state = state.ApplyBuy(t.Shares, t.Price)
		case SideSell:
			var pnl float64
			state, pnl = state.ApplySell(t.Shares, t.Price)
			realized += pnl
		}
	}
	return state, realized
}

// UnrealizedPnl is shares*(currentPrice-avgEntry), falling back to zero
// when no current price is available (§4.7: "default to avgEntry and
// declare unrealized = 0").
func UnrealizedPnl(state FIFOState, currentPrice *float64) float64 {
	if currentPrice == nil || state.Shares == 0 {
		return 0
	}
	return state.Shares * (*currentPrice - state.AvgEntry())
}
