package domain

import "math"

// ApplyRealizedPnl folds one SELL's realized pnl into the running Stats,
// per §4.5's "on every SELL with nonzero pnl" rollup rule.
func (s Stats) ApplyRealizedPnl(pnl, fees float64) Stats {
	s.TotalRealizedPnl += pnl
	s.TotalFees += fees
	s.TotalTrades++
	if pnl > 0 {
		s.WinningTrades++
		if pnl > s.LargestWin {
			s.LargestWin = pnl
		}
	} else if pnl < 0 {
		s.LosingTrades++
		if pnl < s.LargestLoss {
			s.LargestLoss = pnl
		}
	}
	return s
}

// AddFees folds a fee charged outside of a realized-pnl event (a BUY's
// fee) into TotalFees, leaving the win/loss counters untouched since those
// only apply to closed (SELL) trades.
func (s Stats) AddFees(fees float64) Stats {
	s.TotalFees += fees
	return s
}

// ProfitFactor is Σwins / |Σlosses|. Per §4.5: +Inf when there are wins and
// no losses, 0 when there are no wins at all.
func ProfitFactor(sumWins, sumLosses float64) float64 {
	if sumLosses == 0 {
		if sumWins > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return sumWins / math.Abs(sumLosses)
}
