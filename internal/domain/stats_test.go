package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_ApplyRealizedPnl_Win(t *testing.T) {
	var s Stats
	s = s.ApplyRealizedPnl(14.905, 0.095)
	assert.Equal(t, 1, s.WinningTrades)
	assert.Equal(t, 0, s.LosingTrades)
	assert.InDelta(t, 14.905, s.TotalRealizedPnl, 0.0001)
	assert.InDelta(t, 14.905, s.LargestWin, 0.0001)
	assert.Equal(t, 1, s.TotalTrades)
}

func TestStats_ApplyRealizedPnl_Loss(t *testing.T) {
	var s Stats
	s = s.ApplyRealizedPnl(-5, 0.1)
	assert.Equal(t, 0, s.WinningTrades)
	assert.Equal(t, 1, s.LosingTrades)
	assert.InDelta(t, -5.0, s.LargestLoss, 0.0001)
}

func TestStats_ApplyRealizedPnl_ZeroIsNeitherWinNorLoss(t *testing.T) {
	var s Stats
	s = s.ApplyRealizedPnl(0, 0.01)
	assert.Equal(t, 0, s.WinningTrades)
	assert.Equal(t, 0, s.LosingTrades)
	assert.Equal(t, 1, s.TotalTrades)
}

func TestStats_WinRate(t *testing.T) {
	s := Stats{WinningTrades: 3, LosingTrades: 1}
	assert.InDelta(t, 0.75, s.WinRate(), 0.0001)
}

func TestStats_WinRate_NoTrades(t *testing.T) {
	var s Stats
	assert.Equal(t, 0.0, s.WinRate())
}

func TestProfitFactor_LossesPresent(t *testing.T) {
	assert.InDelta(t, 2.0, ProfitFactor(20, -10), 0.0001)
}

func TestProfitFactor_NoLossesWithWins(t *testing.T) {
	assert.True(t, math.IsInf(ProfitFactor(20, 0), 1))
}

func TestProfitFactor_NoWinsNoLosses(t *testing.T) {
	assert.Equal(t, 0.0, ProfitFactor(0, 0))
}
