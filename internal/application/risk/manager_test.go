package risk_test

import (
	"testing"

	"github.com/mdelgado/polycopy/internal/application/risk"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buyEvent(shares, price float64) domain.ActivityEvent {
	return domain.ActivityEvent{
		ConditionID: "cond1",
		MarketSlug:  "slug1",
		Side:        domain.SideBuy,
		Price:       price,
		SizeShares:  shares,
	}
}

// S2 — cap enforcement: maxUsdPerTrade=50, proportional*1.0, BUY 1000@0.20
// (notional 200) submits 250 shares.
func TestManager_S2_CapEnforcement(t *testing.T) {
	m := risk.New(risk.Config{
		SizingMode:             risk.SizingProportional,
		ProportionalMultiplier: 1.0,
		MaxUsdPerTrade:         50,
	})

	order, skip := m.Evaluate(buyEvent(1000, 0.20), risk.DayTotals{})
	require.Nil(t, skip)
	assert.InDelta(t, 250, order.Shares, 1e-9)
}

func TestManager_BelowMinimumShares_Rejects(t *testing.T) {
	m := risk.New(risk.Config{
		SizingMode:             risk.SizingProportional,
		ProportionalMultiplier: 1.0,
		MinOrderShares:         10,
	})

	_, skip := m.Evaluate(buyEvent(1, 0.5), risk.DayTotals{})
	require.NotNil(t, skip)
	assert.Equal(t, domain.ReasonBelowMinimumShares, skip.Reason)
}

func TestManager_PerMarketCap_Rejects(t *testing.T) {
	m := risk.New(risk.Config{
		SizingMode:             risk.SizingProportional,
		ProportionalMultiplier: 1.0,
		MaxUsdPerMarket:        100,
	})

	totals := risk.DayTotals{PerMarketUsd: map[string]float64{"cond1": 90}}
	_, skip := m.Evaluate(buyEvent(100, 0.5), totals)
	require.NotNil(t, skip)
	assert.Equal(t, domain.ReasonPerMarketCap, skip.Reason)
}

func TestManager_DailyCap_Rejects(t *testing.T) {
	m := risk.New(risk.Config{
		SizingMode:             risk.SizingProportional,
		ProportionalMultiplier: 1.0,
		MaxDailyUsdVolume:      100,
	})

	totals := risk.DayTotals{DailyUsd: 90}
	_, skip := m.Evaluate(buyEvent(100, 0.5), totals)
	require.NotNil(t, skip)
	assert.Equal(t, domain.ReasonDailyCap, skip.Reason)
}

func TestManager_Denylist_Rejects(t *testing.T) {
	m := risk.New(risk.Config{
		SizingMode:             risk.SizingProportional,
		ProportionalMultiplier: 1.0,
		MarketDenylist:         []string{"slug1"},
	})

	_, skip := m.Evaluate(buyEvent(10, 0.5), risk.DayTotals{})
	require.NotNil(t, skip)
	assert.Equal(t, domain.ReasonDenylisted, skip.Reason)
}

func TestManager_Allowlist_RejectsWhenAbsent(t *testing.T) {
	m := risk.New(risk.Config{
		SizingMode:             risk.SizingProportional,
		ProportionalMultiplier: 1.0,
		MarketAllowlist:        []string{"other-slug"},
	})

	_, skip := m.Evaluate(buyEvent(10, 0.5), risk.DayTotals{})
	require.NotNil(t, skip)
	assert.Equal(t, domain.ReasonNotAllowlisted, skip.Reason)
}

// Property 6: reducing a cap never increases the next order's size; raising
// it never decreases it.
func TestManager_CapsMonotone(t *testing.T) {
	lo := risk.New(risk.Config{SizingMode: risk.SizingProportional, ProportionalMultiplier: 1.0, MaxUsdPerTrade: 20})
	hi := risk.New(risk.Config{SizingMode: risk.SizingProportional, ProportionalMultiplier: 1.0, MaxUsdPerTrade: 80})

	loOrder, skip := lo.Evaluate(buyEvent(1000, 0.5), risk.DayTotals{})
	require.Nil(t, skip)
	hiOrder, skip := hi.Evaluate(buyEvent(1000, 0.5), risk.DayTotals{})
	require.Nil(t, skip)

	assert.LessOrEqual(t, loOrder.Shares, hiOrder.Shares)
}
