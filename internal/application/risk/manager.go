// Package risk implements the Risk Manager (C4, §4.4): a pure function of
// (event, config, live totals) that sizes a replica order and applies the
// sizing floor, per-trade/per-market/per-day caps, and allow/deny lists, in
// that order. It never mutates state; rejects surface as a domain.SkipDecision.
package risk

import (
	"strings"
	"time"

	"github.com/mdelgado/polycopy/internal/domain"
)

// SizingMode selects how replica order size is derived from the source event.
type SizingMode string

const (
	SizingProportional SizingMode = "proportional"
	SizingFixedUsd      SizingMode = "fixed-usd"
	SizingFixedShares   SizingMode = "fixed-shares"
)

// Config mirrors config.TradingConfig/RiskConfig, flattened for the manager.
type Config struct {
	SizingMode             SizingMode
	FixedUsdSize           float64
	FixedSharesSize        float64
	ProportionalMultiplier float64
	MinOrderUsd            float64
	MinOrderShares         float64
	MaxUsdPerTrade         float64
	MaxUsdPerMarket        float64
	MaxDailyUsdVolume      float64
	MarketAllowlist        []string
	MarketDenylist         []string
}

// DayTotals carries the cumulative notional the manager needs to evaluate
// the per-market and per-day caps. Callers (the supervisor) recompute these
// from the trade log / live order history on a rolling calendar-day basis.
type DayTotals struct {
	Day              string             // YYYY-MM-DD, caller's clock
	PerMarketUsd     map[string]float64 // conditionID -> notional so far today
	DailyUsd         float64
}

// Manager applies §4.4's six-step pipeline.
type Manager struct {
	cfg Config
}

// New builds a risk Manager from cfg.
func New(cfg Config) *Manager {
	if cfg.ProportionalMultiplier <= 0 {
		cfg.ProportionalMultiplier = 1.0
	}
	return &Manager{cfg: cfg}
}

// Evaluate sizes event and applies every rule in §4.4's order, returning
// either a SizedOrder ready for the executor or a SkipDecision naming the
// first rule that rejected it.
func (m *Manager) Evaluate(event domain.ActivityEvent, totals DayTotals) (domain.SizedOrder, *domain.SkipDecision) {
	shares := m.size(event)

	notional := shares * event.Price
	if m.cfg.MinOrderUsd > 0 && notional < m.cfg.MinOrderUsd && event.Price > 0 {
		shares = m.cfg.MinOrderUsd / event.Price
		notional = m.cfg.MinOrderUsd
	}
	if m.cfg.MinOrderShares > 0 && shares < m.cfg.MinOrderShares {
		return domain.SizedOrder{}, &domain.SkipDecision{
			Reason: domain.ReasonBelowMinimumShares,
			Detail: "order below configured minimum shares",
		}
	}

	if m.cfg.MaxUsdPerTrade > 0 && notional > m.cfg.MaxUsdPerTrade {
		shares = m.cfg.MaxUsdPerTrade / event.Price
		notional = m.cfg.MaxUsdPerTrade
	}

	if m.cfg.MaxUsdPerMarket > 0 {
		existing := totals.PerMarketUsd[event.ConditionID]
		if existing+notional > m.cfg.MaxUsdPerMarket {
			return domain.SizedOrder{}, &domain.SkipDecision{
				Reason: domain.ReasonPerMarketCap,
				Detail: "would exceed per-market daily cap",
			}
		}
	}

	if m.cfg.MaxDailyUsdVolume > 0 && totals.DailyUsd+notional > m.cfg.MaxDailyUsdVolume {
		return domain.SizedOrder{}, &domain.SkipDecision{
			Reason: domain.ReasonDailyCap,
			Detail: "would exceed daily volume cap",
		}
	}

	if listed(m.cfg.MarketDenylist, event.MarketSlug, event.ConditionID) {
		return domain.SizedOrder{}, &domain.SkipDecision{
			Reason: domain.ReasonDenylisted,
			Detail: "market on denylist",
		}
	}
	if len(m.cfg.MarketAllowlist) > 0 && !listed(m.cfg.MarketAllowlist, event.MarketSlug, event.ConditionID) {
		return domain.SizedOrder{}, &domain.SkipDecision{
			Reason: domain.ReasonNotAllowlisted,
			Detail: "market not on allowlist",
		}
	}

	return domain.SizedOrder{Event: event, Shares: shares}, nil
}

// size applies only the sizing-mode step (no floor/cap), per §4.4 step 1.
func (m *Manager) size(event domain.ActivityEvent) float64 {
	switch m.cfg.SizingMode {
	case SizingFixedUsd:
		if event.Price <= 0 {
			return 0
		}
		return m.cfg.FixedUsdSize / event.Price
	case SizingFixedShares:
		return m.cfg.FixedSharesSize
	default:
		return event.SizeShares * m.cfg.ProportionalMultiplier
	}
}

func listed(list []string, slug, conditionID string) bool {
	for _, v := range list {
		if strings.EqualFold(v, slug) || strings.EqualFold(v, conditionID) {
			return true
		}
	}
	return false
}

// DayKey returns t's calendar day in the fixed YYYY-MM-DD form DayTotals uses.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
