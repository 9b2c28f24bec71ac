// Package ledger implements the Paper Ledger (C5, §4.5) and the P&L
// Aggregator (C9, §4.7): the single-writer owner of domain.PaperState for
// paper mode, plus the FIFO replay that derives realized/unrealized P&L
// from a trade log for live mode (where the exchange, not this ledger, is
// the system of record).
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mdelgado/polycopy/internal/domain"
)

const (
	// maxTrades / trimTarget implement §5's "Trades <= 500 (0.75 truncation)".
	maxTrades  = 500
	trimTarget = 375

	// maxPositions implements §5's "Positions <= 200 (LRU by openedAt)".
	maxPositions = 200
)

// Ledger owns one domain.PaperState (paper or live mirror) and is the only
// component that mutates it, per §3's ownership rule.
type Ledger struct {
	mu      sync.Mutex
	state   *domain.PaperState
	feeRate float64
	dirty   bool
}

// New wraps an existing state (as loaded from disk, or fresh via
// domain.NewPaperState) with the fee rate applied to every fill.
func New(state *domain.PaperState, feeRate float64) *Ledger {
	return &Ledger{state: state, feeRate: feeRate}
}

// Snapshot returns a shallow copy of the current state for read-only use
// (notifier, snapshot recorder). The Positions map and Trades slice are
// copied so callers never race with a concurrent mutation.
func (l *Ledger) Snapshot() *domain.PaperState {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions := make(map[string]domain.Position, len(l.state.Positions))
	for k, v := range l.state.Positions {
		positions[k] = v
	}
	trades := make([]domain.Trade, len(l.state.Trades))
	copy(trades, l.state.Trades)

	return &domain.PaperState{
		StartingBalance: l.state.StartingBalance,
		CurrentBalance:  l.state.CurrentBalance,
		Positions:       positions,
		Trades:          trades,
		Stats:           l.state.Stats,
	}
}

// Dirty reports whether state has changed since the last ClearDirty, for
// the supervisor's debounced writer (§4.5 "writes are debounced ~500ms").
func (l *Ledger) Dirty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty
}

// ClearDirty marks the state as flushed.
func (l *Ledger) ClearDirty() {
	l.mu.Lock()
	l.dirty = false
	l.mu.Unlock()
}

// Buy applies a BUY for shares at event.Price, pre-checking available
// balance against cost+fees, per §4.5.
func (l *Ledger) Buy(event domain.ActivityEvent, shares float64) (domain.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cost := shares * event.Price
	fees := cost * l.feeRate
	if l.state.CurrentBalance < cost+fees {
		return domain.Trade{}, fmt.Errorf("ledger.Buy: %w", domain.ErrInsufficientFunds)
	}

	l.state.CurrentBalance -= cost + fees

	pos := l.state.Positions[event.TokenID]
	pos.TokenID = event.TokenID
	pos.ConditionID = event.ConditionID
	pos.Outcome = event.Outcome
	if pos.Shares == 0 {
		pos.OpenedAt = event.Timestamp
	}
	pos.Shares += shares
	// Fees fold into the cost basis so a later SELL's pnl nets them out
	// (§4.5/§8 Property 4: the fee term must survive into realized pnl).
	pos.TotalCost += cost + fees
	pos.FeesPaid += fees
	l.state.Positions[event.TokenID] = pos
	l.state.Stats = l.state.Stats.AddFees(fees)

	trade := domain.Trade{
		ID:           newTradeID(event),
		Timestamp:    event.Timestamp,
		TokenID:      event.TokenID,
		Side:         domain.SideBuy,
		Price:        event.Price,
		Shares:       shares,
		UsdValue:     cost,
		Fees:         fees,
		TargetWallet: event.TargetWallet,
		TradeID:      event.TradeID,
	}
	l.appendTrade(trade)
	l.dirty = true
	return trade, nil
}

// Sell applies a SELL for up to shares of the position, per §4.5: proceeds
// and pnl are computed against the position's weighted-average cost, and
// the position is deleted once it reaches zero shares.
func (l *Ledger) Sell(event domain.ActivityEvent, shares float64) (domain.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.state.Positions[event.TokenID]
	if !ok || pos.Shares <= 0 {
		return domain.Trade{}, fmt.Errorf("ledger.Sell: %w", domain.ErrInsufficientShares)
	}

	sellShares := shares
	if sellShares > pos.Shares {
		sellShares = pos.Shares
	}
	proceeds := sellShares * event.Price
	fees := proceeds * l.feeRate
	entryValue := pos.TotalCost * (sellShares / pos.Shares)
	pnl := proceeds - entryValue - fees

	l.state.CurrentBalance += proceeds - fees
	pos.Shares -= sellShares
	pos.TotalCost -= entryValue
	pos.FeesPaid += fees

	if pos.Shares <= 0 {
		pos.Settled = true
		pos.SettlementPnl = pnl
		delete(l.state.Positions, event.TokenID)
	} else {
		l.state.Positions[event.TokenID] = pos
	}

	l.state.Stats = l.state.Stats.ApplyRealizedPnl(pnl, fees)

	trade := domain.Trade{
		ID:           newTradeID(event),
		Timestamp:    event.Timestamp,
		TokenID:      event.TokenID,
		Side:         domain.SideSell,
		Price:        event.Price,
		Shares:       sellShares,
		UsdValue:     proceeds,
		Fees:         fees,
		Pnl:          &pnl,
		TargetWallet: event.TargetWallet,
		TradeID:      event.TradeID,
	}
	l.appendTrade(trade)
	l.dirty = true
	return trade, nil
}

// UpdatePrice records tokenID's current price for unrealized P&L and the
// notifier's table, without otherwise touching the position.
func (l *Ledger) UpdatePrice(tokenID string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.state.Positions[tokenID]
	if !ok {
		return
	}
	p := price
	pos.CurrentPrice = &p
	l.state.Positions[tokenID] = pos
}

// SettlePosition closes tokenID against a resolved market's payout, per the
// resolution sweep (§4.5). Idempotent: a missing position is a no-op.
func (l *Ledger) SettlePosition(tokenID string, payout float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.state.Positions[tokenID]
	if !ok {
		return
	}
	settlementPnl := pos.Shares*payout - pos.TotalCost
	l.state.CurrentBalance += pos.Shares * payout
	l.state.Stats = l.state.Stats.ApplyRealizedPnl(settlementPnl, 0)
	delete(l.state.Positions, tokenID)
	l.dirty = true
}

// Trim enforces §5's resource bounds: positions capped at 200 (LRU by
// openedAt), trades capped at 500 with 0.75 truncation on overflow. Called
// periodically by the supervisor's memory reaper.
func (l *Ledger) Trim() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.state.Trades) > maxTrades {
		l.state.Trades = l.state.Trades[len(l.state.Trades)-trimTarget:]
		l.dirty = true
	}

	if len(l.state.Positions) > maxPositions {
		type keyed struct {
			tokenID  string
			openedAt time.Time
		}
		all := make([]keyed, 0, len(l.state.Positions))
		for id, pos := range l.state.Positions {
			all = append(all, keyed{id, pos.OpenedAt})
		}
		sort.Slice(all, func(i, j int) bool { return all[i].openedAt.Before(all[j].openedAt) })
		drop := len(all) - maxPositions
		for i := 0; i < drop; i++ {
			delete(l.state.Positions, all[i].tokenID)
		}
		l.dirty = true
	}
}

func (l *Ledger) appendTrade(t domain.Trade) {
	l.state.Trades = append(l.state.Trades, t)
}

// Flush persists state via store if dirty, clearing the dirty flag on
// success. Intended to be called on the supervisor's debounce tick.
func (l *Ledger) Flush(ctx context.Context, save func(ctx context.Context, state *domain.PaperState) error) error {
	if !l.Dirty() {
		return nil
	}
	snap := l.Snapshot()
	if err := save(ctx, snap); err != nil {
		return fmt.Errorf("ledger.Flush: %w", err)
	}
	l.ClearDirty()
	return nil
}

func newTradeID(event domain.ActivityEvent) string {
	return event.TradeID + ":" + string(event.ReplicaSide())
}
