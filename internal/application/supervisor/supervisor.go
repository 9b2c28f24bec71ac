// Package supervisor implements the Supervisor (C12, §4.9): component
// lifecycles, the core C7->C1->C8->C4->C6->C5/C9 pipeline wiring, and the
// periodic sweeps (resolution, snapshot, memory reap, stop-loss,
// auto-redeem) that ride alongside it.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mdelgado/polycopy/internal/application/cache"
	"github.com/mdelgado/polycopy/internal/application/execute"
	"github.com/mdelgado/polycopy/internal/application/ingest"
	"github.com/mdelgado/polycopy/internal/application/ledger"
	"github.com/mdelgado/polycopy/internal/application/mode"
	"github.com/mdelgado/polycopy/internal/application/risk"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/mdelgado/polycopy/internal/ports"
)

const (
	snapshotInterval   = 2 * time.Minute
	resolutionInterval = 30 * time.Second
	reapInterval       = 2 * time.Minute

	// §5: snapshot history <= 5040 points, >12h-old decimated 10:1.
	maxSnapshots   = 5040
	decimateOlder  = 12 * time.Hour
	decimateFactor = 10

	maxErrors = 50
)

// Config bundles every tunable the supervisor threads through to its
// components and sweeps.
type Config struct {
	Ingest     ingest.Config
	Risk       risk.Config
	Execute    execute.Config
	StopLoss   StopLossConfig
	AutoRedeem AutoRedeemConfig
}

// StopLossConfig mirrors config.StopLossConfig.
type StopLossConfig struct {
	Enabled  bool
	Percent  float64
	Interval time.Duration
}

// AutoRedeemConfig mirrors config.AutoRedeemConfig.
type AutoRedeemConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Supervisor owns every component's lifecycle and the wiring between them.
type Supervisor struct {
	cfg Config

	modeCtl      *mode.Controller
	ingester     *ingest.Ingester
	risk         *risk.Manager
	executor     *execute.Executor
	book         *ledger.Ledger
	metadata     *cache.Metadata
	balances     *cache.Balance // nil in PAPER/DRY_RUN
	tradeHistory ports.TradeHistoryProvider // nil in PAPER/DRY_RUN; C9's LIVE replay source
	redeemer     ports.RedeemExecutor
	store        ports.DataStore
	analytics    ports.AnalyticsStore // may be nil, §11
	notifier     ports.Notifier

	mu         sync.Mutex
	dayTotals  risk.DayTotals
	snapshots  []domain.Snapshot
	errorCount int
}

// New assembles a Supervisor from already-constructed components. The
// caller (cmd/copytrader) is responsible for resolving mode and building
// the LIVE-only dependencies (balances, redeemer) before calling New.
func New(
	cfg Config,
	modeCtl *mode.Controller,
	ingester *ingest.Ingester,
	riskManager *risk.Manager,
	executor *execute.Executor,
	book *ledger.Ledger,
	metadata *cache.Metadata,
	balances *cache.Balance,
	tradeHistory ports.TradeHistoryProvider,
	redeemer ports.RedeemExecutor,
	store ports.DataStore,
	analytics ports.AnalyticsStore,
	notifier ports.Notifier,
) *Supervisor {
	return &Supervisor{
		cfg:          cfg,
		modeCtl:      modeCtl,
		ingester:     ingester,
		risk:         riskManager,
		executor:     executor,
		book:         book,
		metadata:     metadata,
		balances:     balances,
		tradeHistory: tradeHistory,
		redeemer:     redeemer,
		store:        store,
		analytics:    analytics,
		notifier:     notifier,
		dayTotals:    risk.DayTotals{Day: risk.DayKey(time.Now()), PerMarketUsd: make(map[string]float64)},
	}
}

// Run is start()+stop() per §4.9: installs the ingester, arms every timer,
// and blocks until ctx is cancelled, at which point every task drains
// cooperatively and state is flushed.
func (s *Supervisor) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error { return s.ingester.Run(gctx) })
	group.Go(func() error { s.drainPipeline(gctx); return nil })
	group.Go(func() error { s.runTimer(gctx, snapshotInterval, s.takeSnapshot); return nil })
	group.Go(func() error { s.runTimer(gctx, resolutionInterval, s.resolveSettledPositions); return nil })
	group.Go(func() error { s.runTimer(gctx, reapInterval, s.reap); return nil })

	if s.cfg.StopLoss.Enabled {
		interval := s.cfg.StopLoss.Interval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		group.Go(func() error { s.runTimer(gctx, interval, s.sweepStopLoss); return nil })
	}
	if s.cfg.AutoRedeem.Enabled && s.redeemer != nil {
		interval := s.cfg.AutoRedeem.Interval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		group.Go(func() error { s.runTimer(gctx, interval, s.sweepAutoRedeem); return nil })
	}

	err := group.Wait()
	s.flush(context.Background())
	return err
}

func (s *Supervisor) runTimer(ctx context.Context, interval time.Duration, tick func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// drainPipeline is C7->C1(already applied in ingester)->C8(already
// applied)->C4->C6->C5/C9, the core replication loop.
func (s *Supervisor) drainPipeline(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.ingester.Events():
			if !ok {
				return
			}
			s.handleEvent(ctx, event)
		}
	}
}

func (s *Supervisor) handleEvent(ctx context.Context, event domain.ActivityEvent) {
	event = normalizeSplitRedeem(event)

	s.mu.Lock()
	day := risk.DayKey(event.Timestamp)
	if day != s.dayTotals.Day {
		s.dayTotals = risk.DayTotals{Day: day, PerMarketUsd: make(map[string]float64)}
	}
	totals := s.dayTotals
	s.mu.Unlock()

	sized, skip := s.risk.Evaluate(event, totals)
	if skip != nil {
		s.notifySkip(ctx, event, *skip)
		return
	}

	result := s.executor.Dispatch(ctx, sized)
	if result.Skipped != nil {
		s.notifySkip(ctx, event, *result.Skipped)
		return
	}

	s.mu.Lock()
	s.dayTotals.DailyUsd += result.Trade.UsdValue
	s.dayTotals.PerMarketUsd[event.ConditionID] += result.Trade.UsdValue
	s.mu.Unlock()

	if s.analytics != nil {
		if err := s.analytics.RecordTrade(ctx, result.Trade); err != nil {
			slog.Warn("supervisor: analytics record trade failed", "error", err)
		}
	}
}

// normalizeSplitRedeem implements S4: SPLIT is a BUY at max(price, 0.5);
// REDEEM/MERGE close out via ReplicaSide's SELL mapping, handled by C6.
func normalizeSplitRedeem(event domain.ActivityEvent) domain.ActivityEvent {
	if event.ActivityType == domain.ActivitySplit && event.Price < 0.5 {
		event.Price = 0.5
	}
	return event
}

func (s *Supervisor) notifySkip(ctx context.Context, event domain.ActivityEvent, skip domain.SkipDecision) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifySkip(ctx, event, skip); err != nil {
		slog.Warn("supervisor: notify skip failed", "error", err)
	}
}

// currentState is every read path's single entry point (§4.8's critical
// invariant): in LIVE mode it replays the exchange's own trade history
// through C9 rather than ever falling through to the paper ledger; in
// PAPER/DRY_RUN it reads C5 directly. modeCtl.GuardRead is the actual
// authority here, not just IsLive, so a source/mode mismatch returns empty
// instead of silently reading the wrong side.
func (s *Supervisor) currentState(ctx context.Context) *domain.PaperState {
	live := s.modeCtl.IsLive()
	if !s.modeCtl.GuardRead(live) {
		return domain.NewPaperState(0)
	}
	if !live {
		return s.book.Snapshot()
	}
	state, err := s.liveSnapshot(ctx)
	if err != nil {
		slog.Warn("supervisor: live snapshot unavailable, returning empty", "error", err)
		return domain.NewPaperState(0)
	}
	return state
}

// liveSnapshot rebuilds positions and stats from the exchange's own fill
// history via the P&L Aggregator (C9, §4.7); this is LIVE mode's only read
// path, since the exchange, not this process, is the system of record.
func (s *Supervisor) liveSnapshot(ctx context.Context) (*domain.PaperState, error) {
	if s.tradeHistory == nil {
		return nil, fmt.Errorf("supervisor: live mode has no trade history provider")
	}
	trades, err := s.tradeHistory.FetchTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("supervisor: fetch trades: %w", err)
	}

	currentPrices := make(map[string]float64)
	markets := make(map[string]domain.Market)
	for _, t := range trades {
		if _, ok := markets[t.TokenID]; ok {
			continue
		}
		mkt, err := s.metadata.ByToken(ctx, t.TokenID)
		if err != nil {
			continue
		}
		markets[t.TokenID] = mkt
		if tok, ok := mkt.TokenByID(t.TokenID); ok {
			currentPrices[t.TokenID] = tok.Price
		}
	}

	positions, stats := ledger.Aggregate(trades, currentPrices)
	for tokenID, pos := range positions {
		if mkt, ok := markets[tokenID]; ok {
			pos.ConditionID = mkt.ConditionID
			if tok, found := mkt.TokenByID(tokenID); found {
				pos.Outcome = tok.Outcome
			}
			positions[tokenID] = pos
		}
	}

	var balance float64
	if s.balances != nil {
		if bal, err := s.balances.USDC(ctx); err == nil {
			balance = bal
		}
	}

	return &domain.PaperState{
		CurrentBalance: balance,
		Positions:      positions,
		Trades:         trades,
		Stats:          stats,
	}, nil
}

// resolveSettledPositions is the resolution sweep (§4.5): any open
// position whose market has resolved is settled at the outcome payout.
// In LIVE mode this only observes the exchange-derived view via
// currentState; the exchange itself, not this ledger, owns settlement.
func (s *Supervisor) resolveSettledPositions(ctx context.Context) {
	snap := s.currentState(ctx)
	for tokenID, pos := range snap.Positions {
		mkt, err := s.metadata.ByToken(ctx, tokenID)
		if err != nil || !mkt.Resolved {
			continue
		}
		if s.modeCtl.IsLive() {
			continue // LIVE settlement happens on-chain; this process never mutates it
		}
		payout := mkt.Payout(pos.Outcome)
		s.book.SettlePosition(tokenID, payout)
	}
}

func (s *Supervisor) takeSnapshot(ctx context.Context) {
	snap := s.currentState(ctx)
	unrealized := snap.UnrealizedPnl()
	point := domain.Snapshot{
		Timestamp:     time.Now(),
		Balance:       snap.CurrentBalance,
		RealizedPnl:   snap.Stats.TotalRealizedPnl,
		UnrealizedPnl: unrealized,
		TotalPnl:      snap.Stats.TotalRealizedPnl + unrealized,
	}

	s.mu.Lock()
	s.snapshots = append(s.snapshots, point)
	s.snapshots = downsample(s.snapshots)
	s.mu.Unlock()

	if s.analytics != nil {
		if err := s.analytics.RecordSnapshot(ctx, point); err != nil {
			slog.Warn("supervisor: analytics record snapshot failed", "error", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyStats(ctx, s.modeCtl.Mode(), snap); err != nil {
			slog.Warn("supervisor: notify stats failed", "error", err)
		}
	}
}

// downsample implements §5: points older than 12h are decimated 10:1, and
// the total series never exceeds maxSnapshots.
func downsample(points []domain.Snapshot) []domain.Snapshot {
	cutoff := time.Now().Add(-decimateOlder)
	var old, recent []domain.Snapshot
	for _, p := range points {
		if p.Timestamp.Before(cutoff) {
			old = append(old, p)
		} else {
			recent = append(recent, p)
		}
	}
	if len(old) > decimateFactor {
		decimated := make([]domain.Snapshot, 0, len(old)/decimateFactor+1)
		for i := 0; i < len(old); i += decimateFactor {
			decimated = append(decimated, old[i])
		}
		old = decimated
	}
	merged := append(old, recent...)
	if len(merged) > maxSnapshots {
		merged = merged[len(merged)-maxSnapshots:]
	}
	return merged
}

// reap is the memory reaper (§4.9): trims the ledger's trades/positions and
// caps the in-memory error counter.
func (s *Supervisor) reap(ctx context.Context) {
	s.book.Trim()
	s.mu.Lock()
	if s.errorCount > maxErrors {
		s.errorCount = maxErrors
	}
	s.mu.Unlock()
}

// sweepStopLoss is §11's supplemented stop-loss sweep: a drawdown beyond
// the configured percent synthesizes a full-size SELL through the normal
// pipeline, so it remains subject to risk caps and dedup.
func (s *Supervisor) sweepStopLoss(ctx context.Context) {
	snap := s.currentState(ctx)
	windowStart := strconv.FormatInt(time.Now().Unix(), 10)

	for tokenID, pos := range snap.Positions {
		if pos.CurrentPrice == nil || pos.Shares <= 0 {
			continue
		}
		avgEntry := pos.AvgEntryPrice()
		if avgEntry <= 0 {
			continue
		}
		drawdown := (avgEntry - *pos.CurrentPrice) / avgEntry
		if drawdown < s.cfg.StopLoss.Percent {
			continue
		}

		event := domain.ActivityEvent{
			TargetWallet: "stoploss",
			TradeID:      "stoploss-" + tokenID + "-" + windowStart,
			Timestamp:    time.Now(),
			TokenID:      tokenID,
			ConditionID:  pos.ConditionID,
			Outcome:      pos.Outcome,
			Side:         domain.SideSell,
			Price:        *pos.CurrentPrice,
			SizeShares:   pos.Shares,
			ActivityType: domain.ActivityTrade,
		}
		s.handleEvent(ctx, event)
	}
}

// sweepAutoRedeem is §11's supplemented auto-redeem sweep: every
// settled-but-unredeemed position is redeemed on-chain; failures are
// logged and retried next tick, never fatal.
func (s *Supervisor) sweepAutoRedeem(ctx context.Context) {
	snap := s.currentState(ctx)
	for tokenID, pos := range snap.Positions {
		mkt, err := s.metadata.ByToken(ctx, tokenID)
		if err != nil || !mkt.Resolved {
			continue
		}
		if _, err := s.redeemer.Redeem(ctx, pos.ConditionID); err != nil {
			slog.Warn("supervisor: auto-redeem failed, will retry", "conditionId", pos.ConditionID, "error", err)
		}
	}
}

func (s *Supervisor) flush(ctx context.Context) {
	if err := s.book.Flush(ctx, s.saveState); err != nil {
		slog.Warn("supervisor: final state flush failed", "error", err)
	}
	if s.analytics != nil {
		if err := s.analytics.Close(); err != nil {
			slog.Warn("supervisor: analytics close failed", "error", err)
		}
	}
}

func (s *Supervisor) saveState(ctx context.Context, state *domain.PaperState) error {
	if s.modeCtl.IsLive() {
		return s.store.SaveLiveState(ctx, state)
	}
	return s.store.SavePaperState(ctx, state)
}
