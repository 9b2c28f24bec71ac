package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/mdelgado/polycopy/internal/application/cache"
	"github.com/mdelgado/polycopy/internal/application/execute"
	"github.com/mdelgado/polycopy/internal/application/ingest"
	"github.com/mdelgado/polycopy/internal/application/ledger"
	"github.com/mdelgado/polycopy/internal/application/mode"
	"github.com/mdelgado/polycopy/internal/application/risk"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveTestMetadataProvider struct{}

func (liveTestMetadataProvider) FetchMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	return domain.Market{Slug: slug}, nil
}
func (liveTestMetadataProvider) FetchMarketByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	return domain.Market{
		ConditionID: "cond-" + tokenID,
		Tokens:      [2]domain.Token{{TokenID: tokenID, Outcome: domain.OutcomeYes, Price: 0.5}},
	}, nil
}

type liveTestIngestProvider struct{}

func (liveTestIngestProvider) FetchActivity(ctx context.Context, target string, limit int) ([]domain.ActivityEvent, error) {
	return nil, nil
}

type liveTestTradeHistory struct {
	trades []domain.Trade
}

func (h liveTestTradeHistory) FetchTrades(ctx context.Context) ([]domain.Trade, error) {
	return h.trades, nil
}

type liveTestDedup struct{}

func (liveTestDedup) HasSeen(target, tradeID string) bool { return false }
func (liveTestDedup) MarkSeen(target, tradeID string)     {}
func (liveTestDedup) Load(ctx context.Context) error      { return nil }
func (liveTestDedup) Flush(ctx context.Context) error     { return nil }

type liveTestStore struct{}

func (liveTestStore) LoadPaperState(ctx context.Context) (*domain.PaperState, error) { return nil, nil }
func (liveTestStore) SavePaperState(ctx context.Context, state *domain.PaperState) error {
	return nil
}
func (liveTestStore) LoadLiveState(ctx context.Context) (*domain.PaperState, error) { return nil, nil }
func (liveTestStore) SaveLiveState(ctx context.Context, state *domain.PaperState) error {
	return nil
}
func (liveTestStore) LoadChartHistory(ctx context.Context, live bool) ([]domain.Snapshot, error) {
	return nil, nil
}
func (liveTestStore) SaveChartHistory(ctx context.Context, live bool, snaps []domain.Snapshot) error {
	return nil
}
func (liveTestStore) LoadAccounts(ctx context.Context) ([]domain.AccountConfig, error) {
	return nil, nil
}
func (liveTestStore) SaveAccounts(ctx context.Context, accounts []domain.AccountConfig) error {
	return nil
}
func (liveTestStore) AppendDebugStat(ctx context.Context, line string) error { return nil }

// Property 5: a LIVE-mode read must come from the exchange's own fill
// history via C9 (ledger.Aggregate), never from the paper ledger's
// incrementally-maintained state, which is built here with a deliberately
// implausible balance so any fall-through is obvious.
func TestSupervisor_CurrentState_LiveNeverFallsThroughToPaperLedger(t *testing.T) {
	ctx := context.Background()

	staleState := domain.NewPaperState(999999)
	book := ledger.New(staleState, 0.001)

	modeCtl, err := mode.Resolve(ctx, domain.AccountConfig{
		ID:            "acct1",
		PrivateKeyHex: "0xkey",
		APIKey:        "apikey",
	}, false, func(ctx context.Context, account domain.AccountConfig) error { return nil })
	require.NoError(t, err)
	require.True(t, modeCtl.IsLive())

	meta := cache.NewMetadata(liveTestMetadataProvider{}, time.Minute)
	riskMgr := risk.New(risk.Config{SizingMode: risk.SizingProportional, ProportionalMultiplier: 1.0})
	ing := ingest.New(ingest.Config{Targets: []string{"0xabc"}}, nil, liveTestIngestProvider{}, liveTestDedup{})
	ex := execute.New(execute.Config{}, nil, nil, meta, book)

	base := time.Now().Add(-time.Hour)
	history := liveTestTradeHistory{trades: []domain.Trade{
		{TokenID: "tid", Side: domain.SideBuy, Price: 0.40, Shares: 100, Fees: 0.04, Timestamp: base},
	}}

	sup := New(
		Config{},
		modeCtl,
		ing,
		riskMgr,
		ex,
		book,
		meta,
		nil,
		history,
		nil,
		liveTestStore{},
		nil,
		nil,
	)

	snap := sup.currentState(ctx)

	assert.NotEqual(t, 999999.0, snap.CurrentBalance, "must not read the stale paper balance")
	require.Contains(t, snap.Positions, "tid")
	assert.InDelta(t, 40.04, snap.Positions["tid"].TotalCost, 1e-6)
	assert.Equal(t, "cond-tid", snap.Positions["tid"].ConditionID, "live positions enrich ConditionID from the metadata cache")
}

// In PAPER mode currentState reads the paper ledger directly and never
// reaches liveSnapshot, which with no trade history provider would return
// an empty state with balance 0.
func TestSupervisor_CurrentState_PaperModeNeverCallsLiveSnapshot(t *testing.T) {
	ctx := context.Background()

	state := domain.NewPaperState(10000)
	book := ledger.New(state, 0.001)

	modeCtl, err := mode.Resolve(ctx, domain.AccountConfig{}, false, nil)
	require.NoError(t, err)
	require.False(t, modeCtl.IsLive())

	meta := cache.NewMetadata(liveTestMetadataProvider{}, time.Minute)
	riskMgr := risk.New(risk.Config{SizingMode: risk.SizingProportional, ProportionalMultiplier: 1.0})
	ing := ingest.New(ingest.Config{Targets: []string{"0xabc"}}, nil, liveTestIngestProvider{}, liveTestDedup{})
	ex := execute.New(execute.Config{}, nil, nil, meta, book)

	sup := New(
		Config{},
		modeCtl,
		ing,
		riskMgr,
		ex,
		book,
		meta,
		nil,
		nil,
		nil,
		liveTestStore{},
		nil,
		nil,
	)

	snap := sup.currentState(ctx)
	assert.InDelta(t, 10000, snap.CurrentBalance, 1e-6)
}
