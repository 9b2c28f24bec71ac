package supervisor_test

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
	"github.com/mdelgado/polycopy/internal/application/supervisor"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMetadataProvider struct{}

func (stubMetadataProvider) FetchMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	return domain.Market{Slug: slug}, nil
}
func (stubMetadataProvider) FetchMarketByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	return domain.Market{Tokens: [2]domain.Token{{TokenID: tokenID}}}, nil
}

type noopDedup struct{}

func (noopDedup) HasSeen(target, tradeID string) bool { return false }
func (noopDedup) MarkSeen(target, tradeID string)     {}
func (noopDedup) Load(ctx context.Context) error      { return nil }
func (noopDedup) Flush(ctx context.Context) error     { return nil }

type noopStore struct{}

func (noopStore) LoadPaperState(ctx context.Context) (*domain.PaperState, error) { return nil, nil }
func (noopStore) SavePaperState(ctx context.Context, state *domain.PaperState) error { return nil }
func (noopStore) LoadLiveState(ctx context.Context) (*domain.PaperState, error) { return nil, nil }
func (noopStore) SaveLiveState(ctx context.Context, state *domain.PaperState) error  { return nil }
func (noopStore) LoadChartHistory(ctx context.Context, live bool) ([]domain.Snapshot, error) {
	return nil, nil
}
func (noopStore) SaveChartHistory(ctx context.Context, live bool, snaps []domain.Snapshot) error {
	return nil
}
func (noopStore) LoadAccounts(ctx context.Context) ([]domain.AccountConfig, error) { return nil, nil }
func (noopStore) SaveAccounts(ctx context.Context, accounts []domain.AccountConfig) error {
	return nil
}
func (noopStore) AppendDebugStat(ctx context.Context, line string) error { return nil }

func newHarness(t *testing.T) (*ledger.Ledger, *risk.Manager, *cache.Metadata) {
	t.Helper()
	state := domain.NewPaperState(10000)
	book := ledger.New(state, 0.001)
	riskMgr := risk.New(risk.Config{SizingMode: risk.SizingProportional, ProportionalMultiplier: 1.0})
	meta := cache.NewMetadata(stubMetadataProvider{}, time.Minute)
	return book, riskMgr, meta
}

func newSupervisor(t *testing.T, book *ledger.Ledger, riskMgr *risk.Manager, meta *cache.Metadata) *supervisor.Supervisor {
	t.Helper()
	modeCtl, err := mode.Resolve(context.Background(), domain.AccountConfig{}, false, nil)
	require.NoError(t, err)

	ing := ingest.New(ingest.Config{Targets: []string{"0xabc"}}, nil, stubProvider{}, noopDedup{})
	ex := execute.New(execute.Config{}, nil, nil, meta, book)

	return supervisor.New(
		supervisor.Config{},
		modeCtl,
		ing,
		riskMgr,
		ex,
		book,
		meta,
		nil,
		nil,
		nil,
		noopStore{},
		nil,
		nil,
	)
}

type stubProvider struct{}

func (stubProvider) FetchActivity(ctx context.Context, target string, limit int) ([]domain.ActivityEvent, error) {
	return nil, nil
}

// Drives the core C4->C6->C5 path by calling the risk manager and executor
// directly, on the same ledger/risk/metadata harness the supervisor is
// built from, and checks the S1 BUY leg's paper arithmetic.
func TestSupervisor_PaperBuyThroughRiskAndExecutor(t *testing.T) {
	book, riskMgr, meta := newHarness(t)
	_ = newSupervisor(t, book, riskMgr, meta)

	sized, skip := riskMgr.Evaluate(domain.ActivityEvent{
		TokenID:    "tid",
		TradeID:    "tx1",
		Timestamp:  time.Now(),
		Price:      0.40,
		SizeShares: 100,
		Side:       domain.SideBuy,
	}, risk.DayTotals{Day: risk.DayKey(time.Now()), PerMarketUsd: map[string]float64{}})
	require.Nil(t, skip)

	ex := execute.New(execute.Config{}, nil, nil, meta, book)
	result := ex.Dispatch(context.Background(), sized)
	require.Nil(t, result.Skipped)

	snap := book.Snapshot()
	assert.InDelta(t, 10000-40-0.04, snap.CurrentBalance, 1e-6)
}
