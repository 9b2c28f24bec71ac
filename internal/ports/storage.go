package ports

import (
	"context"

	"github.com/mdelgado/polycopy/internal/domain"
)

// DataStore is the whole-file JSON persistence contract of §6: every
// document is written atomically (temp file + rename) by its single owning
// component, UTF-8, pretty-printed with 2-space indent.
type DataStore interface {
	// LoadPaperState / SavePaperState own "paper-state.json" (C5).
	LoadPaperState(ctx context.Context) (*domain.PaperState, error)
	SavePaperState(ctx context.Context, state *domain.PaperState) error

	// LoadLiveState / SaveLiveState own "live-state.json" (C9's persisted
	// starting balance and cached stats while in LIVE mode).
	LoadLiveState(ctx context.Context) (*domain.PaperState, error)
	SaveLiveState(ctx context.Context, state *domain.PaperState) error

	// LoadChartHistory / SaveChartHistory own "chart-history.json" (paper)
	// or "live-chart-history.json" (live), selected by the live flag.
	LoadChartHistory(ctx context.Context, live bool) ([]domain.Snapshot, error)
	SaveChartHistory(ctx context.Context, live bool, snaps []domain.Snapshot) error

	// LoadAccounts / SaveAccounts own "accounts.json".
	LoadAccounts(ctx context.Context) ([]domain.AccountConfig, error)
	SaveAccounts(ctx context.Context, accounts []domain.AccountConfig) error

	// AppendDebugStat appends one line to "debug-stats.log"; best-effort.
	AppendDebugStat(ctx context.Context, line string) error
}
