package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/mdelgado/polycopy/internal/adapters/storage"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsStore_RecordTradeAndSnapshot(t *testing.T) {
	store, err := storage.NewAnalyticsStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	pnl := 1.25
	err = store.RecordTrade(ctx, domain.Trade{
		ID:           "t1",
		Timestamp:    time.Now().UTC(),
		TokenID:      "tid_yes",
		Side:         domain.SideBuy,
		Price:        0.6,
		Shares:       10,
		UsdValue:     6,
		TargetWallet: "0xabc",
		TradeID:      "0xhash:tid_yes:BUY:10",
		Pnl:          &pnl,
	})
	require.NoError(t, err)

	err = store.RecordSnapshot(ctx, domain.Snapshot{
		Timestamp:     time.Now().UTC(),
		Balance:       1000,
		RealizedPnl:   1.25,
		UnrealizedPnl: 0,
		TotalPnl:      1.25,
	})
	require.NoError(t, err)
}

func TestAnalyticsStore_DisabledWhenDSNEmpty(t *testing.T) {
	store, err := storage.NewAnalyticsStore("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.RecordTrade(ctx, domain.Trade{ID: "t1"}))
	require.NoError(t, store.RecordSnapshot(ctx, domain.Snapshot{}))
}
