package ports

import (
	"context"

	"github.com/mdelgado/polycopy/internal/domain"
)

// TradeHistoryProvider fetches this account's own fill history from the
// exchange: the source of truth the P&L Aggregator (C9, §4.7) replays in
// LIVE mode. LIVE never reads the paper ledger's incrementally-maintained
// state, since the exchange, not this process, is the system of record.
type TradeHistoryProvider interface {
	FetchTrades(ctx context.Context) ([]domain.Trade, error)
}
