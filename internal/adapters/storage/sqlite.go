package storage

// sqlite.go — optional historical analytics store (ports.AnalyticsStore).
//
// An append-only mirror of closed trades and equity snapshots for ad-hoc
// SQL querying and long-horizon charting beyond what the downsampled JSON
// chart history keeps. Populated by the snapshot recorder alongside the
// JSON writer; never read back into the live decision path. A store built
// with an empty dsn is a no-op on every method, so its absence never
// changes engine behavior.

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mdelgado/polycopy/internal/domain"
	_ "modernc.org/sqlite"
)

const analyticsSchema = `
CREATE TABLE IF NOT EXISTS trades (
    id            TEXT PRIMARY KEY,
    timestamp     DATETIME NOT NULL,
    token_id      TEXT NOT NULL,
    side          TEXT NOT NULL,
    price         REAL NOT NULL,
    shares        REAL NOT NULL,
    usd_value     REAL NOT NULL,
    fees          REAL NOT NULL DEFAULT 0,
    pnl           REAL,
    target_wallet TEXT NOT NULL,
    trade_id      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
    timestamp      DATETIME PRIMARY KEY,
    balance        REAL NOT NULL,
    realized_pnl   REAL NOT NULL,
    unrealized_pnl REAL NOT NULL,
    total_pnl      REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_target ON trades(target_wallet);
CREATE INDEX IF NOT EXISTS idx_trades_ts     ON trades(timestamp);
`

// AnalyticsStore implements ports.AnalyticsStore using a pure-Go SQLite
// driver. A nil db (empty dsn) makes every method a no-op.
type AnalyticsStore struct {
	db *sql.DB
}

// NewAnalyticsStore opens (or creates) the database at dsn. An empty dsn
// returns a disabled store rather than an error, per storage.dsn="".
func NewAnalyticsStore(dsn string) (*AnalyticsStore, error) {
	if dsn == "" {
		return &AnalyticsStore{}, nil
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewAnalyticsStore: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(analyticsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewAnalyticsStore: apply schema: %w", err)
	}

	return &AnalyticsStore{db: db}, nil
}

// RecordTrade appends a closed/executed trade. No-op when disabled.
func (s *AnalyticsStore) RecordTrade(ctx context.Context, trade domain.Trade) error {
	if s.db == nil {
		return nil
	}
	var pnl any
	if trade.Pnl != nil {
		pnl = *trade.Pnl
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trades
		  (id, timestamp, token_id, side, price, shares, usd_value, fees, pnl, target_wallet, trade_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.Timestamp.UTC(), trade.TokenID, string(trade.Side),
		trade.Price, trade.Shares, trade.UsdValue, trade.Fees, pnl,
		trade.TargetWallet, trade.TradeID,
	)
	if err != nil {
		return fmt.Errorf("storage.RecordTrade: %w", err)
	}
	return nil
}

// RecordSnapshot appends one equity snapshot. No-op when disabled.
func (s *AnalyticsStore) RecordSnapshot(ctx context.Context, snap domain.Snapshot) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (timestamp, balance, realized_pnl, unrealized_pnl, total_pnl)
		VALUES (?, ?, ?, ?, ?)`,
		snap.Timestamp.UTC(), snap.Balance, snap.RealizedPnl, snap.UnrealizedPnl, snap.TotalPnl,
	)
	if err != nil {
		return fmt.Errorf("storage.RecordSnapshot: %w", err)
	}
	return nil
}

// Close closes the underlying connection. No-op when disabled.
func (s *AnalyticsStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
