package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mdelgado/polycopy/config"
	"github.com/mdelgado/polycopy/internal/adapters/notify"
	"github.com/mdelgado/polycopy/internal/adapters/onchain"
	"github.com/mdelgado/polycopy/internal/adapters/polymarket"
	"github.com/mdelgado/polycopy/internal/adapters/storage"
	"github.com/mdelgado/polycopy/internal/application/cache"
	"github.com/mdelgado/polycopy/internal/application/execute"
	"github.com/mdelgado/polycopy/internal/application/ingest"
	"github.com/mdelgado/polycopy/internal/application/ledger"
	"github.com/mdelgado/polycopy/internal/application/mode"
	"github.com/mdelgado/polycopy/internal/application/risk"
	"github.com/mdelgado/polycopy/internal/application/supervisor"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/mdelgado/polycopy/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	modeOverride := flag.String("mode", "", "override configured mode: paper|live|dry-run")
	dataDir := flag.String("data-dir", "", "override configured data directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *modeOverride != "" {
		cfg.Mode = *modeOverride
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	setupLogger(cfg.Log)

	slog.Info("copytrader starting", "config", *configPath, "mode", cfg.Mode, "targets", len(cfg.Targets))

	jsonStore, err := storage.NewJSONStore(cfg.Storage.DataDir)
	if err != nil {
		slog.Error("failed to open data dir", "err", err, "dir", cfg.Storage.DataDir)
		os.Exit(1)
	}

	var analytics ports.AnalyticsStore
	if cfg.Storage.AnalyticsDSN != "" {
		store, err := storage.NewAnalyticsStore(cfg.Storage.AnalyticsDSN)
		if err != nil {
			slog.Warn("analytics store disabled: failed to open", "err", err, "dsn", cfg.Storage.AnalyticsDSN)
		} else {
			analytics = store
		}
	}

	dedup := storage.NewDedupStore(jsonStore)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := dedup.Load(ctx); err != nil {
		slog.Warn("dedup store load failed, starting empty", "err", err)
	}

	metadataClient := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.API.DataBase)
	metadataCache := cache.NewMetadata(metadataClient, 5*time.Minute)

	var (
		liveExecutor ports.OrderExecutor
		balanceCache *cache.Balance
		tradeHistory ports.TradeHistoryProvider
		redeemer     ports.RedeemExecutor
	)

	dryRun := cfg.Risk.DryRun || cfg.Mode == "dry-run"
	initLive := func(ctx context.Context, account domain.AccountConfig) error {
		auth, err := polymarket.NewAuthClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.API.DataBase, account.PrivateKeyHex)
		if err != nil {
			return err
		}
		trading, err := polymarket.NewTradingClient(auth, firstOrEmpty(cfg.API.ChainRPC))
		if err != nil {
			return err
		}
		redeem, err := onchain.NewRedeemClient(firstOrEmpty(cfg.API.ChainRPC), account.PrivateKeyHex)
		if err != nil {
			return err
		}
		liveExecutor = trading
		balanceCache = cache.NewBalance(trading)
		tradeHistory = trading
		redeemer = redeem
		return nil
	}

	modeCtl, err := mode.Resolve(ctx, cfg.Account.Domain(), dryRun, initLive)
	if err != nil {
		slog.Error("mode resolution failed, refusing to start", "err", err)
		os.Exit(1)
	}
	slog.Info("mode resolved", "mode", modeCtl.Mode())

	book, err := loadLedger(ctx, jsonStore, modeCtl, cfg)
	if err != nil {
		slog.Error("failed to load ledger state", "err", err)
		os.Exit(1)
	}

	riskMgr := risk.New(risk.Config{
		SizingMode:             risk.SizingMode(cfg.Trading.SizingMode),
		FixedUsdSize:           cfg.Trading.FixedUsdSize,
		FixedSharesSize:        cfg.Trading.FixedSharesSize,
		ProportionalMultiplier: cfg.Trading.ProportionalMultiplier,
		MinOrderUsd:            cfg.Trading.MinOrderSize,
		MinOrderShares:         cfg.Trading.MinOrderShares,
		MaxUsdPerTrade:         cfg.Risk.MaxUsdPerTrade,
		MaxUsdPerMarket:        cfg.Risk.MaxUsdPerMarket,
		MaxDailyUsdVolume:      cfg.Risk.MaxDailyUsdVolume,
		MarketAllowlist:        cfg.Risk.MarketAllowlist,
		MarketDenylist:         cfg.Risk.MarketDenylist,
	})

	executor := execute.New(execute.Config{
		Slippage: cfg.Trading.Slippage,
	}, liveExecutor, balanceCache, metadataCache, book)

	feed := polymarket.NewActivityFeed(cfg.API.WSBase, cfg.Targets)
	ingester := ingest.New(ingest.Config{
		Targets:       cfg.Targets,
		PollInterval:  cfg.PollingInterval(),
		TradeLimit:    cfg.Polling.TradeLimit,
		BaseBackoffMs: time.Duration(cfg.Polling.BaseBackoffMs) * time.Millisecond,
		AggWindow:     cfg.AggregationWindow(),
	}, feed, metadataClient, dedup)

	notifier := notify.NewConsole(true)

	sup := supervisor.New(
		supervisor.Config{
			StopLoss: supervisor.StopLossConfig{
				Enabled:  cfg.StopLoss.Enabled,
				Percent:  cfg.StopLoss.Percent,
				Interval: cfg.StopLossInterval(),
			},
			AutoRedeem: supervisor.AutoRedeemConfig{
				Enabled:  cfg.AutoRedeem.Enabled,
				Interval: cfg.AutoRedeemInterval(),
			},
		},
		modeCtl,
		ingester,
		riskMgr,
		executor,
		book,
		metadataCache,
		balanceCache,
		tradeHistory,
		redeemer,
		jsonStore,
		analytics,
		notifier,
	)

	if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("supervisor exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("copytrader stopped cleanly")
}

func loadLedger(ctx context.Context, store *storage.JSONStore, modeCtl *mode.Controller, cfg *config.Config) (*ledger.Ledger, error) {
	var (
		state *domain.PaperState
		err   error
	)
	if modeCtl.IsLive() {
		state, err = store.LoadLiveState(ctx)
	} else {
		state, err = store.LoadPaperState(ctx)
	}
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = domain.NewPaperState(cfg.PaperTrading.StartingBalance)
	}
	return ledger.New(state, cfg.PaperTrading.FeeRate), nil
}

func firstOrEmpty(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
