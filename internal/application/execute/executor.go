// Package execute implements the Order Executor (C6, §4.6): the LIVE
// dispatch path against the real CLOB, which submits through an adaptive
// outbound throttle, and the PAPER path against the ledger, which does not.
package execute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mdelgado/polycopy/internal/application/cache"
	"github.com/mdelgado/polycopy/internal/application/ledger"
	"github.com/mdelgado/polycopy/internal/application/throttle"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/mdelgado/polycopy/internal/ports"
)

// Config tunes the dispatch path. The paper fee rate lives on the ledger
// itself (it is Paper Ledger state, not an executor concern) — Slippage is
// the only parameter both the LIVE and PAPER paths apply identically.
type Config struct {
	Slippage float64 // §4.6 step 4, applied to both BUY and SELL
}

// Executor dispatches a domain.SizedOrder to either the live exchange or
// the paper ledger depending on mode, per §4.6/§4.8.
type Executor struct {
	cfg      Config
	live     ports.OrderExecutor // nil in PAPER/DRY_RUN
	balances *cache.Balance      // nil in PAPER/DRY_RUN
	metadata *cache.Metadata
	book     *ledger.Ledger
	limiter  *throttle.Throttle
}

// New builds an Executor. live and balances may be nil when mode is not LIVE.
func New(cfg Config, live ports.OrderExecutor, balances *cache.Balance, metadata *cache.Metadata, book *ledger.Ledger) *Executor {
	return &Executor{
		cfg:      cfg,
		live:     live,
		balances: balances,
		metadata: metadata,
		book:     book,
		// §4.6 throttling: >= 250ms base spacing, adaptive under rate limits.
		limiter: throttle.New(250 * time.Millisecond),
	}
}

// Result is the outcome of dispatching one sized order, independent of mode.
type Result struct {
	Trade   domain.Trade
	Skipped *domain.SkipDecision
}

// Dispatch submits sized, per §4.8 mode rules: a non-nil live executor means
// LIVE, otherwise PAPER. DRY_RUN also routes through the paper path (it
// differs only in that no AccountConfig was ever activated, per mode.go).
func (e *Executor) Dispatch(ctx context.Context, sized domain.SizedOrder) Result {
	side := sized.Event.ReplicaSide()
	if e.live == nil {
		return e.dispatchPaper(sized, side)
	}
	return e.dispatchLive(ctx, sized, side)
}

func (e *Executor) dispatchPaper(sized domain.SizedOrder, side domain.Side) Result {
	event := sized.Event
	event.Price = simulatedSlippagePrice(event.Price, side, e.cfg.Slippage)

	var (
		trade domain.Trade
		err   error
	)
	if side == domain.SideBuy {
		trade, err = e.book.Buy(event, sized.Shares)
	} else {
		trade, err = e.book.Sell(event, sized.Shares)
	}
	if err != nil {
		return Result{Skipped: skipFromError(err)}
	}
	return Result{Trade: trade}
}

func (e *Executor) dispatchLive(ctx context.Context, sized domain.SizedOrder, side domain.Side) Result {
	event := sized.Event
	requestID := uuid.New().String()

	tickSize, negRisk, feeRateBps, err := e.balances.Params(ctx, event.TokenID)
	if err != nil {
		slog.Warn("execute: market params fetch failed", "requestId", requestID, "tokenId", event.TokenID, "error", err)
		return Result{Skipped: &domain.SkipDecision{Reason: domain.ReasonRateLimited, Detail: err.Error()}}
	}

	limitPrice := roundToTick(simulatedSlippagePrice(event.Price, side, e.cfg.Slippage), tickSize)
	limitPrice = clamp(limitPrice, 0.01, 0.99)

	if skip := e.preflight(ctx, event, side, limitPrice, sized.Shares); skip != nil {
		return Result{Skipped: skip}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return Result{Skipped: &domain.SkipDecision{Reason: domain.ReasonRateLimited, Detail: err.Error()}}
	}

	req := domain.PlaceOrderRequest{
		Order: domain.Order{
			TokenID:    event.TokenID,
			Side:       side,
			LimitPrice: limitPrice,
			Size:       sized.Shares,
			OrderType:  domain.GTC,
		},
		ConditionID: event.ConditionID,
		NegRisk:     negRisk,
		TickSize:    tickSize,
		FeeRateBps:  feeRateBps,
	}

	placed, err := e.live.PlaceOrder(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			e.limiter.OnRateLimited()
		}
		slog.Warn("execute: place order failed", "requestId", requestID, "tokenId", event.TokenID, "error", err)
		return Result{Skipped: skipFromError(err)}
	}
	if !placed.Success() {
		detail := placed.ErrorMessage
		if strings.HasPrefix(strings.TrimSpace(detail), "<!DOCTYPE") {
			detail = "API rate limited or blocked"
			e.limiter.OnRateLimited()
		}
		slog.Warn("execute: order rejected", "requestId", requestID, "tokenId", event.TokenID, "detail", detail)
		return Result{Skipped: &domain.SkipDecision{Reason: domain.ReasonRateLimited, Detail: detail}}
	}

	e.limiter.OnSuccess()
	e.balances.InvalidatePosition(event.TokenID)
	e.metadata.Invalidate(event.TokenID)

	trade := domain.Trade{
		ID:           placed.OrderID,
		Timestamp:    event.Timestamp,
		TokenID:      event.TokenID,
		Side:         side,
		Price:        limitPrice,
		Shares:       sized.Shares,
		UsdValue:     limitPrice * sized.Shares,
		TargetWallet: event.TargetWallet,
		TradeID:      event.TradeID,
	}
	return Result{Trade: trade}
}

func (e *Executor) preflight(ctx context.Context, event domain.ActivityEvent, side domain.Side, limitPrice, shares float64) *domain.SkipDecision {
	if side == domain.SideBuy {
		balance, err := e.balances.USDC(ctx)
		if err != nil {
			return &domain.SkipDecision{Reason: domain.ReasonRateLimited, Detail: err.Error()}
		}
		notional := limitPrice * shares
		if balance < 1.01*notional {
			return &domain.SkipDecision{Reason: domain.ReasonInsufficientFunds, Detail: fmt.Sprintf("balance %.2f < required %.2f", balance, 1.01*notional)}
		}
		return nil
	}

	held, err := e.balances.TokenShares(ctx, event.TokenID)
	if err != nil {
		return &domain.SkipDecision{Reason: domain.ReasonRateLimited, Detail: err.Error()}
	}
	if held < shares {
		return &domain.SkipDecision{Reason: domain.ReasonInsufficientShares, Detail: fmt.Sprintf("held %.4f < requested %.4f", held, shares)}
	}
	return nil
}

// simulatedSlippagePrice applies §4.6/§4.4's slippage model: a BUY pays up,
// a SELL gives up, both move the signal price against the replicator.
func simulatedSlippagePrice(signalPrice float64, side domain.Side, slippage float64) float64 {
	if side == domain.SideBuy {
		return signalPrice * (1 + slippage)
	}
	return signalPrice * (1 - slippage)
}

func roundToTick(price, tickSize float64) float64 {
	if tickSize <= 0 {
		return price
	}
	steps := price / tickSize
	rounded := float64(int64(steps + 0.5))
	return rounded * tickSize
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func skipFromError(err error) *domain.SkipDecision {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInsufficientFunds):
		return &domain.SkipDecision{Reason: domain.ReasonInsufficientFunds, Detail: err.Error()}
	case errors.Is(err, domain.ErrInsufficientShares):
		return &domain.SkipDecision{Reason: domain.ReasonInsufficientShares, Detail: err.Error()}
	case errors.Is(err, domain.ErrRateLimited):
		return &domain.SkipDecision{Reason: domain.ReasonRateLimited, Detail: err.Error()}
	default:
		return &domain.SkipDecision{Reason: domain.ReasonRateLimited, Detail: err.Error()}
	}
}
