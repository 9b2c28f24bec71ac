// Package ingest implements the Activity Ingester (C7, §4.1) and the
// Aggregation Buffer (C8, §4.3): one realtime websocket subscription plus
// one HTTP poller per target, deduplicated and filtered to the configured
// target set before being handed downstream in chronological order.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mdelgado/polycopy/internal/application/throttle"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/mdelgado/polycopy/internal/ports"
)

// firstPollAgeGate is §4.1's first-poll protection: activities older than
// this are marked seen but never emitted, so a fresh start never replays
// history.
const firstPollAgeGate = 5 * time.Minute

// Config tunes the per-target poller leg.
type Config struct {
	Targets       []string
	PollInterval  time.Duration
	TradeLimit    int
	BaseBackoffMs time.Duration
	AggWindow     time.Duration
}

// Ingester wires the realtime feed and per-target pollers into a single
// deduplicated, chronologically-ordered-per-target event stream.
type Ingester struct {
	cfg      Config
	feed     ports.ActivityFeed
	provider ports.ActivityProvider
	dedup    ports.DedupStore
	agg      *AggregationBuffer
	throttle *throttle.Throttle

	out chan domain.ActivityEvent

	firstPoll sync.Map // target -> bool, gates the age filter per target
}

// New builds an Ingester. feed may be nil to run poll-only (e.g. tests).
func New(cfg Config, feed ports.ActivityFeed, provider ports.ActivityProvider, dedup ports.DedupStore) *Ingester {
	if cfg.TradeLimit <= 0 {
		cfg.TradeLimit = 20
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	ing := &Ingester{
		cfg:      cfg,
		feed:     feed,
		provider: provider,
		dedup:    dedup,
		// §4.6/§9: the poller leg shares the same adaptive throttler shape
		// the executor uses, one instance per target set.
		throttle: throttle.New(cfg.PollInterval),
		out:      make(chan domain.ActivityEvent, 512),
	}
	ing.agg = NewAggregationBuffer(cfg.AggWindow, ing.emit)
	return ing
}

// Events returns the deduplicated, filtered stream. Never closed.
func (ing *Ingester) Events() <-chan domain.ActivityEvent { return ing.out }

// Run starts the realtime feed (if configured) and one poller goroutine per
// target, blocking until ctx is cancelled.
func (ing *Ingester) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	if ing.feed != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := ing.feed.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("ingest: realtime feed exited", "error", err)
			}
		}()
		go func() {
			defer wg.Done()
			ing.drainFeed(ctx)
		}()
	}

	for _, target := range ing.cfg.Targets {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			ing.pollTarget(ctx, target)
		}(target)
	}

	wg.Wait()
	ing.agg.Stop()
	return ctx.Err()
}

func (ing *Ingester) drainFeed(ctx context.Context) {
	targets := make(map[string]bool, len(ing.cfg.Targets))
	for _, t := range ing.cfg.Targets {
		targets[strings.ToLower(t)] = true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ing.feed.Events():
			if !ok {
				return
			}
			if !targets[strings.ToLower(event.TargetWallet)] {
				continue
			}
			ing.accept(event)
		}
	}
}

func (ing *Ingester) pollTarget(ctx context.Context, target string) {
	ticker := time.NewTicker(ing.cfg.PollInterval)
	defer ticker.Stop()

	backoff := ing.cfg.BaseBackoffMs
	if backoff <= 0 {
		backoff = time.Second
	}

	poll := func() {
		if err := ing.throttle.Wait(ctx); err != nil {
			return
		}
		events, err := ing.provider.FetchActivity(ctx, target, ing.cfg.TradeLimit)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				ing.throttle.OnRateLimited()
			}
			slog.Warn("ingest: poll failed", "target", target, "error", err)
			select {
			case <-time.After(2 * backoff):
			case <-ctx.Done():
			}
			return
		}
		ing.throttle.OnSuccess()
		for _, event := range events {
			ing.accept(event)
		}
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

// accept applies the age gate, dedup, and aggregation buffer to one event
// observed from either leg of the ingester.
func (ing *Ingester) accept(event domain.ActivityEvent) {
	_, seenBefore := ing.firstPoll.LoadOrStore(event.TargetWallet, true)
	if !seenBefore && time.Since(event.Timestamp) > firstPollAgeGate {
		ing.dedup.MarkSeen(event.TargetWallet, event.TradeID)
		return
	}

	if ing.dedup.HasSeen(event.TargetWallet, event.TradeID) {
		return
	}
	ing.dedup.MarkSeen(event.TargetWallet, event.TradeID)

	ing.agg.Submit(event)
}

func (ing *Ingester) emit(event domain.ActivityEvent) {
	select {
	case ing.out <- event:
	default:
		slog.Warn("ingest: output channel full, dropping event", "target", event.TargetWallet, "tradeId", event.TradeID)
	}
}
