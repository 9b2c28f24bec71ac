package ingest

// aggregate.go implements the Aggregation Buffer (C8, §4.3): optional,
// off-by-default merging of rapid same-(target,tokenID,side,activityType)
// events within a window W. W=0 makes Submit a pure pass-through.

import (
	"sync"
	"time"

	"github.com/mdelgado/polycopy/internal/domain"
)

type aggKey struct {
	target       string
	tokenID      string
	side         domain.Side
	activityType domain.ActivityType
}

type aggEntry struct {
	first      domain.ActivityEvent
	totalSize  float64
	notional   float64
	timer      *time.Timer
}

// AggregationBuffer merges matching events within window into one flushed
// event. A zero-value window disables merging entirely.
type AggregationBuffer struct {
	window time.Duration
	flush  func(domain.ActivityEvent)

	mu      sync.Mutex
	pending map[aggKey]*aggEntry
}

// NewAggregationBuffer builds a buffer that calls flush once per merged (or
// passed-through) event. window<=0 disables aggregation (§4.3 default).
func NewAggregationBuffer(window time.Duration, flush func(domain.ActivityEvent)) *AggregationBuffer {
	return &AggregationBuffer{window: window, flush: flush, pending: make(map[aggKey]*aggEntry)}
}

// Submit feeds one event through the buffer. When disabled, it calls flush
// immediately and returns.
func (b *AggregationBuffer) Submit(event domain.ActivityEvent) {
	if b.window <= 0 {
		b.flush(event)
		return
	}

	key := aggKey{event.TargetWallet, event.TokenID, event.Side, event.ActivityType}

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.pending[key]
	if !ok {
		e := &aggEntry{first: event, totalSize: event.SizeShares, notional: event.NotionalUsd()}
		e.timer = time.AfterFunc(b.window, func() { b.flushKey(key) })
		b.pending[key] = e
		return
	}

	entry.totalSize += event.SizeShares
	entry.notional += event.NotionalUsd()
}

func (b *AggregationBuffer) flushKey(key aggKey) {
	b.mu.Lock()
	entry, ok := b.pending[key]
	if ok {
		delete(b.pending, key)
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	merged := entry.first
	merged.SizeShares = entry.totalSize
	if entry.totalSize > 0 {
		merged.Price = entry.notional / entry.totalSize
	}
	merged.TradeID = "agg-" + entry.first.TradeID
	b.flush(merged)
}

// Stop cancels every pending timer without flushing; used on shutdown.
func (b *AggregationBuffer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, e := range b.pending {
		e.timer.Stop()
		delete(b.pending, k)
	}
}
