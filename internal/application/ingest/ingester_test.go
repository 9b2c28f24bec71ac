package ingest_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mdelgado/polycopy/internal/application/ingest"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
	calls  int
}

func (f *fakeProvider) FetchActivity(ctx context.Context, target string, limit int) ([]domain.ActivityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.events, nil
}

type memDedup struct {
	mu   sync.Mutex
	seen map[string]map[string]bool
}

func newMemDedup() *memDedup {
	return &memDedup{seen: make(map[string]map[string]bool)}
}

func (d *memDedup) HasSeen(target, tradeID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[target][tradeID]
}

func (d *memDedup) MarkSeen(target, tradeID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[target] == nil {
		d.seen[target] = make(map[string]bool)
	}
	d.seen[target][tradeID] = true
}

func (d *memDedup) Load(ctx context.Context) error { return nil }
func (d *memDedup) Flush(ctx context.Context) error { return nil }

// S3 — dedup: the same tradeID observed twice (e.g. once via poll, once via
// a reconnect replay) is only emitted once.
func TestIngester_S3_DedupSuppressesRepeats(t *testing.T) {
	now := time.Now()
	provider := &fakeProvider{events: []domain.ActivityEvent{
		{TargetWallet: "0xabc", TradeID: "tx1", Timestamp: now, TokenID: "tid", Price: 0.5, SizeShares: 10},
	}}
	dedup := newMemDedup()

	ing := ingest.New(ingest.Config{
		Targets:      []string{"0xabc"},
		PollInterval: 10 * time.Millisecond,
	}, nil, provider, dedup)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	go ing.Run(ctx)

	var received []domain.ActivityEvent
	timeout := time.After(80 * time.Millisecond)
loop:
	for {
		select {
		case e := <-ing.Events():
			received = append(received, e)
		case <-timeout:
			break loop
		}
	}

	assert.Len(t, received, 1, "repeated poll of the same tradeID must only emit once")
}

// property 7 — reconnect idempotence: replaying the same batch after the
// dedup store already marked it seen produces no further emissions.
func TestIngester_ReconnectIdempotence(t *testing.T) {
	dedup := newMemDedup()
	dedup.MarkSeen("0xabc", "tx1")

	provider := &fakeProvider{events: []domain.ActivityEvent{
		{TargetWallet: "0xabc", TradeID: "tx1", Timestamp: time.Now(), TokenID: "tid", Price: 0.5, SizeShares: 10},
	}}

	ing := ingest.New(ingest.Config{
		Targets:      []string{"0xabc"},
		PollInterval: 10 * time.Millisecond,
	}, nil, provider, dedup)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	go ing.Run(ctx)

	select {
	case e := <-ing.Events():
		t.Fatalf("expected no emission for an already-seen tradeID, got %+v", e)
	case <-time.After(40 * time.Millisecond):
	}
}

// first-poll age gate: an activity older than 5 minutes on the very first
// poll is marked seen but not emitted.
func TestIngester_FirstPollAgeGate(t *testing.T) {
	old := time.Now().Add(-10 * time.Minute)
	provider := &fakeProvider{events: []domain.ActivityEvent{
		{TargetWallet: "0xabc", TradeID: "stale", Timestamp: old, TokenID: "tid", Price: 0.5, SizeShares: 10},
	}}
	dedup := newMemDedup()

	ing := ingest.New(ingest.Config{
		Targets:      []string{"0xabc"},
		PollInterval: 5 * time.Millisecond,
	}, nil, provider, dedup)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	go ing.Run(ctx)

	select {
	case e := <-ing.Events():
		t.Fatalf("expected stale first-poll activity to be suppressed, got %+v", e)
	case <-time.After(20 * time.Millisecond):
	}

	require.True(t, dedup.HasSeen("0xabc", "stale"), "stale activity must still be marked seen")
}
