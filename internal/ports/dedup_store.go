package ports

import "context"

// DedupStore is the correctness boundary for "copy each trade exactly
// once" (C1, §4.2): a bounded, persisted set of (target, tradeId) pairs
// already observed.
type DedupStore interface {
	// HasSeen reports whether (target, tradeID) has already been marked.
	HasSeen(target, tradeID string) bool

	// MarkSeen records (target, tradeID) as observed, trimming the oldest
	// half of the target's set in a single step if it would exceed the cap.
	MarkSeen(target, tradeID string)

	// Load restores persisted dedup state (best-effort: restarts must not
	// replay, but a missing or corrupt file is not fatal).
	Load(ctx context.Context) error

	// Flush persists the current dedup state to disk.
	Flush(ctx context.Context) error
}
