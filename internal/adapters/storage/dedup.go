package storage

// dedup.go — ports.DedupStore over dedup.json: a bounded, persisted record
// of (target, tradeId) pairs already copied, so a websocket replay on
// reconnect or a duplicate poller delivery never re-executes a trade.

import (
	"context"
	"sync"
)

const dedupFile = "dedup.json"

// maxIDsPerTarget caps each target's observed-ID list; on overflow the
// oldest half is dropped in one step rather than evicting one at a time.
const maxIDsPerTarget = 500

// dedupEntry is the on-disk shape: insertion-ordered IDs per target, oldest
// first, so trimming is a simple slice cut.
type dedupEntry struct {
	Target  string   `json:"target"`
	TradeIDs []string `json:"tradeIds"`
}

// DedupStore implements ports.DedupStore.
type DedupStore struct {
	store *JSONStore

	mu     sync.Mutex
	seen   map[string]map[string]struct{} // target -> tradeID set, for HasSeen
	order  map[string][]string            // target -> tradeID insertion order
}

// NewDedupStore builds a dedup store backed by dedup.json under store's dir.
func NewDedupStore(store *JSONStore) *DedupStore {
	return &DedupStore{
		store: store,
		seen:  make(map[string]map[string]struct{}),
		order: make(map[string][]string),
	}
}

// HasSeen reports whether (target, tradeID) was already marked.
func (d *DedupStore) HasSeen(target, tradeID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[target][tradeID]
	return ok
}

// MarkSeen records (target, tradeID), trimming the oldest half of the
// target's list in one step if it would exceed maxIDsPerTarget.
func (d *DedupStore) MarkSeen(target, tradeID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen[target] == nil {
		d.seen[target] = make(map[string]struct{})
	}
	if _, ok := d.seen[target][tradeID]; ok {
		return
	}

	d.seen[target][tradeID] = struct{}{}
	d.order[target] = append(d.order[target], tradeID)

	if ids := d.order[target]; len(ids) > maxIDsPerTarget {
		cut := len(ids) / 2
		for _, id := range ids[:cut] {
			delete(d.seen[target], id)
		}
		d.order[target] = append([]string{}, ids[cut:]...)
	}
}

// Load restores dedup.json. A missing or corrupt file is not fatal: the
// store simply starts empty, trading a brief window of possible replay for
// availability.
func (d *DedupStore) Load(ctx context.Context) error {
	var entries []dedupEntry
	ok, err := d.store.readJSON(d.store.path(dedupFile), &entries)
	if err != nil || !ok {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		set := make(map[string]struct{}, len(e.TradeIDs))
		for _, id := range e.TradeIDs {
			set[id] = struct{}{}
		}
		d.seen[e.Target] = set
		d.order[e.Target] = append([]string{}, e.TradeIDs...)
	}
	return nil
}

// Flush persists the current dedup state to dedup.json.
func (d *DedupStore) Flush(ctx context.Context) error {
	d.mu.Lock()
	entries := make([]dedupEntry, 0, len(d.order))
	for target, ids := range d.order {
		entries = append(entries, dedupEntry{Target: target, TradeIDs: append([]string{}, ids...)})
	}
	d.mu.Unlock()

	return d.store.writeJSON(d.store.path(dedupFile), entries)
}
