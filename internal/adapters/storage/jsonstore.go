package storage

// jsonstore.go — whole-file JSON persistence (ports.DataStore), grounded on
// the atomic write-then-rename pattern used for per-market position files:
// write to a sibling .tmp, fsync is skipped (not needed for this workload),
// then rename over the target so a crash mid-write never leaves a torn file.
//
// Every document is owned by exactly one caller (C5 owns paper-state.json,
// C9 owns live-state.json and the chart-history files, the account
// activation flow owns accounts.json); this store only does the file I/O,
// callers are responsible for debouncing their own Save* calls.

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mdelgado/polycopy/internal/domain"
)

const (
	paperStateFile       = "paper-state.json"
	liveStateFile        = "live-state.json"
	chartHistoryFile     = "chart-history.json"
	liveChartHistoryFile = "live-chart-history.json"
	accountsFile         = "accounts.json"
	debugStatsFile       = "debug-stats.log"
)

// JSONStore implements ports.DataStore over a writable data directory.
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

// NewJSONStore creates a store rooted at dir, creating it if necessary.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage.NewJSONStore: mkdir %q: %w", dir, err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// writeJSON marshals v with a 2-space indent and replaces path atomically.
func (s *JSONStore) writeJSON(path string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("storage: write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

// readJSON loads path into v. A missing file is not an error; v is left
// untouched and ok reports false.
func (s *JSONStore) readJSON(path string, v any) (ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("storage: read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("storage: unmarshal %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// LoadPaperState restores paper-state.json, or returns nil if absent so the
// caller can seed a fresh state with its configured starting balance.
func (s *JSONStore) LoadPaperState(ctx context.Context) (*domain.PaperState, error) {
	state := &domain.PaperState{Positions: make(map[string]domain.Position)}
	ok, err := s.readJSON(s.path(paperStateFile), state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if state.Positions == nil {
		state.Positions = make(map[string]domain.Position)
	}
	return state, nil
}

// SavePaperState persists paper-state.json.
func (s *JSONStore) SavePaperState(ctx context.Context, state *domain.PaperState) error {
	return s.writeJSON(s.path(paperStateFile), state)
}

// LoadLiveState restores live-state.json, or returns nil if absent.
func (s *JSONStore) LoadLiveState(ctx context.Context) (*domain.PaperState, error) {
	state := &domain.PaperState{Positions: make(map[string]domain.Position)}
	ok, err := s.readJSON(s.path(liveStateFile), state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if state.Positions == nil {
		state.Positions = make(map[string]domain.Position)
	}
	return state, nil
}

// SaveLiveState persists live-state.json.
func (s *JSONStore) SaveLiveState(ctx context.Context, state *domain.PaperState) error {
	return s.writeJSON(s.path(liveStateFile), state)
}

// LoadChartHistory restores chart-history.json, or live-chart-history.json
// when live is true.
func (s *JSONStore) LoadChartHistory(ctx context.Context, live bool) ([]domain.Snapshot, error) {
	var snaps []domain.Snapshot
	_, err := s.readJSON(s.path(chartHistoryName(live)), &snaps)
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

// SaveChartHistory persists the (already downsampled/trimmed) snapshot list.
func (s *JSONStore) SaveChartHistory(ctx context.Context, live bool, snaps []domain.Snapshot) error {
	return s.writeJSON(s.path(chartHistoryName(live)), snaps)
}

func chartHistoryName(live bool) string {
	if live {
		return liveChartHistoryFile
	}
	return chartHistoryFile
}

// LoadAccounts restores accounts.json.
func (s *JSONStore) LoadAccounts(ctx context.Context) ([]domain.AccountConfig, error) {
	var accounts []domain.AccountConfig
	_, err := s.readJSON(s.path(accountsFile), &accounts)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// SaveAccounts persists accounts.json.
func (s *JSONStore) SaveAccounts(ctx context.Context, accounts []domain.AccountConfig) error {
	return s.writeJSON(s.path(accountsFile), accounts)
}

// AppendDebugStat appends one line to debug-stats.log. Best-effort: errors
// are swallowed by callers per §6's "state write failure: remain dirty,
// retry next tick" handling — this file is diagnostic only.
func (s *JSONStore) AppendDebugStat(ctx context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(debugStatsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("storage.AppendDebugStat: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("storage.AppendDebugStat: write: %w", err)
	}
	return nil
}
