package notify

// console.go implements ports.Notifier: a stdout report on every snapshot
// tick of the supervisor (a compact line, or a position table when table
// is set) showing mode, balance, and running P&L, plus a one-line log for
// every risk-manager skip.

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implements ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyStats prints the current mode, balance, and open positions.
func (c *Console) NotifyStats(_ context.Context, mode domain.Mode, state *domain.PaperState) error {
	now := time.Now().Format("15:04:05")
	stats := state.Stats

	if !c.table {
		fmt.Fprintf(c.out, "[%s][%s] bal $%.2f | pos %d | trades %d | realized $%.4f | unrealized $%.4f | win%% %.0f\n",
			now, mode, state.CurrentBalance, len(state.Positions), stats.TotalTrades,
			stats.TotalRealizedPnl, state.UnrealizedPnl(), stats.WinRate()*100)
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] mode=%s balance=$%.2f\n", now, mode, state.CurrentBalance)

	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Token", "Outcome", "Shares", "Avg Entry", "Current", "Unrealized", "Opened")

	for _, tokenID := range sortedPositionKeys(state.Positions) {
		pos := state.Positions[tokenID]
		if pos.Shares == 0 {
			continue
		}
		current := "-"
		unrealized := "-"
		if pos.CurrentPrice != nil {
			current = fmt.Sprintf("%.4f", *pos.CurrentPrice)
			unrealized = fmt.Sprintf("$%.4f", pos.Shares*(*pos.CurrentPrice-pos.AvgEntryPrice()))
		}
		tbl.Append(
			truncateMiddle(tokenID, 14),
			string(pos.Outcome),
			fmt.Sprintf("%.2f", pos.Shares),
			fmt.Sprintf("%.4f", pos.AvgEntryPrice()),
			current,
			unrealized,
			pos.OpenedAt.Format("01-02 15:04"),
		)
	}
	tbl.Render()

	fmt.Fprintf(c.out, "  trades:%d  wins:%d  losses:%d  win%%:%.1f  realized:$%.4f  unrealized:$%.4f  fees:$%.4f\n",
		stats.TotalTrades, stats.WinningTrades, stats.LosingTrades, stats.WinRate()*100,
		stats.TotalRealizedPnl, state.UnrealizedPnl(), stats.TotalFees)

	return nil
}

// NotifySkip logs a single line for a risk-manager (or pre-flight) skip.
func (c *Console) NotifySkip(_ context.Context, event domain.ActivityEvent, decision domain.SkipDecision) error {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "[%s] skip %s %s %s %.2f@%.4f: %s (%s)\n",
		now, event.TargetWallet, event.Side, event.TokenID, event.SizeShares, event.Price,
		decision.Reason, decision.Detail)
	return nil
}

func sortedPositionKeys(positions map[string]domain.Position) []string {
	keys := make([]string, 0, len(positions))
	for k := range positions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncateMiddle(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	half := (maxLen - 3) / 2
	return s[:half] + "..." + s[len(s)-half:]
}
