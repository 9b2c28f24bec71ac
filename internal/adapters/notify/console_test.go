package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mdelgado/polycopy/internal/adapters/notify"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeState() *domain.PaperState {
	price := 0.65
	return &domain.PaperState{
		StartingBalance: 1000,
		CurrentBalance:  950,
		Positions: map[string]domain.Position{
			"tid_yes": {
				TokenID:      "tid_yes",
				ConditionID:  "0xtest",
				Outcome:      domain.OutcomeYes,
				Shares:       10,
				TotalCost:    6,
				OpenedAt:     time.Now(),
				CurrentPrice: &price,
			},
		},
		Stats: domain.Stats{
			TotalRealizedPnl: 1.5,
			WinningTrades:    2,
			LosingTrades:     1,
			TotalTrades:      3,
		},
	}
}

func TestConsole_NotifyStats_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	err := n.NotifyStats(context.Background(), domain.ModePaper, makeState())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "PAPER")
	assert.Contains(t, out, "950.00")
}

func TestConsole_NotifyStats_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	err := n.NotifyStats(context.Background(), domain.ModeLive, makeState())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "tid_yes")
	assert.Contains(t, out, "YES")
}

func TestConsole_NotifySkip(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	event := domain.ActivityEvent{
		TargetWallet: "0xabc",
		TokenID:      "tid_yes",
		Side:         domain.SideBuy,
		SizeShares:   10,
		Price:        0.6,
	}
	decision := domain.SkipDecision{Reason: domain.ReasonDailyCap, Detail: "daily cap reached"}

	err := n.NotifySkip(context.Background(), event, decision)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "0xabc")
	assert.Contains(t, out, "DailyCapExceeded")
}
