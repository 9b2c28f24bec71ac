package ports

import (
	"context"

	"github.com/mdelgado/polycopy/internal/domain"
)

// Notifier presents ledger state to the operator (the supervisor calls
// NotifyStats on every snapshot tick).
type Notifier interface {
	NotifyStats(ctx context.Context, mode domain.Mode, state *domain.PaperState) error
	NotifySkip(ctx context.Context, event domain.ActivityEvent, decision domain.SkipDecision) error
}
