// Package mode implements the Mode Controller (C10, §4.8): resolving the
// operating mode from configuration, and enforcing the two invariants that
// make LIVE mode safe — refuse to start rather than silently downgrade, and
// never let a LIVE read fall through to paper data.
package mode

import (
	"context"
	"fmt"

	"github.com/mdelgado/polycopy/internal/domain"
)

// LiveInit constructs everything a LIVE mode needs (credentials, executor,
// balance cache). It is only invoked when the resolved mode is LIVE.
type LiveInit func(ctx context.Context, account domain.AccountConfig) error

// Controller resolves and holds the engine's operating mode for its
// lifetime; it is never re-resolved mid-run (§4.8 has no "switch mode"
// transition — only start-time resolution from config).
type Controller struct {
	mode    domain.Mode
	account domain.AccountConfig
}

// Resolve implements §4.8's transition table and its critical invariant: if
// the resolved mode is LIVE and init fails, the caller must not start at
// all. init is skipped entirely for PAPER/DRY_RUN.
func Resolve(ctx context.Context, account domain.AccountConfig, dryRun bool, init LiveInit) (*Controller, error) {
	resolvedMode := domain.ResolveMode(account.ID, dryRun)

	if resolvedMode == domain.ModeLive {
		if account.PrivateKeyHex == "" || account.APIKey == "" {
			return nil, fmt.Errorf("mode: resolve LIVE for account %q: %w", account.ID, domain.ErrCredentialsMissing)
		}
		if init != nil {
			if err := init(ctx, account); err != nil {
				return nil, fmt.Errorf("mode: resolve LIVE for account %q: %w", account.ID, domain.ErrLiveInitFailed)
			}
		}
	}

	return &Controller{mode: resolvedMode, account: account}, nil
}

// Mode returns the resolved, fixed-for-process-lifetime mode.
func (c *Controller) Mode() domain.Mode { return c.mode }

// IsLive reports whether the executor should dispatch against the real
// exchange rather than the paper ledger.
func (c *Controller) IsLive() bool { return c.mode == domain.ModeLive }

// GuardRead enforces §4.8's second invariant for any read path (stats,
// positions, trades): in LIVE mode, callers must use the live-derived view,
// never fall through to paper state. ok is false when the caller holds the
// wrong kind of source for the current mode.
func (c *Controller) GuardRead(sourceIsLive bool) (ok bool) {
	if c.mode == domain.ModeLive {
		return sourceIsLive
	}
	return !sourceIsLive
}
