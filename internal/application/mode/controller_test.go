package mode_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mdelgado/polycopy/internal/application/mode"
	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_NoAccount_Paper(t *testing.T) {
	c, err := mode.Resolve(context.Background(), domain.AccountConfig{}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ModePaper, c.Mode())
	assert.False(t, c.IsLive())
}

func TestResolve_NoAccount_DryRun(t *testing.T) {
	c, err := mode.Resolve(context.Background(), domain.AccountConfig{}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDryRun, c.Mode())
}

func TestResolve_Account_DryRunIgnored_Live(t *testing.T) {
	account := domain.AccountConfig{ID: "acct1", PrivateKeyHex: "0xdead", APIKey: "k"}
	c, err := mode.Resolve(context.Background(), account, true, func(ctx context.Context, a domain.AccountConfig) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, domain.ModeLive, c.Mode())
	assert.True(t, c.IsLive())
}

// S5 — LIVE init failure: the engine must refuse to start, not downgrade.
func TestResolve_S5_LiveInitFailure_RefusesToStart(t *testing.T) {
	account := domain.AccountConfig{ID: "acct1", PrivateKeyHex: "0xdead", APIKey: "k"}
	boom := errors.New("credential derivation failed")
	c, err := mode.Resolve(context.Background(), account, false, func(ctx context.Context, a domain.AccountConfig) error { return boom })

	require.Error(t, err)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, domain.ErrLiveInitFailed)
}

func TestResolve_MissingCredentials_RefusesToStart(t *testing.T) {
	account := domain.AccountConfig{ID: "acct1"}
	c, err := mode.Resolve(context.Background(), account, false, nil)
	require.Error(t, err)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)
}

// property 5 — live/paper isolation: reads guarded against the wrong mode.
func TestController_GuardRead(t *testing.T) {
	live, err := mode.Resolve(context.Background(), domain.AccountConfig{ID: "a", PrivateKeyHex: "k", APIKey: "k"}, false,
		func(ctx context.Context, a domain.AccountConfig) error { return nil })
	require.NoError(t, err)
	assert.True(t, live.GuardRead(true))
	assert.False(t, live.GuardRead(false), "LIVE mode must never read paper data")

	paper, err := mode.Resolve(context.Background(), domain.AccountConfig{}, false, nil)
	require.NoError(t, err)
	assert.True(t, paper.GuardRead(false))
	assert.False(t, paper.GuardRead(true))
}
