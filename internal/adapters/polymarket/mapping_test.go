package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gammaMarketFixture = `[{
	"conditionId": "0xtest",
	"question": "Will it happen?",
	"slug": "will-it-happen",
	"endDateIso": "2026-12-31T00:00:00Z",
	"clobTokenIds": "[\"tid_yes\",\"tid_no\"]",
	"outcomes": "[\"Yes\",\"No\"]",
	"outcomePrices": "[\"0.6\",\"0.4\"]",
	"active": true,
	"closed": false
}]`

const clobMarketFixture = `{
	"condition_id": "0xtest",
	"minimum_tick_size": "0.01",
	"neg_risk": false,
	"closed": false,
	"tokens": [
		{"token_id": "tid_yes", "outcome": "Yes", "price": 0.6},
		{"token_id": "tid_no", "outcome": "No", "price": 0.4}
	]
}`

func TestFetchMarketBySlug(t *testing.T) {
	gammaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "slug=will-it-happen", r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(gammaMarketFixture))
	}))
	defer gammaSrv.Close()

	clobSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(clobMarketFixture))
	}))
	defer clobSrv.Close()

	client := newTestClient(clobSrv, gammaSrv, nil)
	m, err := client.FetchMarketBySlug(context.Background(), "will-it-happen")
	require.NoError(t, err)

	assert.Equal(t, "0xtest", m.ConditionID)
	assert.Equal(t, "will-it-happen", m.Slug)
	assert.InDelta(t, 0.01, m.TickSize, 0.0001)
	assert.False(t, m.NegRisk)
	require.Len(t, m.Tokens, 2)
	assert.Equal(t, "tid_yes", m.Tokens[0].TokenID)
	assert.Equal(t, "tid_no", m.Tokens[1].TokenID)
}

const activityFixture = `[
	{
		"proxyWallet": "0xabc",
		"timestamp": "1700000000",
		"conditionId": "0xcond1",
		"type": "TRADE",
		"size": "10.5",
		"usdcSize": "6.3",
		"transactionHash": "0xhash1",
		"price": "0.6",
		"asset": "tid_yes",
		"side": "BUY",
		"outcomeIndex": 0,
		"slug": "will-it-happen",
		"outcome": "Yes"
	},
	{
		"proxyWallet": "0xabc",
		"timestamp": "1700000100",
		"conditionId": "0xcond1",
		"type": "REDEEM",
		"size": "5",
		"usdcSize": "5",
		"transactionHash": "0xhash2",
		"price": "1",
		"asset": "tid_yes",
		"side": "",
		"outcomeIndex": 0,
		"slug": "will-it-happen",
		"outcome": "Yes"
	}
]`

func TestFetchActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activity", r.URL.Path)
		assert.Equal(t, "0xabc", r.URL.Query().Get("user"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(activityFixture))
	}))
	defer srv.Close()

	client := newTestClient(nil, nil, srv)
	events, err := client.FetchActivity(context.Background(), "0xabc", 100)
	require.NoError(t, err)
	require.Len(t, events, 2)

	trade := events[0]
	assert.Equal(t, "0xabc", trade.TargetWallet)
	assert.Equal(t, "tid_yes", trade.TokenID)
	assert.InDelta(t, 0.6, trade.Price, 0.001)
	assert.InDelta(t, 10.5, trade.SizeShares, 0.001)
	assert.Equal(t, "will-it-happen", trade.MarketSlug)

	redeem := events[1]
	assert.Equal(t, "tid_yes", redeem.TokenID)
	assert.Equal(t, 5.0, redeem.SizeShares)
}
