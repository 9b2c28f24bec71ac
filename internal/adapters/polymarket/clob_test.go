package polymarket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mdelgado/polycopy/internal/adapters/polymarket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(clobSrv, gammaSrv, dataSrv *httptest.Server) *polymarket.Client {
	var clobURL, gammaURL, dataURL string
	if clobSrv != nil {
		clobURL = clobSrv.URL
	}
	if gammaSrv != nil {
		gammaURL = gammaSrv.URL
	}
	if dataSrv != nil {
		dataURL = dataSrv.URL
	}
	return polymarket.NewClient(clobURL, gammaURL, dataURL)
}

const booksFixture = `[
	{"asset_id": "token_yes_001", "bids": [{"price":"0.70","size":"100"},{"price":"0.69","size":"50"}], "asks": [{"price":"0.72","size":"80"},{"price":"0.73","size":"40"}]},
	{"asset_id": "token_no_001",  "bids": [{"price":"0.27","size":"60"},{"price":"0.26","size":"30"}],  "asks": [{"price":"0.29","size":"70"},{"price":"0.30","size":"20"}]}
]`

func TestFetchOrderBooks_Batch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/books", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(booksFixture))
	}))
	defer srv.Close()

	client := newTestClient(srv, nil, nil)
	books, err := client.FetchOrderBooks(context.Background(), []string{"token_yes_001", "token_no_001"})

	require.NoError(t, err)
	require.Len(t, books, 2)

	yesBook, ok := books["token_yes_001"]
	require.True(t, ok)
	assert.Equal(t, "token_yes_001", yesBook.TokenID)
	assert.InDelta(t, 0.70, yesBook.BestBid(), 0.001)
	assert.InDelta(t, 0.72, yesBook.BestAsk(), 0.001)
	assert.InDelta(t, 0.71, yesBook.Midpoint(), 0.001)

	noBook, ok := books["token_no_001"]
	require.True(t, ok)
	assert.InDelta(t, 0.27, noBook.BestBid(), 0.001)
	assert.InDelta(t, 0.29, noBook.BestAsk(), 0.001)
}

func TestFetchOrderBooks_Empty(t *testing.T) {
	client := newTestClient(nil, nil, nil)
	books, err := client.FetchOrderBooks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestFetchOrderBooks_BatchSplitting(t *testing.T) {
	callCount := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]any{})
	}))
	defer srv.Close()

	client := newTestClient(srv, nil, nil)

	tokenIDs := make([]string, 25)
	for i := range tokenIDs {
		tokenIDs[i] = "token_" + string(rune('a'+i%26))
	}

	_, err := client.FetchOrderBooks(context.Background(), tokenIDs)
	require.NoError(t, err)
	assert.Equal(t, 2, callCount, "25 tokens should split into 2 batch requests")
}

func TestFetchOrderBooks_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil, nil)
	_, err := client.FetchOrderBooks(context.Background(), []string{"token_yes_001"})
	assert.Error(t, err)
}
