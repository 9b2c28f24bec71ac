package polymarket

// metadata.go implements ports.MetadataProvider (C2): Gamma supplies
// question/slug/outcome metadata, the CLOB's /markets/{condition_id}
// supplies the tick size, neg-risk flag, and resolution payouts the risk
// manager and executor need.

import (
	"context"
	"fmt"

	"github.com/mdelgado/polycopy/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	clobMarketsPath  = "/markets"
)

// FetchMarketBySlug resolves a market by its Gamma slug.
func (c *Client) FetchMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	url := fmt.Sprintf("%s%s?slug=%s", c.gammaBase, gammaMarketsPath, slug)
	gm, err := c.fetchOneGammaMarket(ctx, url)
	if err != nil {
		return domain.Market{}, fmt.Errorf("metadata.FetchMarketBySlug(%s): %w", slug, err)
	}
	return c.completeFromCLOB(ctx, gm)
}

// FetchMarketByToken resolves a market by one of its CLOB token IDs.
func (c *Client) FetchMarketByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	url := fmt.Sprintf("%s%s?clob_token_ids=%s", c.gammaBase, gammaMarketsPath, tokenID)
	gm, err := c.fetchOneGammaMarket(ctx, url)
	if err != nil {
		return domain.Market{}, fmt.Errorf("metadata.FetchMarketByToken(%s): %w", tokenID, err)
	}
	return c.completeFromCLOB(ctx, gm)
}

func (c *Client) fetchOneGammaMarket(ctx context.Context, url string) (gammaMarket, error) {
	var resp gammaMarketsResponse
	if err := c.get(ctx, c.clobLimiter, url, &resp); err != nil {
		return gammaMarket{}, err
	}
	if len(resp) == 0 {
		return gammaMarket{}, fmt.Errorf("no market found")
	}
	return resp[0], nil
}

// completeFromCLOB joins Gamma's metadata with the CLOB's market record.
func (c *Client) completeFromCLOB(ctx context.Context, gm gammaMarket) (domain.Market, error) {
	m := mapGammaMarket(gm)

	url := fmt.Sprintf("%s%s/%s", c.clobBase, clobMarketsPath, m.ConditionID)
	var cm clobMarketResponse
	if err := c.get(ctx, c.clobLimiter, url, &cm); err != nil {
		// The CLOB record can 404 for markets Gamma already lists as closed
		// and unlisted; that's fine, tick size just defaults to 0.01.
		m.TickSize = 0.01
		return m, nil
	}
	applyClobMarket(&m, cm)
	return m, nil
}
