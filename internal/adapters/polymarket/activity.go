package polymarket

// activity.go implements ports.ActivityProvider (C7's poll leg): the public
// Data API's per-wallet activity feed, covering TRADE/SPLIT/MERGE/REDEEM.

import (
	"context"
	"fmt"
	"sort"

	"github.com/mdelgado/polycopy/internal/domain"
)

const activityPath = "/activity"

// FetchActivity returns target's most recent on-chain/CLOB activity, capped
// at limit. The API is queried newest first so the cap keeps the latest
// entries; the batch is returned sorted oldest first.
func (c *Client) FetchActivity(ctx context.Context, target string, limit int) ([]domain.ActivityEvent, error) {
	url := fmt.Sprintf("%s%s?user=%s&limit=%d&sortBy=TIMESTAMP&sortDirection=DESC", c.dataBase, activityPath, target, limit)

	var resp []activityEntry
	if err := c.get(ctx, c.activityLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("activity.FetchActivity(%s): %w", target, err)
	}

	events := make([]domain.ActivityEvent, 0, len(resp))
	for _, a := range resp {
		events = append(events, mapActivityEntry(target, a))
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}
