package supervisor

import (
	"testing"
	"time"

	"github.com/mdelgado/polycopy/internal/domain"
	"github.com/stretchr/testify/assert"
)

// S4: SPLIT below 0.5 is floored to 0.5 and replicates as a BUY; REDEEM
// replicates as a SELL closing the existing position.
func TestNormalizeSplitRedeem_S4(t *testing.T) {
	split := domain.ActivityEvent{
		ActivityType: domain.ActivitySplit,
		Price:        0.2,
		Timestamp:    time.Now(),
	}
	normalized := normalizeSplitRedeem(split)
	assert.Equal(t, 0.5, normalized.Price)
	assert.Equal(t, domain.SideBuy, normalized.ReplicaSide())

	splitAbove := domain.ActivityEvent{ActivityType: domain.ActivitySplit, Price: 0.7}
	assert.Equal(t, 0.7, normalizeSplitRedeem(splitAbove).Price)

	redeem := domain.ActivityEvent{ActivityType: domain.ActivityRedeem, Price: 1.0}
	normalizedRedeem := normalizeSplitRedeem(redeem)
	assert.Equal(t, domain.SideSell, normalizedRedeem.ReplicaSide())

	merge := domain.ActivityEvent{ActivityType: domain.ActivityMerge}
	assert.Equal(t, domain.SideSell, normalizeSplitRedeem(merge).ReplicaSide())
}
