package throttle_test

import (
	"testing"
	"time"

	"github.com/mdelgado/polycopy/internal/application/throttle"
	"github.com/stretchr/testify/assert"
)

// S6: three consecutive rate-limit signals raise the multiplier to at
// least 2x, and three subsequent successes recover it toward 1x.
func TestThrottle_S6_Backoff(t *testing.T) {
	th := throttle.New(250 * time.Millisecond)

	th.OnRateLimited()
	th.OnRateLimited()
	th.OnRateLimited()
	assert.GreaterOrEqual(t, th.Multiplier(), 2.0)

	for i := 0; i < 3; i++ {
		th.OnSuccess()
	}
	assert.Less(t, th.Multiplier(), 8.0)
}

func TestThrottle_NeverBelowOne(t *testing.T) {
	th := throttle.New(250 * time.Millisecond)
	th.OnSuccess()
	assert.Equal(t, 1.0, th.Multiplier())
}

func TestThrottle_CapsAtEight(t *testing.T) {
	th := throttle.New(250 * time.Millisecond)
	for i := 0; i < 10; i++ {
		th.OnRateLimited()
	}
	assert.Equal(t, 8.0, th.Multiplier())
}
