// Package throttle implements the domain-stack outbound throttler used by
// C6 and C7 (§4.6, §9), each of which builds its own instance: a base
// spacing limiter whose multiplier doubles
// on each consecutive rate-limit error, capped at 8x, and decays 10% on
// each success.
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxMultiplier = 8.0
	decayFactor   = 0.9
	minMultiplier = 1.0
)

// Throttle meters outbound requests at base spacing, widened under
// sustained rate-limiting and narrowed back down as calls succeed.
type Throttle struct {
	mu         sync.Mutex
	base       time.Duration
	multiplier float64
	limiter    *rate.Limiter
}

// New builds a Throttle at base spacing with burst 1.
func New(base time.Duration) *Throttle {
	return &Throttle{
		base:       base,
		multiplier: minMultiplier,
		limiter:    rate.NewLimiter(rate.Every(base), 1),
	}
}

// Wait blocks until the next slot is available or ctx is cancelled.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// Multiplier reports the current spacing multiplier, for tests/metrics.
func (t *Throttle) Multiplier() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.multiplier
}

// OnRateLimited doubles the spacing multiplier, capped at 8x.
func (t *Throttle) OnRateLimited() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.multiplier *= 2
	if t.multiplier > maxMultiplier {
		t.multiplier = maxMultiplier
	}
	t.limiter.SetLimit(rate.Every(time.Duration(float64(t.base) * t.multiplier)))
}

// OnSuccess decays the spacing multiplier by 10%, floored at 1x.
func (t *Throttle) OnSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.multiplier <= minMultiplier {
		return
	}
	t.multiplier *= decayFactor
	if t.multiplier < minMultiplier {
		t.multiplier = minMultiplier
	}
	t.limiter.SetLimit(rate.Every(time.Duration(float64(t.base) * t.multiplier)))
}
