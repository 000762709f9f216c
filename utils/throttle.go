package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle paces sequential calls to a rate-limited external service.
// The first call passes immediately; each later call waits until at least
// Interval has elapsed since the previous one. A zero interval disables pacing.
type Throttle struct {
	interval time.Duration
	limiter  *rate.Limiter
}

// NewThrottle creates a Throttle allowing one call per interval.
func NewThrottle(interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Interval returns the configured spacing between calls.
func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Wait blocks until the next call is allowed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
