// Package ratelimit paces outbound calls to third-party APIs with per-minute quotas.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/kailas-cloud/expatscout/internal/metrics"
)

// Limiter is a token bucket sized from a requests-per-minute quota.
// A nil *Limiter never waits.
type Limiter struct {
	target string
	lim    *rate.Limiter
}

// New returns a limiter for target, or nil when rpm <= 0 (unlimited).
func New(target string, rpm int) *Limiter {
	if rpm <= 0 {
		return nil
	}
	burst := max(1, rpm/10)
	return &Limiter{
		target: target,
		lim:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
	}
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	start := time.Now()
	err := l.lim.Wait(ctx)
	metrics.RateLimitWaitSeconds.WithLabelValues(l.target).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s rate limit: %w", l.target, err)
	}
	return nil
}
