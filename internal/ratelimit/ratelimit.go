// Package ratelimit gates the accept loop's rate of handing new
// connections to the queue, protecting the single backend connection
// from a connection storm. Disabled by default.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter for the accept loop's one call site.
type Limiter struct {
	rl *rate.Limiter
}

// New creates a limiter allowing ratePerSecond accepts/second with
// bursts up to burst. ratePerSecond <= 0 disables limiting (Wait always
// returns immediately).
func New(ratePerSecond float64, burst int) *Limiter {
	if ratePerSecond <= 0 {
		return &Limiter{rl: rate.NewLimiter(rate.Inf, burst)}
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until an accept token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}
