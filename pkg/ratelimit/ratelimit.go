// Package ratelimit paces requests to a single directory site.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket with optional jitter added after each wait, so
// requests do not arrive on an exact cadence. It is safe for concurrent use.
type Limiter struct {
	lim      *rate.Limiter
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
}

// NewLimiter creates a limiter allowing rps requests per second with a burst
// of one. jitter is clamped to [0,1]. If rps <= 0 the limiter never blocks.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	if rps <= 0 {
		return &Limiter{jitter: jitter}
	}
	return &Limiter{
		lim:      rate.NewLimiter(rate.Limit(rps), 1),
		jitter:   jitter,
		interval: time.Duration(float64(time.Second) / rps),
	}
}

// Wait blocks until the next request may start or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.lim == nil {
		return ctx.Err()
	}
	if err := l.lim.Wait(ctx); err != nil {
		return err
	}
	if d := l.delay(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// delay returns a random extra wait in [0, jitter*interval].
func (l *Limiter) delay() time.Duration {
	if l.jitter == 0 {
		return 0
	}
	return time.Duration(rand.Float64() * l.jitter * float64(l.interval))
}

// Interval is the nominal spacing between requests, 0 when unlimited.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}
