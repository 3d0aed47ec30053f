// Package ratelimit guards a single connection against message bursts.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter admits up to events messages per window, refilling continuously.
type Limiter struct {
	lim *rate.Limiter
}

// New returns a limiter allowing events per window. A non-positive events
// or window disables limiting.
func New(events int, window time.Duration) *Limiter {
	if events <= 0 || window <= 0 {
		return &Limiter{lim: rate.NewLimiter(rate.Inf, 0)}
	}
	return &Limiter{lim: rate.NewLimiter(rate.Every(window/time.Duration(events)), events)}
}

func (l *Limiter) Allow() bool { return l.lim.Allow() }

// AllowAt reports whether a message arriving at t is admitted.
func (l *Limiter) AllowAt(t time.Time) bool { return l.lim.AllowN(t, 1) }
