// Package ratelimit wraps github.com/joeycumines/go-utilpkg/catrate's
// sliding window limiter as a per-channel throttle, capping how fast codes
// or firmware-update chunks reach the controller without dropping or
// reordering them. The pipeline and the M997 handler do not call it.
package ratelimit

import (
	"context"
	"time"

	"github.com/joeycumines/go-utilpkg/catrate"

	"github.com/joeycumines/mctl/channel"
)

// Limiter wraps a catrate.Limiter, keyed by channel, so each input channel
// gets its own independent sliding-window budget.
type Limiter struct {
	inner *catrate.Limiter
}

// New builds a Limiter from a set of window/count pairs, e.g.
//
//	New(map[time.Duration]int{time.Second: 50, time.Minute: 2000})
//
// matching catrate.NewLimiter's monotonic-rate requirement.
func New(rates map[time.Duration]int) *Limiter {
	return &Limiter{inner: catrate.NewLimiter(rates)}
}

// Wait blocks until ch is permitted to send its next code, or ctx is done.
// Unlike Allow, it never drops the caller's event: on a denial it sleeps
// until the limiter's reported retry time and tries again, which is
// appropriate here since codes must still be dispatched in order, just not
// faster than the configured rate.
func (l *Limiter) Wait(ctx context.Context, ch channel.Channel) error {
	if l == nil || l.inner == nil {
		return nil
	}
	for {
		next, ok := l.inner.Allow(ch)
		if ok {
			return nil
		}
		d := time.Until(next)
		if d <= 0 {
			continue
		}
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

// Allow is the non-blocking variant, for callers (e.g. M997 chunk
// streaming) that would rather back off than hold a goroutine parked.
func (l *Limiter) Allow(ch channel.Channel) (time.Time, bool) {
	if l == nil || l.inner == nil {
		return time.Time{}, true
	}
	return l.inner.Allow(ch)
}
