// Package ratelimit enforces a minimum spacing between the starts of
// successive outbound generation calls, shared by every worker of a run.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outbound calls so that no two of them start closer together
// than 60s / requestsPerMinute, however the workers are scheduled.
//
// The limiter is the sole owner of the "earliest next call" boundary. It is
// backed by a token bucket of burst 1: each Acquire reserves the next free
// slot and advances the boundary under the bucket's lock, then sleeps until
// its slot outside the lock. Two callers can therefore never both observe a
// free slot at the same instant.
//
// Slots are spaced from the previous reserved slot, not from the moment its
// caller actually woke up. A caller whose timer fires late does not push the
// next slot back, so the observed gap after it can fall short of the spacing
// by that lateness (a few hundred microseconds under normal scheduling).
type Limiter struct {
	spacing time.Duration
	bucket  *rate.Limiter // nil when unlimited
}

// New creates a Limiter for the given calls-per-minute cap.
// A cap of zero (or less) means unlimited.
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		return &Limiter{}
	}
	spacing := time.Minute / time.Duration(requestsPerMinute)
	return &Limiter{
		spacing: spacing,
		bucket:  rate.NewLimiter(rate.Every(spacing), 1),
	}
}

// Acquire blocks until the caller may start its call and records that start.
// When unlimited it returns immediately without bookkeeping. The only error
// is the cancellation of ctx while waiting; a canceled wait gives its slot back.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.bucket == nil {
		return nil
	}
	return l.bucket.Wait(ctx)
}

// Spacing returns the minimum gap between call starts, zero when unlimited.
func (l *Limiter) Spacing() time.Duration {
	return l.spacing
}

// Unlimited reports whether the limiter lets every call through immediately.
func (l *Limiter) Unlimited() bool {
	return l.bucket == nil
}
