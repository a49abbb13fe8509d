// Package ratelimit throttles checkout submissions per client with a sliding
// window, so one client cannot drain a distance's places or an item's stock
// with a burst of scripted orders.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long a denied caller should wait, rounded up to a
// whole second.
func (r *Result) RetryAfter(now time.Time) int {
	wait := r.ResetAt.Sub(now)
	if wait <= 0 {
		return 1
	}
	return int((wait + time.Second - 1) / time.Second)
}

// Store counts requests in a sliding window. Allow records the request only
// when it is admitted.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}
