// Package ratelimit bounds the frequency of sensitive operations per
// identity. The gate's logic is independent of the concrete counter
// store; correctness under concurrent workers comes from the store's
// single atomic increment-with-expiry, never from process memory.
package ratelimit

import (
	"context"
	"time"
)

// CounterStore is the shared counter store reachable from all worker
// processes. Incr must be atomic: it bumps the counter for key within
// its current window, starting a fresh window of the given length when
// the previous one has expired, and returns the resulting count and the
// window expiry.
type CounterStore interface {
	Incr(ctx context.Context, key string, now time.Time, window time.Duration) (count int, expiresAt time.Time, err error)

	// Purge removes counters whose window expired before now, keeping
	// the table from growing without bound.
	Purge(ctx context.Context, now time.Time) error
}
