package ratelimit

import (
	"context"
	"time"

	"github.com/openpass-dev/openpass/internal/logging"
)

// Decision is the outcome of a gate check. Denied is a normal,
// expected outcome the caller must handle, never an error: callers show
// the same generic response for throttled and unknown identities.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Gate enforces per-identity ceilings for sensitive operations.
type Gate struct {
	store   CounterStore
	timeout time.Duration
	now     func() time.Time
	log     logging.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the gate's clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate builds a gate over the shared counter store. timeout bounds
// every store call; an unreachable store denies rather than waives the
// limit.
func NewGate(store CounterStore, timeout time.Duration, log logging.Logger, opts ...Option) *Gate {
	g := &Gate{
		store:   store,
		timeout: timeout,
		now:     time.Now,
		log:     log.With("component", "ratelimit"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow performs a single atomic check-and-increment for identityKey and
// operation against the configured ceiling. The first limit calls within
// a window are Allowed with the remaining budget; further calls are
// Denied with the time until the window resets. Store failures and
// timeouts fail closed.
func (g *Gate) Allow(ctx context.Context, identityKey, operation string, limit int, window time.Duration) Decision {
	now := g.now()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	count, expiresAt, err := g.store.Incr(ctx, operation+":"+identityKey, now, window)
	if err != nil {
		g.log.Error(ctx, "counter store unavailable, denying", "operation", operation, "error", err.Error())
		return Decision{Allowed: false, RetryAfter: window}
	}

	if count > limit {
		retry := expiresAt.Sub(now)
		if retry < 0 {
			retry = 0
		}
		g.log.Warn(ctx, "rate limit exceeded", "operation", operation, "identity_key", identityKey, "count", count)
		return Decision{Allowed: false, RetryAfter: retry}
	}

	return Decision{Allowed: true, Remaining: limit - count}
}
