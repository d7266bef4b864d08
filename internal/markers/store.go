// Package markers provides the one-time marker store that makes email
// login links strictly single-use: the first claim of a token's nonce
// wins, every later claim fails. Claiming is a single atomic insert, so
// there is no race window between checking a nonce and marking it used.
package markers

import (
	"context"
	"time"
)

// Store claims one-time nonces.
type Store interface {
	// Consume attempts to claim nonce. It returns true exactly once per
	// nonce; expiresAt lets the store drop the marker once the token it
	// belongs to can no longer verify anyway.
	Consume(ctx context.Context, nonce string, expiresAt time.Time) (bool, error)

	// Purge removes markers that expired before now.
	Purge(ctx context.Context, now time.Time) error
}
