// Package logging defines the structured-logging interface used across the
// openpass security subsystem. Log lines carry hashes and storage ids only;
// plaintext emails, names and key material must never reach a logger.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// key-value pairs, e.g.:
//
//	log.Info(ctx, "photo stored", "owner_hash", h, "storage_id", id)
type Logger interface {
	// Debug logs fine-grained diagnostics, disabled in production.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs unusual but non-fatal conditions (failed verifications,
	// denied rate limits).
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given
	// key-value pairs.
	With(args ...any) Logger
}
