// Package common defines the sentinel errors shared across the openpass
// security subsystem. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Token verification errors. The app boundary collapses all four into
	// ErrInvalidToken before anything reaches an end user.
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenTampered     = errors.New("token tampered")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenWrongPurpose = errors.New("token wrong purpose")

	// ErrInvalidToken is the single caller-visible token failure. Which of
	// the four verification errors caused it is logged, never returned.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrIntegrity is a decryption authentication failure: corrupted data
	// or a key mismatch. Fatal to the operation, never retried with a
	// fallback key.
	ErrIntegrity = errors.New("integrity check failed")

	// Resource access errors.
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// Validation errors (row-scoped during import).
	ErrValidation = errors.New("validation error")

	ErrInternal = errors.New("internal error")
)
