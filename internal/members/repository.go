package members

import "context"

// Repository persists member records keyed by email hash.
type Repository interface {
	// Upsert writes or replaces the record with the given email hash and
	// returns the member id, which stays stable across re-imports.
	Upsert(ctx context.Context, rec *Record) (string, error)

	// GetByEmailHash returns the record for an email hash, or
	// common.ErrNotFound.
	GetByEmailHash(ctx context.Context, emailHash string) (*Record, error)
}
