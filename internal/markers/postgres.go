package markers

import (
	"context"
	"fmt"
	"time"

	"github.com/openpass-dev/openpass/internal/dbx"
)

// PostgresStore implements Store on a shared table. The conflict-ignoring
// insert is the atomic check-and-mark: one affected row means the claim
// won, zero means the nonce was already used.
type PostgresStore struct {
	db dbx.DBTX
}

func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Consume(ctx context.Context, nonce string, expiresAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO one_time_markers (nonce, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (nonce) DO NOTHING
	`, nonce, expiresAt.Unix())
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Purge(ctx context.Context, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM one_time_markers WHERE expires_at <= $1`, now.Unix())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
