package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/openpass-dev/openpass/internal/dbx"
)

// PostgresCounterStore implements CounterStore on a shared table. The
// whole increment-with-rollover is one upsert statement, so two workers
// racing on the same key serialize inside the database and each sees its
// own count.
type PostgresCounterStore struct {
	db dbx.DBTX
}

func NewPostgresCounterStore(db dbx.DBTX) *PostgresCounterStore {
	return &PostgresCounterStore{db: db}
}

// Window expiries are stored as unix seconds so the statement runs on the
// in-memory stand-in used by tests as well.
func (s *PostgresCounterStore) Incr(ctx context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	query := `
		INSERT INTO rate_limit_counters (counter_key, count, window_expires_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (counter_key)
		DO UPDATE SET
			count = CASE
				WHEN rate_limit_counters.window_expires_at <= $3 THEN 1
				ELSE rate_limit_counters.count + 1
			END,
			window_expires_at = CASE
				WHEN rate_limit_counters.window_expires_at <= $3 THEN $2
				ELSE rate_limit_counters.window_expires_at
			END
		RETURNING count, window_expires_at
	`

	var count int
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, query,
		key, now.Add(window).Unix(), now.Unix()).Scan(&count, &expiresAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("db error: %w", err)
	}

	return count, time.Unix(expiresAt, 0), nil
}

func (s *PostgresCounterStore) Purge(ctx context.Context, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_limit_counters WHERE window_expires_at <= $1`, now.Unix())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
