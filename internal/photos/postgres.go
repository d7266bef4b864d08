package photos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openpass-dev/openpass/internal/common"
	"github.com/openpass-dev/openpass/internal/dbx"
)

// PostgresPointerRepository implements PointerRepository. Swap runs inside
// a transaction so a concurrent reader sees either the old or the new
// pointer, never an intermediate state.
type PostgresPointerRepository struct {
	db *sql.DB
}

func NewPostgresPointerRepository(db *sql.DB) *PostgresPointerRepository {
	return &PostgresPointerRepository{db: db}
}

func (r *PostgresPointerRepository) Swap(ctx context.Context, ownerHash, newStorageID string) (string, error) {
	var old string
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := tx.QueryRowContext(ctx,
			`SELECT storage_id FROM photos WHERE owner_hash = $1 FOR UPDATE`,
			ownerHash).Scan(&old)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("db error: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO photos (owner_hash, storage_id, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (owner_hash)
			DO UPDATE SET storage_id = EXCLUDED.storage_id, updated_at = now()
		`, ownerHash, newStorageID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return old, nil
}

func (r *PostgresPointerRepository) GetOwner(ctx context.Context, storageID string) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_hash FROM photos WHERE storage_id = $1`,
		storageID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return owner, nil
}

func (r *PostgresPointerRepository) Remove(ctx context.Context, ownerHash string) (string, error) {
	var storageID string
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM photos WHERE owner_hash = $1 RETURNING storage_id`,
		ownerHash).Scan(&storageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return storageID, nil
}
