package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openpass-dev/openpass/internal/common"
	"github.com/openpass-dev/openpass/internal/dbx"
)

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts or replaces the record keyed by email_hash. On conflict
// the existing row keeps its id, so re-importing the same member yields
// the same member id.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *Record) (string, error) {
	query := `
		INSERT INTO members (id, email_hash, first_name_enc, last_name_enc, role, join_year)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email_hash)
		DO UPDATE SET
			first_name_enc = EXCLUDED.first_name_enc,
			last_name_enc = EXCLUDED.last_name_enc,
			role = EXCLUDED.role,
			join_year = EXCLUDED.join_year
		RETURNING id
	`
	var id string
	err := r.db.QueryRowContext(ctx, query,
		rec.ID, rec.EmailHash, rec.FirstNameEnc, rec.LastNameEnc, string(rec.Role), rec.JoinYear).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

// GetByEmailHash fetches one record by its lookup key.
func (r *PostgresRepository) GetByEmailHash(ctx context.Context, emailHash string) (*Record, error) {
	query := `
		SELECT id, email_hash, first_name_enc, last_name_enc, role, join_year FROM members
		WHERE email_hash = $1
	`
	rec := &Record{}
	var role string
	err := r.db.QueryRowContext(ctx, query, emailHash).Scan(
		&rec.ID, &rec.EmailHash, &rec.FirstNameEnc, &rec.LastNameEnc, &role, &rec.JoinYear)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	rec.Role = Role(role)
	return rec, nil
}
