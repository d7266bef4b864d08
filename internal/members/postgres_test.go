package members

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/openpass-dev/openpass/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestPostgresRepository_Upsert_ReturnsExistingID(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewPostgresRepository(db)

	rec := &Record{
		ID:           "new-id",
		EmailHash:    "abc123",
		FirstNameEnc: []byte{1, 2},
		LastNameEnc:  []byte{3, 4},
		Role:         RoleMember,
		JoinYear:     2019,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO members")).
		WithArgs(rec.ID, rec.EmailHash, rec.FirstNameEnc, rec.LastNameEnc, "member", rec.JoinYear).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	id, err := repo.Upsert(context.Background(), rec)
	require.NoError(t, err)
	// on conflict the row keeps its original id
	assert.Equal(t, "existing-id", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Upsert_WrapsDBError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO members")).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Upsert(context.Background(), &Record{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestPostgresRepository_GetByEmailHash(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewPostgresRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email_hash", "first_name_enc", "last_name_enc", "role", "join_year"}).
		AddRow("id-1", "abc123", []byte{1}, []byte{2}, "board", 2015)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email_hash, first_name_enc, last_name_enc, role, join_year FROM members")).
		WithArgs("abc123").
		WillReturnRows(rows)

	rec, err := repo.GetByEmailHash(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, RoleBoard, rec.Role)
	assert.Equal(t, 2015, rec.JoinYear)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByEmailHash_NotFound(t *testing.T) {
	db, mock := newSQLMockDB(t)
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM members")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmailHash(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
