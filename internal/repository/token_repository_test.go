package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)

	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens`).
		WithArgs("live-hash", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens`).
		WithArgs("revoked-hash", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	uid, err := repo.ValidateRefresh(context.Background(), "live-hash")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = repo.ValidateRefresh(context.Background(), "revoked-hash")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_StoreAndRevoke(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)

	exp := time.Date(2025, 4, 1, 12, 0, 0, 0, time.FixedZone("AST", 3*3600))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs("u1", "h1", exp.UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP\(\) WHERE user_id = \?`).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.StoreRefresh(context.Background(), "u1", "h1", exp))
	require.NoError(t, repo.RevokeAllForUser(context.Background(), "u1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
