package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/auth-api/internal/models"
)

func TestRefreshTokenCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectQuery("INSERT INTO refresh_tokens").
		WithArgs(int64(1), "opaque-token", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	token := &models.RefreshToken{UserID: 1, Token: "opaque-token", CreatedAt: time.Now().UTC(), ExpiresAt: time.Now().UTC().Add(time.Hour)}
	err := repo.Create(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), token.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByTokenResolvesOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "token", "created_at", "expires_at", "revoked_at", "revoked_by_ip",
		"user.id", "user.username", "user.password_hash", "user.password_salt", "user.blocked", "user.role", "user.created_at",
	}).AddRow(
		int64(42), int64(1), "opaque-token", now, now.Add(time.Hour), nil, nil,
		int64(1), "alice", []byte("hash"), []byte("salt"), false, models.RoleUser, now,
	)
	mock.ExpectQuery("SELECT rt.id, rt.user_id, rt.token").
		WithArgs("opaque-token").
		WillReturnRows(rows)

	token, err := repo.FindByToken(context.Background(), "opaque-token")
	require.NoError(t, err)
	assert.Equal(t, int64(42), token.ID)
	require.NotNil(t, token.User)
	assert.Equal(t, "alice", token.User.Username)
	assert.Equal(t, token.UserID, token.User.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByTokenMissPassesThroughErrNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectQuery("SELECT rt.id, rt.user_id, rt.token").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByToken(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeIfActiveApplied(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(int64(42), sqlmock.AnyArg(), "1.2.3.4").
		WillReturnResult(sqlmock.NewResult(0, 1))

	revoked, err := repo.RevokeIfActive(context.Background(), 42, time.Now().UTC(), "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeIfActiveAlreadyRevoked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(int64(42), sqlmock.AnyArg(), "1.2.3.4").
		WillReturnResult(sqlmock.NewResult(0, 0))

	revoked, err := repo.RevokeIfActive(context.Background(), 42, time.Now().UTC(), "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAllForUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(int64(1), sqlmock.AnyArg(), "1.2.3.4").
		WillReturnResult(sqlmock.NewResult(0, 3))

	revoked, err := repo.RevokeAllForUser(context.Background(), 1, time.Now().UTC(), "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(3), revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
