package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/auth-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestUserCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (username, password_hash, password_salt, blocked, role, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id")).
		WithArgs("alice", []byte("hash"), []byte("salt"), false, models.RoleUser, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	user := &models.User{Username: "alice", PasswordHash: []byte("hash"), PasswordSalt: []byte("salt"), Role: models.RoleUser}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateUniqueViolationPassesThrough(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	pqErr := &pq.Error{Code: "23505", Constraint: "users_username_key"}
	mock.ExpectQuery("INSERT INTO users").WillReturnError(pqErr)

	err := repo.Create(context.Background(), &models.User{Username: "alice", Role: models.RoleUser})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "password_salt", "blocked", "role", "created_at"}).
		AddRow(int64(1), "alice", []byte("hash"), []byte("salt"), false, models.RoleUser, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash, password_salt, blocked, role, created_at FROM users WHERE username = $1 LIMIT 1")).
		WithArgs("alice").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, []byte("hash"), user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByUsernameMissPassesThroughErrNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT .* FROM users").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUsername(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "password_salt", "blocked", "role", "created_at"}).
		AddRow(int64(3), "bob", []byte("hash"), []byte("salt"), true, models.RoleAdmin, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash, password_salt, blocked, role, created_at FROM users WHERE id = $1 LIMIT 1")).
		WithArgs(int64(3)).
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.True(t, user.Blocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetBlocked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET blocked = $2 WHERE id = $1")).
		WithArgs(int64(3), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.SetBlocked(context.Background(), 3, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetBlockedUnknownUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("UPDATE users SET blocked").
		WithArgs(int64(99), false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.SetBlocked(context.Background(), 99, false)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(nil))
}
