package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/auth-api/internal/models"
)

// RefreshTokenRepository provides database access for refresh tokens.
type RefreshTokenRepository struct {
	db *sqlx.DB
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository.
func NewRefreshTokenRepository(db *sqlx.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Create persists a refresh token and assigns the generated id. The
// unique constraint on the token value is the backstop against the
// negligible chance of a random collision.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	const query = `INSERT INTO refresh_tokens (user_id, token, created_at, expires_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, token.UserID, token.Token, token.CreatedAt, token.ExpiresAt).Scan(&token.ID); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindByToken returns a refresh token by value with its owning user
// eagerly resolved. Activity checks require the owner, so a token whose
// user cannot be loaded is never returned as valid.
func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT rt.id, rt.user_id, rt.token, rt.created_at, rt.expires_at, rt.revoked_at, rt.revoked_by_ip,
		u.id AS "user.id", u.username AS "user.username", u.password_hash AS "user.password_hash", u.password_salt AS "user.password_salt", u.blocked AS "user.blocked", u.role AS "user.role", u.created_at AS "user.created_at"
		FROM refresh_tokens rt
		JOIN users u ON u.id = rt.user_id
		WHERE rt.token = $1 LIMIT 1`

	var row struct {
		models.RefreshToken
		Owner models.User `db:"user"`
	}
	if err := r.db.GetContext(ctx, &row, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	rt := row.RefreshToken
	rt.User = &row.Owner
	return &rt, nil
}

// RevokeIfActive stamps the revocation timestamp and originating IP on a
// token, but only when the token is still active. It reports whether the
// revocation was applied. Two concurrent rotations of the same token race
// on this conditional update; at most one observes true.
func (r *RefreshTokenRepository) RevokeIfActive(ctx context.Context, id int64, revokedAt time.Time, ip string) (bool, error) {
	const query = `UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3 WHERE id = $1 AND revoked_at IS NULL AND expires_at > $2`
	res, err := r.db.ExecContext(ctx, query, id, revokedAt, ip)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return affected == 1, nil
}

// RevokeAllForUser revokes every still-active token of a user, for
// blocking an account or forcing re-authentication. It returns the
// number of tokens revoked.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64, revokedAt time.Time, ip string) (int64, error) {
	const query = `UPDATE refresh_tokens SET revoked_at = $2, revoked_by_ip = $3 WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2`
	res, err := r.db.ExecContext(ctx, query, userID, revokedAt, ip)
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return affected, nil
}
