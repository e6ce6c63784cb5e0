package service

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/auth-api/internal/models"
	"github.com/noah-isme/auth-api/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:          "test-secret",
		Issuer:          "auth-api",
		Audience:        "auth-api-clients",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

func TestCreateAccessTokenRoundtrip(t *testing.T) {
	issuer := NewTokenIssuer(testJWTConfig())
	user := &models.User{ID: 1, Username: "alice", Role: models.RoleAdmin}

	signed, err := issuer.CreateAccessToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := issuer.ParseAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "auth-api", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	expiry := claims.ExpiresAt.Time
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), expiry, 5*time.Second)
}

func TestParseAccessTokenRejectsWrongMethod(t *testing.T) {
	cfg := testJWTConfig()
	issuer := NewTokenIssuer(cfg)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = issuer.ParseAccessToken(signed)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	other := cfg
	other.Issuer = "someone-else"

	signed, err := NewTokenIssuer(other).CreateAccessToken(&models.User{Username: "alice", Role: models.RoleUser})
	require.NoError(t, err)

	_, err = NewTokenIssuer(cfg).ParseAccessToken(signed)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.AccessTokenTTL = -time.Minute
	signed, err := NewTokenIssuer(cfg).CreateAccessToken(&models.User{Username: "alice", Role: models.RoleUser})
	require.NoError(t, err)

	_, err = NewTokenIssuer(testJWTConfig()).ParseAccessToken(signed)
	require.Error(t, err)
}

func TestCreateRefreshToken(t *testing.T) {
	issuer := NewTokenIssuer(testJWTConfig())

	token, err := issuer.CreateRefreshToken(42, "1.2.3.4")
	require.NoError(t, err)

	assert.Equal(t, int64(42), token.UserID)
	assert.Nil(t, token.RevokedAt)

	raw, err := base64.RawURLEncoding.DecodeString(token.Token)
	require.NoError(t, err)
	assert.Len(t, raw, refreshTokenBytes)

	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), token.ExpiresAt, 5*time.Second)
	assert.WithinDuration(t, time.Now().UTC(), token.CreatedAt, 5*time.Second)
}

func TestCreateRefreshTokenValuesAreUnique(t *testing.T) {
	issuer := NewTokenIssuer(testJWTConfig())

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := issuer.CreateRefreshToken(1, "")
		require.NoError(t, err)
		_, dup := seen[token.Token]
		require.False(t, dup)
		seen[token.Token] = struct{}{}
	}
}
