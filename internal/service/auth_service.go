package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/auth-api/internal/models"
	"github.com/noah-isme/auth-api/internal/repository"
	appErrors "github.com/noah-isme/auth-api/pkg/errors"
	"github.com/noah-isme/auth-api/pkg/password"
)

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type refreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeIfActive(ctx context.Context, id int64, revokedAt time.Time, ip string) (bool, error)
}

// AuthService orchestrates the credential lifecycle: registration,
// authentication and refresh token rotation. It holds no mutable state
// of its own and is safe to call concurrently.
type AuthService struct {
	users     userRepository
	tokens    refreshTokenRepository
	issuer    *TokenIssuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users userRepository, tokens refreshTokenRepository, issuer *TokenIssuer, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{users: users, tokens: tokens, issuer: issuer, validator: validate, logger: logger}
}

// Register creates a new account with the default role. No tokens are
// issued on registration; the user must log in.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	username := normalizeUsername(req.Username)

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return appErrors.ErrUsernameInUse
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}

	hash, salt, err := password.CreateHash(req.Password)
	if err != nil {
		return err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		PasswordSalt: salt,
		Role:         models.RoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// The pre-check races with concurrent registrations; the unique
		// constraint is authoritative.
		if repository.IsUniqueViolation(err) {
			return appErrors.ErrUsernameInUse
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist user")
	}

	s.logger.Info("user registered", zap.String("username", username))
	return nil
}

// Login authenticates a username/password pair and returns a fresh token
// pair. Unknown usernames and wrong passwords yield the exact same error,
// and the blocked flag is checked only after the password verified, so a
// caller without valid credentials cannot probe account state.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByUsername(ctx, normalizeUsername(req.Username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	ok, err := password.Verify(req.Password, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.ErrInvalidCredentials
	}

	if user.Blocked {
		return nil, appErrors.ErrUserBlocked
	}

	refreshToken, err := s.issuer.CreateRefreshToken(user.ID, req.IP)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	if err := s.tokens.Create(ctx, refreshToken); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	accessToken, err := s.issuer.CreateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("user authenticated", zap.String("username", user.Username), zap.String("ip", req.IP))
	return &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken.Token}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued from it. Missing, expired and revoked tokens all
// yield the same error so the response does not leak whether a value was
// ever valid. The conditional revoke in the store is the atomic gate:
// of two concurrent rotations of one token, at most one wins.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error) {
	token, err := s.tokens.FindByToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRefreshTokenExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}

	if !token.Active() {
		return nil, appErrors.ErrRefreshTokenExpired
	}
	if token.User == nil {
		return nil, appErrors.Wrap(errors.New("owning user not resolved"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "refresh token has no user")
	}

	revoked, err := s.tokens.RevokeIfActive(ctx, token.ID, time.Now().UTC(), req.IP)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}
	if !revoked {
		// Lost the race against a concurrent rotation of the same token.
		return nil, appErrors.ErrRefreshTokenExpired
	}

	newToken, err := s.issuer.CreateRefreshToken(token.UserID, req.IP)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	if err := s.tokens.Create(ctx, newToken); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	accessToken, err := s.issuer.CreateAccessToken(token.User)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("refresh token rotated", zap.Int64("user_id", token.UserID), zap.String("ip", req.IP))
	return &models.TokenPair{AccessToken: accessToken, RefreshToken: newToken.Token}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims, err := s.issuer.ParseAccessToken(tokenString)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	return claims, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
