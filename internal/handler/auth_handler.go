package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/auth-api/internal/audit"
	"github.com/noah-isme/auth-api/internal/middleware"
	"github.com/noah-isme/auth-api/internal/models"
	"github.com/noah-isme/auth-api/internal/service"
	appErrors "github.com/noah-isme/auth-api/pkg/errors"
	"github.com/noah-isme/auth-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest) error
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error)
	Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	metrics *service.MetricsService
	trail   *audit.Trail
}

// NewAuthHandler creates a new handler. The metrics service and audit
// trail may both be nil.
func NewAuthHandler(svc authService, metrics *service.MetricsService, trail *audit.Trail) *AuthHandler {
	return &AuthHandler{service: svc, metrics: metrics, trail: trail}
}

func (h *AuthHandler) recordEvent(c *gin.Context, action, outcome, username string) {
	h.trail.Record(audit.Event{
		Action:   action,
		Outcome:  outcome,
		Username: username,
		IP:       c.ClientIP(),
	})
}

// Register godoc
// @Summary Register a new account
// @Description Create a user with the default role. No tokens are issued; log in afterwards.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	if err := h.service.Register(c.Request.Context(), req); err != nil {
		code := appErrors.FromError(err).Code
		h.metrics.RecordRegistration(code)
		h.recordEvent(c, audit.ActionRegister, code, req.Username)
		response.Error(c, err)
		return
	}

	h.metrics.RecordRegistration(audit.OutcomeSuccess)
	h.recordEvent(c, audit.ActionRegister, audit.OutcomeSuccess, req.Username)
	response.JSON(c, http.StatusCreated, nil)
}

// Login godoc
// @Summary Authenticate a user
// @Description Verify username and password and issue an access/refresh token pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()

	pair, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		code := appErrors.FromError(err).Code
		h.metrics.RecordLogin(code)
		h.recordEvent(c, audit.ActionLogin, code, req.Username)
		response.Error(c, err)
		return
	}

	h.metrics.RecordLogin(audit.OutcomeSuccess)
	h.recordEvent(c, audit.ActionLogin, audit.OutcomeSuccess, req.Username)
	response.JSON(c, http.StatusOK, pair)
}

// Refresh godoc
// @Summary Rotate a refresh token
// @Description Exchange an active refresh token for a new token pair; the presented token is revoked
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
		return
	}
	req.IP = c.ClientIP()

	pair, err := h.service.Refresh(c.Request.Context(), req)
	if err != nil {
		code := appErrors.FromError(err).Code
		h.metrics.RecordRefresh(code)
		h.recordEvent(c, audit.ActionRefresh, code, "")
		response.Error(c, err)
		return
	}

	h.metrics.RecordRefresh(audit.OutcomeSuccess)
	h.recordEvent(c, audit.ActionRefresh, audit.OutcomeSuccess, "")
	response.JSON(c, http.StatusOK, pair)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's claims
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	jwtClaims := claims.(*models.JWTClaims)
	response.JSON(c, http.StatusOK, gin.H{
		"username": jwtClaims.Username,
		"role":     jwtClaims.Role,
	})
}

// Secret godoc
// @Summary Authorization probe
// @Description Reachable by any authenticated user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/secret [get]
func (h *AuthHandler) Secret(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"message": "you are authorized"})
}

// AdminData godoc
// @Summary Admin-only probe
// @Description Reachable only by users with the Admin role
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/admin-data [get]
func (h *AuthHandler) AdminData(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"message": "only admins see this"})
}
