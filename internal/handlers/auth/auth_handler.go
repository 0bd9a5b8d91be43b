// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"

	"workdesk-service/internal/domain/auth"
	"workdesk-service/internal/middleware"
	"workdesk-service/internal/pkg/response"
	"workdesk-service/internal/pkg/token"
	sessionsvc "workdesk-service/internal/service/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	registry *sessionsvc.Registry
	verifier *token.Verifier
	logger   *zap.Logger
}

func NewAuthHandler(registry *sessionsvc.Registry, verifier *token.Verifier, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		registry: registry,
		verifier: verifier,
		logger:   logger,
	}
}

// ========== Login ==========

// Login authenticates console credentials and opens a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	ctrl := h.registry.Create()
	sess, err := ctrl.Login(c.Request.Context(), req)
	if err != nil {
		h.registry.Remove(ctrl.SessionID())
		h.logger.Info("login failed",
			zap.String("username", req.Username),
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		h.authError(c, "login failed", err)
		return
	}

	h.logger.Info("user logged in",
		zap.String("username", sess.User.Username),
		zap.String("session_id", sess.ID),
	)

	response.Success(c, http.StatusOK, "login successful", auth.LoginResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(sess.ExpiresAt.Sub(sess.IssuedAt).Seconds()),
		ExpiresAt:    sess.ExpiresAt,
		User:         auth.NewUserInfo(sess.User),
	})
}

// ========== Logout ==========

// Logout clears the current session (requires auth). Idempotent.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctrl := middleware.MustGetController(c)
	ctrl.Logout(c.Request.Context())
	h.registry.Remove(ctrl.SessionID())

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// ========== Refresh ==========

// Refresh re-issues the token pair. The presented refresh token routes the
// request to its session; validation happens against the stored token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	claims, err := h.verifier.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "refresh failed", auth.ErrInvalidRefreshToken)
		return
	}

	ctrl, ok := h.registry.Get(c.Request.Context(), claims.SessionID)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "refresh failed", auth.ErrNoSession)
		return
	}

	sess, err := ctrl.RefreshSession(c.Request.Context())
	if err != nil {
		h.authError(c, "refresh failed", err)
		return
	}

	response.Success(c, http.StatusOK, "session refreshed", auth.LoginResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(sess.ExpiresAt.Sub(sess.IssuedAt).Seconds()),
		ExpiresAt:    sess.ExpiresAt,
		User:         auth.NewUserInfo(sess.User),
	})
}

// ========== Session state ==========

// Session returns the read-only session snapshot (requires auth).
func (h *AuthHandler) Session(c *gin.Context) {
	ctrl := middleware.MustGetController(c)
	response.Success(c, http.StatusOK, "session state", ctrl.Snapshot())
}

// Can reports whether the session may exercise a permission (requires auth).
func (h *AuthHandler) Can(c *gin.Context) {
	permission := c.Query("permission")
	if permission == "" {
		response.Error(c, http.StatusBadRequest, "permission is required", nil)
		return
	}

	ctrl := middleware.MustGetController(c)
	response.Success(c, http.StatusOK, "permission evaluated", gin.H{
		"permission": permission,
		"allowed":    ctrl.HasPermission(permission),
	})
}

// HasRole reports whether the session's identity holds a role (requires auth).
func (h *AuthHandler) HasRole(c *gin.Context) {
	roleID := c.Query("role")
	if roleID == "" {
		response.Error(c, http.StatusBadRequest, "role is required", nil)
		return
	}

	ctrl := middleware.MustGetController(c)
	response.Success(c, http.StatusOK, "role evaluated", gin.H{
		"role":     roleID,
		"has_role": ctrl.HasRole(roleID),
	})
}

// authError maps structured auth failures onto HTTP responses. Lockout
// responses carry the remaining wait; invalid-credential responses never say
// which part was wrong.
func (h *AuthHandler) authError(c *gin.Context, message string, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		response.Error(c, http.StatusInternalServerError, message, err)
		return
	}

	switch authErr.Kind {
	case auth.KindValidationFailed:
		response.Error(c, http.StatusBadRequest, message, authErr, gin.H{
			"violations": authErr.Violations,
		})
	case auth.KindRateLimited:
		response.Error(c, http.StatusTooManyRequests, message, authErr, gin.H{
			"retry_after_seconds": int(authErr.RetryAfter.Seconds()),
		})
	case auth.KindInvalidCredentials, auth.KindNoSession, auth.KindInvalidRefreshToken:
		response.Error(c, http.StatusUnauthorized, message, authErr)
	default:
		response.Error(c, http.StatusInternalServerError, message, authErr)
	}
}
