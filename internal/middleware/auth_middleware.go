// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"workdesk-service/internal/pkg/response"
	"workdesk-service/internal/pkg/token"
	sessionsvc "workdesk-service/internal/service/session"

	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	verifier *token.Verifier
	registry *sessionsvc.Registry
}

func NewAuthMiddleware(verifier *token.Verifier, registry *sessionsvc.Registry) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		registry: registry,
	}
}

// Auth validates the bearer access token and resolves the controller owning
// its session. The token only proves the session was legitimately issued;
// capability checks read the stored identity snapshot, not the claims.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.verifier.VerifyAccessToken(raw)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		ctrl, ok := m.registry.Get(c.Request.Context(), claims.SessionID)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "session not found or expired", nil)
			return
		}

		c.Set("session_id", claims.SessionID)
		c.Set("user_id", claims.Subject)
		c.Set("username", claims.Username)
		c.Set("controller", ctrl)

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
