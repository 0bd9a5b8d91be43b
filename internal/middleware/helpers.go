// internal/middleware/helpers.go
package middleware

import (
	"github.com/gin-gonic/gin"

	sessionsvc "workdesk-service/internal/service/session"
)

// MustGetSessionID gets the session id from context or panics
func MustGetSessionID(c *gin.Context) string {
	sessionID, exists := c.Get("session_id")
	if !exists {
		panic("session_id not found in context")
	}
	return sessionID.(string)
}

// MustGetController gets the session controller from context or panics
func MustGetController(c *gin.Context) *sessionsvc.Controller {
	ctrl, exists := c.Get("controller")
	if !exists {
		panic("controller not found in context")
	}
	return ctrl.(*sessionsvc.Controller)
}

// GetUsername gets the authenticated username from context
func GetUsername(c *gin.Context) string {
	username, exists := c.Get("username")
	if !exists {
		return ""
	}
	name, ok := username.(string)
	if !ok {
		return ""
	}
	return name
}
