// internal/pkg/token/claims.go
package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Purpose discriminates access tokens from refresh tokens.
const (
	PurposeAccess  = "access"
	PurposeRefresh = "refresh"
)

// Claims carried by both token kinds. Subject is the user id; SessionID ties
// every token of a session to one persisted record. Authorization decisions
// never read these claims — they use the identity snapshot in the session
// store. Tokens only prove the session was legitimately issued.
type Claims struct {
	Username  string `json:"username,omitempty"`
	RoleID    string `json:"role_id,omitempty"`
	SessionID string `json:"sid"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}
