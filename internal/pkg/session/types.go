// internal/pkg/session/types.go
package session

import (
	"time"

	"workdesk-service/internal/domain/auth"
)

// Record is the persisted session state: token pair, identity snapshot and
// the authoritative expiry. It is stored as one value so readers never see a
// token without its expiry.
type Record struct {
	SessionID    string     `json:"session_id"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         *auth.User `json:"user"`
	IssuedAt     time.Time  `json:"issued_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// Expired reports whether the record's expiry has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
