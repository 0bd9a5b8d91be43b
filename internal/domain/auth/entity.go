// internal/domain/auth/entity.go
package auth

import (
	"context"
	"time"
)

// Action is a permission verb.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// Wildcard matches any resource or any action depending on position.
const Wildcard = "*"

// Permission grants a single action on a resource. A Wildcard resource
// grants the action on everything.
type Permission struct {
	Resource string `json:"resource"`
	Action   Action `json:"action"`
}

func (p Permission) String() string {
	return p.Resource + "." + string(p.Action)
}

// Role is a coarse privilege grouping. Level is a display ranking only and
// is never consulted for access decisions.
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Level       int      `json:"level"`
	Permissions []string `json:"permissions"` // patterns: "projects.read", "projects.*", "*"
}

// User is the identity snapshot carried by a session. It is immutable once
// issued into a session; a new login produces a fresh snapshot.
type User struct {
	ID            string       `json:"id"`
	Username      string       `json:"username"`
	DisplayName   string       `json:"display_name"`
	DisplayNameAr string       `json:"display_name_ar,omitempty"`
	Role          Role         `json:"role"`
	Permissions   []Permission `json:"permissions"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Session is an issued token pair bound to a user snapshot. While a session
// is treated as authenticated its expiry must lie strictly in the future.
type Session struct {
	ID           string    `json:"id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	User         *User     `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TimeUntilExpiry reports how long the session remains valid at now.
func (s *Session) TimeUntilExpiry(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// Account pairs a user snapshot with its credential hash. The hash never
// leaves the directory boundary.
type Account struct {
	User         User
	PasswordHash string
}

// Directory resolves usernames to accounts. Implementations: postgres
// repository (production) and seeded in-memory directory (dev, tests).
type Directory interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
}
