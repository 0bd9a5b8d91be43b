// internal/domain/auth/dto.go
package auth

import "time"

// LoginRequest for console login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

// LoginResponse successful login response
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         UserInfo  `json:"user"`
}

// RefreshRequest carries the refresh token for token renewal
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserInfo minimal user information exposed to consumers
type UserInfo struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	DisplayName   string   `json:"display_name"`
	DisplayNameAr string   `json:"display_name_ar,omitempty"`
	RoleID        string   `json:"role_id"`
	RoleName      string   `json:"role_name"`
	Permissions   []string `json:"permissions"`
}

// NewUserInfo flattens a user snapshot for API consumers.
func NewUserInfo(u *User) UserInfo {
	perms := make([]string, 0, len(u.Permissions))
	for _, p := range u.Permissions {
		perms = append(perms, p.String())
	}
	return UserInfo{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		DisplayNameAr: u.DisplayNameAr,
		RoleID:        u.Role.ID,
		RoleName:      u.Role.Name,
		Permissions:   perms,
	}
}

// Snapshot is the read-only session state broadcast to consumers.
type Snapshot struct {
	IsAuthenticated bool       `json:"is_authenticated"`
	User            *UserInfo  `json:"user,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	IsLoading       bool       `json:"is_loading"`
	LastError       string     `json:"last_error,omitempty"`
}
