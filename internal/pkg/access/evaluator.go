// internal/pkg/access/evaluator.go
package access

import (
	"strings"

	"workdesk-service/internal/domain/auth"
)

// Allowed resolves whether user may exercise the requested permission.
// The request is either "resource.action" or a bare resource name.
//
// Order of evaluation:
//  1. no user: deny
//  2. role holds the universal wildcard: allow
//  3. explicit permission whose resource is the wildcard or equals the
//     requested resource: allow
//  4. role pattern matching the request exactly or as "resource.*": allow
func Allowed(user *auth.User, permission string) bool {
	if user == nil || permission == "" {
		return false
	}

	for _, pattern := range user.Role.Permissions {
		if pattern == auth.Wildcard {
			return true
		}
	}

	resource := resourceSegment(permission)
	for _, p := range user.Permissions {
		if p.Resource == auth.Wildcard || p.Resource == resource {
			return true
		}
	}

	for _, pattern := range user.Role.Permissions {
		if pattern == permission {
			return true
		}
		if rest, ok := strings.CutSuffix(pattern, ".*"); ok && rest == resource {
			return true
		}
	}
	return false
}

// HasRole is a direct role-id equality check. Role levels are display-only
// and carry no hierarchy.
func HasRole(user *auth.User, roleID string) bool {
	if user == nil {
		return false
	}
	return user.Role.ID == roleID
}

func resourceSegment(permission string) string {
	if i := strings.Index(permission, "."); i >= 0 {
		return permission[:i]
	}
	return permission
}
