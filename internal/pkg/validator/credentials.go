// internal/pkg/validator/credentials.go
package validator

import "strings"

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// injectionDenylist holds markup/script-injection substrings rejected in any
// credential field. Matching is case-insensitive over username+password.
var injectionDenylist = []string{
	"<script",
	"</script",
	"<iframe",
	"javascript:",
	"onerror=",
	"onload=",
	"srcdoc=",
	"data:text/html",
}

// Result reports whether credentials passed shape validation and which rules
// were violated otherwise.
type Result struct {
	OK         bool
	Violations []string
}

// ValidateCredentials checks credential shape before any backend lookup.
// Pure function: no side effects, no I/O.
func ValidateCredentials(username, password string) Result {
	var violations []string

	switch {
	case username == "":
		violations = append(violations, "username is required")
	case len(username) < minUsernameLength:
		violations = append(violations, "username must be at least 3 characters")
	}

	switch {
	case password == "":
		violations = append(violations, "password is required")
	case len(password) < minPasswordLength:
		violations = append(violations, "password must be at least 6 characters")
	}

	combined := strings.ToLower(username + password)
	for _, pattern := range injectionDenylist {
		if strings.Contains(combined, pattern) {
			violations = append(violations, "input contains disallowed content")
			break
		}
	}

	return Result{OK: len(violations) == 0, Violations: violations}
}
