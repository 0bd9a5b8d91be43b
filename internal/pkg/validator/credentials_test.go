package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCredentialsOK(t *testing.T) {
	result := ValidateCredentials("admin", "admin123")
	assert.True(t, result.OK)
	assert.Empty(t, result.Violations)
}

func TestValidateCredentialsUsernameRules(t *testing.T) {
	result := ValidateCredentials("", "admin123")
	assert.False(t, result.OK)
	assert.Contains(t, result.Violations, "username is required")

	result = ValidateCredentials("ab", "admin123")
	assert.False(t, result.OK)
	assert.Contains(t, result.Violations, "username must be at least 3 characters")
}

func TestValidateCredentialsPasswordRules(t *testing.T) {
	result := ValidateCredentials("admin", "")
	assert.False(t, result.OK)
	assert.Contains(t, result.Violations, "password is required")

	result = ValidateCredentials("admin", "abc")
	assert.False(t, result.OK)
	assert.Contains(t, result.Violations, "password must be at least 6 characters")
}

func TestValidateCredentialsCollectsAllViolations(t *testing.T) {
	result := ValidateCredentials("", "")
	assert.False(t, result.OK)
	assert.Len(t, result.Violations, 2)
}

func TestValidateCredentialsRejectsInjection(t *testing.T) {
	cases := []struct {
		name     string
		username string
		password string
	}{
		{"script tag in username", "<script>alert(1)</script>", "admin123"},
		{"script tag uppercase", "<SCRIPT>x</SCRIPT>", "admin123"},
		{"javascript url in password", "admin", "javascript:void(0)"},
		{"event handler", "admin", "xonerror=alert(1)"},
		{"iframe", "adm<iframe>in", "admin123"},
		{"html data url", "admin", "data:text/html,x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateCredentials(tc.username, tc.password)
			assert.False(t, result.OK)
			assert.Contains(t, result.Violations, "input contains disallowed content")
		})
	}
}
