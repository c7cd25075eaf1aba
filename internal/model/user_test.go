package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleUser, RoleUser, true},
		// Unknown roles fail-closed.
		{"unknown", RoleUser, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleUser, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RoleAtLeast(tt.role, tt.minimum),
			"RoleAtLeast(%q, %q)", tt.role, tt.minimum)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		assert.Equal(t, tt.wantErr, err != nil, "ValidatePassword(%q) error = %v", tt.password, err)
	}
}

func TestRecipientTypeForRole(t *testing.T) {
	assert.Equal(t, RecipientAdmin, RecipientTypeForRole(RoleAdmin))
	assert.Equal(t, RecipientUser, RecipientTypeForRole(RoleUser))
	assert.Equal(t, RecipientUser, RecipientTypeForRole(""))
}
