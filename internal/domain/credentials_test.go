package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkrupp/accountdash/internal/domain"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		wantErr  error
	}{
		{name: "minimum length", username: "abcd"},
		{name: "maximum length", username: "abcdefghij123456"},
		{name: "mixed case and digits", username: "Alice2024"},
		{name: "too short", username: "abc", wantErr: domain.ErrInvalidUsername},
		{name: "too long", username: "abcdefghij1234567", wantErr: domain.ErrInvalidUsername},
		{name: "empty", username: "", wantErr: domain.ErrInvalidUsername},
		{name: "symbols", username: "alice_b", wantErr: domain.ErrInvalidUsername},
		{name: "whitespace", username: "alice b", wantErr: domain.ErrInvalidUsername},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.ErrorIs(t, domain.ValidateUsername(tt.username), tt.wantErr)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "alphanumeric", password: "secret1"},
		{name: "allowed symbols", password: `p@ss\/;:`},
		{name: "too short", password: "abc12", wantErr: domain.ErrInvalidPassword},
		{name: "space", password: "pass word", wantErr: domain.ErrInvalidPassword},
		{name: "disallowed symbol", password: "password-1", wantErr: domain.ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.ErrorIs(t, domain.ValidatePassword(tt.password), tt.wantErr)
		})
	}
}

func TestUsernameUpdateResult_Updated(t *testing.T) {
	t.Parallel()

	assert.True(t, domain.UsernameUpdateResult{Message: "Username updated successfully"}.Updated())
	assert.False(t, domain.UsernameUpdateResult{Message: "username updated"}.Updated())
	assert.False(t, domain.UsernameUpdateResult{Error: "Username taken"}.Updated())
	assert.False(t, domain.UsernameUpdateResult{}.Updated())
}
