package users_test

import (
	"testing"

	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRequestValidate(t *testing.T) {
	valid := users.RegisterRequest{
		Username: "jane_doe",
		Email:    "jane@example.com",
		Password: "password123",
	}

	t.Run("valid payload", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("full payload with phone", func(t *testing.T) {
		r := valid
		r.FirstName = "Jane"
		r.LastName = "Doe"
		r.Phone = "+12024561111"
		assert.NoError(t, r.Validate())
	})

	tests := []struct {
		name   string
		mutate func(r *users.RegisterRequest)
	}{
		{"missing username", func(r *users.RegisterRequest) { r.Username = "" }},
		{"username too short", func(r *users.RegisterRequest) { r.Username = "ab" }},
		{"username starts with digit", func(r *users.RegisterRequest) { r.Username = "1jane" }},
		{"username with spaces", func(r *users.RegisterRequest) { r.Username = "jane doe" }},
		{"missing email", func(r *users.RegisterRequest) { r.Email = "" }},
		{"invalid email", func(r *users.RegisterRequest) { r.Email = "not-an-email" }},
		{"missing password", func(r *users.RegisterRequest) { r.Password = "" }},
		{"password too short", func(r *users.RegisterRequest) { r.Password = "ab1" }},
		{"password without digits", func(r *users.RegisterRequest) { r.Password = "passwordonly" }},
		{"password without letters", func(r *users.RegisterRequest) { r.Password = "1234567890" }},
		{"invalid phone", func(r *users.RegisterRequest) { r.Phone = "not-a-phone" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestLoginRequestValidate(t *testing.T) {
	t.Run("identifier field", func(t *testing.T) {
		r := users.LoginRequest{Identifier: "jane", Password: "password123"}
		assert.NoError(t, r.Validate())
		assert.Equal(t, "jane", r.GetIdentifier())
	})

	t.Run("username fallback", func(t *testing.T) {
		r := users.LoginRequest{Username: "jane", Password: "password123"}
		assert.NoError(t, r.Validate())
		assert.Equal(t, "jane", r.GetIdentifier())
	})

	t.Run("email fallback", func(t *testing.T) {
		r := users.LoginRequest{Email: "jane@example.com", Password: "password123"}
		assert.NoError(t, r.Validate())
		assert.Equal(t, "jane@example.com", r.GetIdentifier())
	})

	t.Run("missing identifier", func(t *testing.T) {
		r := users.LoginRequest{Password: "password123"}
		assert.Error(t, r.Validate())
	})

	t.Run("missing password", func(t *testing.T) {
		r := users.LoginRequest{Identifier: "jane"}
		assert.Error(t, r.Validate())
	})
}

func TestUpdateUserPayloadValidate(t *testing.T) {
	str := func(s string) *string { return &s }

	t.Run("empty update passes field validation", func(t *testing.T) {
		// the handler rejects it separately through Empty
		assert.NoError(t, users.UpdateUserPayload{}.Validate())
	})

	t.Run("profile fields", func(t *testing.T) {
		r := users.UpdateUserPayload{
			Email:     str("new@example.com"),
			FirstName: str("Jane"),
			Phone:     str("+12024561111"),
		}
		assert.NoError(t, r.Validate())
	})

	t.Run("username is immutable", func(t *testing.T) {
		r := users.UpdateUserPayload{Username: str("other")}
		assert.Error(t, r.Validate())
	})

	t.Run("invalid email", func(t *testing.T) {
		r := users.UpdateUserPayload{Email: str("nope")}
		assert.Error(t, r.Validate())
	})

	t.Run("weak password", func(t *testing.T) {
		r := users.UpdateUserPayload{Password: str("short")}
		assert.Error(t, r.Validate())
	})

	t.Run("strong password", func(t *testing.T) {
		r := users.UpdateUserPayload{Password: str("newPassword123")}
		assert.NoError(t, r.Validate())
	})
}

func TestUpdateUserPayloadEmpty(t *testing.T) {
	str := func(s string) *string { return &s }

	assert.True(t, users.UpdateUserPayload{}.Empty())
	assert.True(t, users.UpdateUserPayload{Username: str("jane")}.Empty())
	assert.False(t, users.UpdateUserPayload{Email: str("new@example.com")}.Empty())
	assert.False(t, users.UpdateUserPayload{FirstName: str("Jane")}.Empty())
	assert.False(t, users.UpdateUserPayload{Password: str("newPassword123")}.Empty())
}
