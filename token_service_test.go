package users_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	ts := newTestTokenService()

	t.Run("access token round trip", func(t *testing.T) {
		raw, err := ts.IssueAccessToken(42)
		require.NoError(t, err)
		require.NotEmpty(t, raw)

		claims, err := ts.Validate(raw, users.TokenTypeAccess)
		require.NoError(t, err)

		assert.Equal(t, int64(42), claims.UserID())
		assert.Equal(t, users.TokenTypeAccess, claims.Type())
		assert.NotEmpty(t, claims.TokenID())
		assert.Equal(t, "42", claims.Subject())
		assert.True(t, claims.Expires().After(time.Now()))
	})

	t.Run("refresh token round trip", func(t *testing.T) {
		raw, err := ts.IssueRefreshToken(42)
		require.NoError(t, err)

		claims, err := ts.Validate(raw, users.TokenTypeRefresh)
		require.NoError(t, err)
		assert.Equal(t, users.TokenTypeRefresh, claims.Type())
	})

	t.Run("pair carries distinct jtis", func(t *testing.T) {
		pair, err := ts.IssuePair(7)
		require.NoError(t, err)

		access, err := ts.Validate(pair.AccessToken, users.TokenTypeAccess)
		require.NoError(t, err)
		refresh, err := ts.Validate(pair.RefreshToken, users.TokenTypeRefresh)
		require.NoError(t, err)

		assert.NotEqual(t, access.TokenID(), refresh.TokenID())
	})

	t.Run("every issued token has a unique jti", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 10; i++ {
			raw, err := ts.IssueAccessToken(1)
			require.NoError(t, err)
			claims, err := ts.Validate(raw, users.TokenTypeAccess)
			require.NoError(t, err)
			assert.False(t, seen[claims.TokenID()])
			seen[claims.TokenID()] = true
		}
	})
}

func TestTokenServiceValidateRejections(t *testing.T) {
	ts := newTestTokenService()

	t.Run("wrong token type", func(t *testing.T) {
		raw, err := ts.IssueRefreshToken(42)
		require.NoError(t, err)

		_, err = ts.Validate(raw, users.TokenTypeAccess)
		assert.True(t, users.IsWrongTokenTypeError(err))
	})

	t.Run("access token on refresh operation", func(t *testing.T) {
		raw, err := ts.IssueAccessToken(42)
		require.NoError(t, err)

		_, err = ts.Validate(raw, users.TokenTypeRefresh)
		assert.True(t, users.IsWrongTokenTypeError(err))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := ts.Validate("not-a-token", users.TokenTypeAccess)
		assert.True(t, users.IsMalformedError(err))
	})

	t.Run("token signed with a different key", func(t *testing.T) {
		other := users.NewTokenService(
			[]byte("other-signing-key"), 1, 24,
			"go-users-test", jwt.ClaimStrings{"go-users-test"}, nil,
		)

		raw, err := other.IssueAccessToken(42)
		require.NoError(t, err)

		_, err = ts.Validate(raw, users.TokenTypeAccess)
		assert.True(t, users.IsMalformedError(err))
	})

	t.Run("token from a different issuer", func(t *testing.T) {
		other := users.NewTokenService(
			[]byte("test-signing-key"), 1, 24,
			"someone-else", jwt.ClaimStrings{"go-users-test"}, nil,
		)

		raw, err := other.IssueAccessToken(42)
		require.NoError(t, err)

		_, err = ts.Validate(raw, users.TokenTypeAccess)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		now := time.Now()
		claims := &users.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "go-users-test",
				Subject:   "42",
				Audience:  jwt.ClaimStrings{"go-users-test"},
				ID:        "expired-token",
				IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(now.Add(-1 * time.Hour)),
			},
			UID:       42,
			TokenKind: users.TokenTypeAccess,
		}

		raw, err := ts.SignClaims(claims)
		require.NoError(t, err)

		_, err = ts.Validate(raw, users.TokenTypeAccess)
		assert.True(t, users.IsTokenExpiredError(err))
	})

	t.Run("token without a user id", func(t *testing.T) {
		now := time.Now()
		claims := &users.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "go-users-test",
				Subject:   "not-a-number",
				Audience:  jwt.ClaimStrings{"go-users-test"},
				ID:        "no-uid",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			TokenKind: users.TokenTypeAccess,
		}

		raw, err := ts.SignClaims(claims)
		require.NoError(t, err)

		_, err = ts.Validate(raw, users.TokenTypeAccess)
		assert.True(t, users.IsMalformedError(err))
	})
}
