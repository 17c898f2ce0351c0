package sessionware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-users/middleware/sessionware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClaims struct {
	jti string
}

func (s stubClaims) UserID() int64      { return 1 }
func (s stubClaims) TokenID() string    { return s.jti }
func (s stubClaims) Expires() time.Time { return time.Now().Add(time.Hour) }

type stubValidator struct {
	claims sessionware.AuthClaims
	err    error
}

func (v stubValidator) Validate(string) (sessionware.AuthClaims, error) {
	if v.err != nil {
		return nil, v.err
	}
	if v.claims != nil {
		return v.claims, nil
	}
	return stubClaims{jti: "jti"}, nil
}

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[jti], nil
}

type enrichKey string

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token yields its claims", func(t *testing.T) {
		cfg := sessionware.Config{
			TokenValidator: stubValidator{claims: stubClaims{jti: "jti-1"}},
		}

		got, claims, err := sessionware.Authenticate(ctx, cfg, "raw")
		require.NoError(t, err)
		assert.Equal(t, "jti-1", claims.TokenID())
		assert.Equal(t, ctx, got)
	})

	t.Run("validator failure propagates", func(t *testing.T) {
		wantErr := errors.New("bad signature")
		cfg := sessionware.Config{TokenValidator: stubValidator{err: wantErr}}

		_, _, err := sessionware.Authenticate(ctx, cfg, "raw")
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("revoked jti is rejected", func(t *testing.T) {
		cfg := sessionware.Config{
			TokenValidator: stubValidator{claims: stubClaims{jti: "gone"}},
			Revocations:    stubRevocations{revoked: map[string]bool{"gone": true}},
		}

		_, _, err := sessionware.Authenticate(ctx, cfg, "raw")
		assert.ErrorIs(t, err, sessionware.ErrTokenRevoked)
	})

	t.Run("registry failure propagates", func(t *testing.T) {
		wantErr := errors.New("registry down")
		cfg := sessionware.Config{
			TokenValidator: stubValidator{},
			Revocations:    stubRevocations{err: wantErr},
		}

		_, _, err := sessionware.Authenticate(ctx, cfg, "raw")
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("identity loader can reject the account", func(t *testing.T) {
		wantErr := errors.New("account deactivated")
		cfg := sessionware.Config{
			TokenValidator: stubValidator{},
			IdentityLoader: func(context.Context, sessionware.AuthClaims) (context.Context, error) {
				return nil, wantErr
			},
		}

		_, _, err := sessionware.Authenticate(ctx, cfg, "raw")
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("identity loader enriches the context", func(t *testing.T) {
		cfg := sessionware.Config{
			TokenValidator: stubValidator{},
			IdentityLoader: func(c context.Context, _ sessionware.AuthClaims) (context.Context, error) {
				return context.WithValue(c, enrichKey("account"), "jane"), nil
			},
		}

		got, _, err := sessionware.Authenticate(ctx, cfg, "raw")
		require.NoError(t, err)
		assert.Equal(t, "jane", got.Value(enrichKey("account")))
	})
}

func TestParseSchemeValue(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		scheme  string
		want    string
		wantErr bool
	}{
		{
			name:   "well formed bearer header",
			header: "Bearer abc.def.ghi",
			scheme: "Bearer",
			want:   "abc.def.ghi",
		},
		{
			name:   "scheme comparison is case insensitive",
			header: "bearer abc.def.ghi",
			scheme: "Bearer",
			want:   "abc.def.ghi",
		},
		{
			name:   "extra whitespace after the scheme",
			header: "Bearer   abc.def.ghi",
			scheme: "Bearer",
			want:   "abc.def.ghi",
		},
		{
			name:    "missing token",
			header:  "Bearer ",
			scheme:  "Bearer",
			wantErr: true,
		},
		{
			name:    "empty header",
			header:  "",
			scheme:  "Bearer",
			wantErr: true,
		},
		{
			name:    "wrong scheme",
			header:  "Basic abc",
			scheme:  "Bearer",
			wantErr: true,
		},
		{
			name:    "token without scheme",
			header:  "abc.def.ghi",
			scheme:  "Bearer",
			wantErr: true,
		},
		{
			name:    "empty scheme rejects everything",
			header:  "Bearer abc",
			scheme:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := sessionware.ParseSchemeValue(tt.header, tt.scheme)

			if tt.wantErr {
				assert.ErrorIs(t, err, sessionware.ErrTokenMissingOrMalformed)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestGetExtractors(t *testing.T) {
	tests := []struct {
		name   string
		lookup string
		count  int
	}{
		{"single header source", "header:Authorization", 1},
		{"header and query", "header:Authorization,query:token", 2},
		{"header query and cookie", "header:Authorization,query:token,cookie:session", 3},
		{"unknown sources are skipped", "weird:thing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractors := sessionware.GetExtractors(tt.lookup, "Bearer")
			assert.Len(t, extractors, tt.count)
		})
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := sessionware.GetDefaultConfig(sessionware.Config{
		TokenValidator: stubValidator{},
	})

	assert.Equal(t, "session", cfg.ContextKey)
	assert.Equal(t, "Bearer", cfg.AuthScheme)
	assert.Contains(t, cfg.TokenLookup, "header:")
	assert.NotNil(t, cfg.SuccessHandler)
	assert.NotNil(t, cfg.ErrorHandler)

	t.Run("explicit values are kept", func(t *testing.T) {
		cfg := sessionware.GetDefaultConfig(sessionware.Config{
			TokenValidator: stubValidator{},
			ContextKey:     "identity",
			AuthScheme:     "Token",
			TokenLookup:    "cookie:session",
		})

		assert.Equal(t, "identity", cfg.ContextKey)
		assert.Equal(t, "Token", cfg.AuthScheme)
		assert.Equal(t, "cookie:session", cfg.TokenLookup)
	})
}
