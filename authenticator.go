package users

import (
	"context"

	"github.com/goliatone/go-errors"
)

// IdentityProvider ensures we have a store to verify and resolve identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (*User, error)
	FindActiveByID(ctx context.Context, id int64) (*User, error)
}

// Authenticator drives the session lifecycle: credential login, token
// refresh, logout, and resolving the account behind a validated token.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*TokenPair, *User, error)
	Refresh(ctx context.Context, claims *TokenClaims) (string, error)
	Logout(ctx context.Context, claims *TokenClaims) error
	CurrentUser(ctx context.Context, claims *TokenClaims) (*User, error)
	TokenService() TokenService
}

// Auther is the default Authenticator
type Auther struct {
	provider    IdentityProvider
	tokens      TokenService
	revocations RevocationRegistry
	logger      Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Auther
func NewAuthenticator(provider IdentityProvider, tokens TokenService, revocations RevocationRegistry) *Auther {
	return &Auther{
		provider:    provider,
		tokens:      tokens,
		revocations: revocations,
		logger:      defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the credentials and mints a fresh access/refresh pair.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*TokenPair, *User, error) {
	user, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Info("login rejected", "identifier", identifier, "error", err)
		return nil, nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		s.logger.Error("login failed to issue token pair", "user_id", user.ID, "error", err)
		return nil, nil, err
	}

	return pair, user, nil
}

// Refresh mints a new access token from validated refresh claims. The refresh
// token itself stays valid: revocation is per-token, rotating refresh tokens
// is not part of this surface.
func (s *Auther) Refresh(ctx context.Context, claims *TokenClaims) (string, error) {
	if claims == nil || claims.Type() != TokenTypeRefresh {
		return "", ErrWrongTokenType
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to check refresh token revocation")
	}
	if revoked {
		return "", ErrTokenRevoked
	}

	user, err := s.provider.FindActiveByID(ctx, claims.UserID())
	if err != nil {
		s.logger.Info("refresh rejected", "user_id", claims.UserID(), "error", err)
		return "", err
	}

	return s.tokens.IssueAccessToken(user.ID)
}

// Logout revokes the presented token's jti until the token would have expired
// anyway. Only this exact token dies; other tokens for the same account,
// including the refresh token, keep working.
func (s *Auther) Logout(ctx context.Context, claims *TokenClaims) error {
	if claims == nil || claims.TokenID() == "" {
		return ErrTokenMalformed
	}

	if err := s.revocations.Revoke(ctx, claims.TokenID(), claims.Expires()); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke token")
	}

	s.logger.Debug("token revoked", "jti", claims.TokenID(), "user_id", claims.UserID())
	return nil
}

// CurrentUser resolves the account behind validated access claims. Missing
// accounts surface as not found, deactivated ones as the 403-mapped error.
func (s *Auther) CurrentUser(ctx context.Context, claims *TokenClaims) (*User, error) {
	if claims == nil {
		return nil, ErrUnableToFindSession
	}

	return s.provider.FindActiveByID(ctx, claims.UserID())
}
