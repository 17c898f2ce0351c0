package users

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType tags a token as usable for regular API calls or only for minting
// new access tokens. Endpoints reject the other kind.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// AuthClaims is the read surface the session guard and controllers consume.
type AuthClaims interface {
	Subject() string
	UserID() int64
	TokenID() string
	Type() TokenType
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenClaims is the concrete claim set carried by every issued token: the
// registered claims (sub, jti, iat, exp, iss, aud) plus the numeric user id and
// the token type tag.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID       int64     `json:"uid,omitempty"`
	TokenKind TokenType `json:"type,omitempty"`
}

var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the numeric account id the token was issued to. Falls back
// to parsing the subject for tokens minted by older issuers.
func (c *TokenClaims) UserID() int64 {
	if c.UID != 0 {
		return c.UID
	}

	id, err := strconv.ParseInt(c.RegisteredClaims.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// TokenID returns the jti, the revocation key for this exact token.
func (c *TokenClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Type returns the token type tag.
func (c *TokenClaims) Type() TokenType {
	return c.TokenKind
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.New().String()
	}
}
