package users

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenPair is what login and registration hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService mints and verifies the signed artifacts. Tokens are
// self-contained: verification needs no storage lookup, only revocation does.
type TokenService interface {
	IssueAccessToken(userID int64) (string, error)
	IssueRefreshToken(userID int64) (string, error)
	IssuePair(userID int64) (*TokenPair, error)
	Validate(tokenString string, expected TokenType) (*TokenClaims, error)
	SignClaims(claims *TokenClaims) (string, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

// NewTokenService creates a new TokenService instance. TTLs are hours.
func NewTokenService(signingKey []byte, accessTTL, refreshTTL int, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}

	if accessTTL <= 0 {
		accessTTL = 1
	}

	if refreshTTL <= 0 {
		refreshTTL = 24 * 30
	}

	return &TokenServiceImpl{
		signingKey:      signingKey,
		accessTokenTTL:  time.Duration(accessTTL) * time.Hour,
		refreshTokenTTL: time.Duration(refreshTTL) * time.Hour,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
	}
}

// IssueAccessToken mints a short lived access token for the given account.
func (ts *TokenServiceImpl) IssueAccessToken(userID int64) (string, error) {
	return ts.issue(userID, TokenTypeAccess, ts.accessTokenTTL)
}

// IssueRefreshToken mints a long lived refresh token for the given account.
func (ts *TokenServiceImpl) IssueRefreshToken(userID int64) (string, error) {
	return ts.issue(userID, TokenTypeRefresh, ts.refreshTokenTTL)
}

// IssuePair mints the access/refresh pair returned by login and registration.
// The two tokens carry independent jtis, so revoking one leaves the other
// usable.
func (ts *TokenServiceImpl) IssuePair(userID int64) (*TokenPair, error) {
	access, err := ts.IssueAccessToken(userID)
	if err != nil {
		return nil, err
	}

	refresh, err := ts.IssueRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (ts *TokenServiceImpl) issue(userID int64, kind TokenType, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:       userID,
		TokenKind: kind,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and verifies a token string and enforces the expected type
// tag. A refresh token on an access operation fails with ErrWrongTokenType
// even though its signature and expiry are fine, and vice versa.
func (ts *TokenServiceImpl) Validate(tokenString string, expected TokenType) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if claims.TokenKind != expected {
		return nil, ErrWrongTokenType
	}

	if claims.UserID() == 0 {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
