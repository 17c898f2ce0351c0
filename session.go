package users

import "time"

// SessionContext is the per-request value the guard derives from a validated
// token: who is acting, through which kind of token, and which exact token.
// It is never persisted.
type SessionContext struct {
	UserID    int64     `json:"user_id"`
	TokenType TokenType `json:"token_type"`
	JTI       string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
	IsAdmin   bool      `json:"is_admin,omitempty"`
}

// NewSessionContext builds the request context from validated claims plus the
// admin flag of the loaded account.
func NewSessionContext(claims *TokenClaims, isAdmin bool) *SessionContext {
	if claims == nil {
		return nil
	}

	return &SessionContext{
		UserID:    claims.UserID(),
		TokenType: claims.Type(),
		JTI:       claims.TokenID(),
		ExpiresAt: claims.Expires(),
		IsAdmin:   isAdmin,
	}
}

// Owns applies the authorization policy for mutating operations: only the
// owning identity may act on a record. The admin flag grants no override.
func (s *SessionContext) Owns(targetID int64) bool {
	if s == nil {
		return false
	}
	return s.UserID == targetID
}
