package users

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeUserDeactivated   = "USER_DEACTIVATED"
	TextCodeUserNotFound      = "USER_NOT_FOUND"
	TextCodeDuplicateUsername = "DUPLICATE_USERNAME"
	TextCodeDuplicateEmail    = "DUPLICATE_EMAIL"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeTokenRevoked      = "TOKEN_REVOKED"
	TextCodeWrongTokenType    = "WRONG_TOKEN_TYPE"
	TextCodeNotAuthorized     = "NOT_AUTHORIZED"
	TextCodeSessionNotFound   = "SESSION_NOT_FOUND"
	TextCodeMalformedBody     = "MALFORMED_BODY"
	TextCodeInvalidUserID     = "INVALID_USER_ID"
)

// ErrInvalidCredentials is the uniform failure for credential verification.
// Unknown identifier and wrong password produce the same error so responses
// cannot be used to probe which accounts exist.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserDeactivated is returned on identity paths (login, refresh, /auth/me)
// when the account exists but is no longer active. Read paths mask the same
// condition as not found instead.
var ErrUserDeactivated = goerrors.New("user account is deactivated", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserDeactivated).
	WithCode(goerrors.CodeForbidden)

// ErrUserNotFound is the error we return for non found accounts
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrDuplicateUsername signals a username uniqueness violation, whether caught
// up front or surfaced by the unique index on insert.
var ErrDuplicateUsername = goerrors.New("username is already taken", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateUsername).
	WithCode(goerrors.CodeConflict)

// ErrDuplicateEmail signals an email uniqueness violation.
var ErrDuplicateEmail = goerrors.New("email is already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrTokenExpired is returned when the token is past its expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers undecodable tokens and invalid signatures.
var ErrTokenMalformed = goerrors.New("token is malformed or has an invalid signature", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenRevoked is returned for tokens whose jti sits in the revocation
// registry. Revocation is terminal; the signature being valid does not matter.
var ErrTokenRevoked = goerrors.New("token has been revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(goerrors.CodeUnauthorized)

// ErrWrongTokenType rejects a refresh token on an access endpoint and vice
// versa. Kept distinct from malformed so the boundary can answer 422 when a
// non-refresh token hits /auth/refresh.
var ErrWrongTokenType = goerrors.New("token type is not valid for this operation", goerrors.CategoryValidation).
	WithTextCode(TextCodeWrongTokenType)

// ErrNotAuthorized is the owner-only policy failure: the session identity is
// valid but does not own the target record.
var ErrNotAuthorized = goerrors.New("not authorized to act on this resource", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotAuthorized).
	WithCode(goerrors.CodeForbidden)

// ErrUnableToFindSession is the error when the request carries no usable token
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrMalformedBody rejects request bodies that cannot be decoded at all.
var ErrMalformedBody = goerrors.New("request body could not be parsed", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMalformedBody).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidUserID rejects non-numeric or non-positive path identifiers.
var ErrInvalidUserID = goerrors.New("user id must be a positive integer", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidUserID).
	WithCode(goerrors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsWrongTokenTypeError reports whether err is the token type mismatch.
func IsWrongTokenTypeError(err error) bool {
	if err == nil {
		return false
	}

	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == TextCodeWrongTokenType
}

// IsDuplicateError reports whether err is one of the uniqueness violations.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}

	return rich.TextCode == TextCodeDuplicateUsername || rich.TextCode == TextCodeDuplicateEmail
}
