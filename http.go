package users

import (
	"context"
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-users/middleware/sessionware"
)

// RouteAuthenticator wires the Authenticator into HTTP: it builds the guard
// middleware for protected routes and owns the error rendering policy for the
// JSON surface.
type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	revocations  RevocationRegistry
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

// NewHTTPAuthenticator builds the HTTP glue around an Authenticator.
func NewHTTPAuthenticator(auther Authenticator, revocations RevocationRegistry, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:         cfg,
		auth:        auther,
		revocations: revocations,
		Logger:      defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// ProtectedRoute returns the guard middleware: it validates the bearer access
// token, rejects revoked tokens, and stores the claims under the configured
// context key for handlers downstream.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return sessionware.New(sessionware.Config{
		ErrorHandler:   errorHandler,
		TokenValidator: accessValidator{tokens: a.auth.TokenService()},
		Revocations:    a.revocations,
		IdentityLoader: a.loadIdentity,
		ContextEnricher: enrichSessionContext,
		ContextKey:     a.cfg.GetContextKey(),
		TokenLookup:    a.cfg.GetTokenLookup(),
		AuthScheme:     a.cfg.GetAuthScheme(),
	})
}

// MakeAuthErrorHandler renders guard failures. With optional set the request
// proceeds unauthenticated instead of failing.
func (a *RouteAuthenticator) MakeAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		richErr := mapGuardError(err)

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// mapGuardError normalizes guard failures for the JSON surface. Every token
// defect at the guard reads as unauthenticated, a wrong-type token and a
// vanished account included; only the deactivated account keeps its own
// status.
func mapGuardError(err error) *errors.Error {
	var richErr *errors.Error

	switch {
	case IsTokenExpiredError(err):
		richErr = ErrTokenExpired
	case errors.Is(err, sessionware.ErrTokenRevoked):
		richErr = ErrTokenRevoked
	case IsMalformedError(err) || errors.Is(err, sessionware.ErrTokenMissingOrMalformed):
		richErr = ErrTokenMalformed
	case IsWrongTokenTypeError(err):
		richErr = errors.New("token type is not valid for this operation", errors.CategoryAuth).
			WithTextCode(TextCodeWrongTokenType).
			WithCode(errors.CodeUnauthorized)
	case errors.IsNotFound(err):
		richErr = errors.New("token identity no longer exists", errors.CategoryAuth).
			WithTextCode(TextCodeSessionNotFound).
			WithCode(errors.CodeUnauthorized)
	case errors.As(err, &richErr):
		// keep the rich error as produced by the validator
	default:
		richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	return richErr
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Request error",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return writeError(c, richErr)
}

// loadIdentity rejects tokens whose account no longer exists or has been
// deactivated. The token stays cryptographically valid; the identity does
// not. The loaded account rides the returned context for the enricher.
func (a *RouteAuthenticator) loadIdentity(ctx context.Context, claims sessionware.AuthClaims) (context.Context, error) {
	tc, ok := claims.(*TokenClaims)
	if !ok {
		return nil, ErrUnableToFindSession
	}

	user, err := a.auth.CurrentUser(ctx, tc)
	if err != nil {
		return nil, err
	}

	return WithContext(ctx, user), nil
}

// enrichSessionContext derives the per-request SessionContext from validated
// claims, reading the admin flag off the account the identity loader stashed.
func enrichSessionContext(c context.Context, claims sessionware.AuthClaims) context.Context {
	tc, ok := claims.(*TokenClaims)
	if !ok {
		return c
	}

	isAdmin := false
	if user, ok := FromContext(c); ok {
		isAdmin = user.IsAdmin
	}

	return WithSessionContext(c, NewSessionContext(tc, isAdmin))
}

// accessValidator adapts the TokenService to the guard's validator interface,
// pinned to access tokens.
type accessValidator struct {
	tokens TokenService
}

func (v accessValidator) Validate(raw string) (sessionware.AuthClaims, error) {
	claims, err := v.tokens.Validate(raw, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// statusFromError maps a rich error to the HTTP status of the JSON surface.
// Explicit codes win; otherwise the category decides.
func statusFromError(err error) int {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	}

	return http.StatusInternalServerError
}

// writeError renders the uniform JSON error body. Internal errors never leak
// their wrapped message to the client.
func writeError(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := statusFromError(richErr)

	message := richErr.Message
	if status >= http.StatusInternalServerError {
		message = "An unexpected server error occurred"
	}

	body := map[string]any{"error": message}
	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}

	return c.JSON(status, body)
}

// writeValidationError renders field level validation failures as a 400 with
// a per-field error map.
func writeValidationError(c router.Context, err error) error {
	return c.JSON(http.StatusBadRequest, map[string]any{
		"error":  "Validation failed",
		"errors": formatValidationErrors(err),
	})
}
