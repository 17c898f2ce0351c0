package sessionware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization

	ErrTokenMissingOrMalformed = errors.New("missing or malformed bearer token")
	ErrTokenRevoked            = errors.New("token has been revoked")
)

// AuthClaims is the validated-claim surface the guard consumes. It mirrors
// the claims type of the parent package without importing it, so controllers
// can depend on this middleware freely.
type AuthClaims interface {
	UserID() int64
	TokenID() string
	Expires() time.Time
}

// TokenValidator verifies a raw token and enforces the operation's token
// type. Wire it to the token service's Validate bound to the required type.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// RevocationChecker consults the revocation registry for the token's jti.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// IdentityLoader resolves the account behind validated claims and rejects
// missing or inactive identities. A non-nil returned context replaces the
// request context, so loaders can stash the loaded identity for downstream
// enrichment. Optional: when nil, no storage lookup runs.
type IdentityLoader func(ctx context.Context, claims AuthClaims) (context.Context, error)

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	SigningKey     SigningKey
	SigningKeys    map[string]SigningKey
	ContextKey     string
	TokenLookup    string
	AuthScheme     string
	KeyFunc        jwt.Keyfunc
	JWKSetURLs     []string

	// TokenValidator is required for token validation
	TokenValidator TokenValidator

	// Revocations, when set, rejects tokens whose jti is registered. Tokens
	// stay revoked for their whole natural lifetime.
	Revocations RevocationChecker

	// IdentityLoader runs after revocation checks, before the handler.
	IdentityLoader IdentityLoader

	// ContextEnricher is an optional function to propagate claims to the
	// standard Go context.
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context
}

type SigningKey struct {
	JWTAlg string
	Key    any
}

// New builds the session guard middleware. Per request it extracts the
// bearer token, validates it, consults the revocation registry, optionally
// loads the identity, and exposes the claims under ContextKey.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			stdCtx, claims, err := Authenticate(ctx.Context(), cfg, raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)

			if cfg.ContextEnricher != nil {
				stdCtx = cfg.ContextEnricher(stdCtx, claims)
			}
			ctx.SetContext(stdCtx)

			return cfg.SuccessHandler(ctx)
		}
	}
}

// Authenticate runs the guard's token pipeline on a raw bearer token:
// validator, revocation registry, identity loader, in that order. The
// returned context is the request context, enriched by the identity loader
// when one is configured. Config.TokenValidator is required.
func Authenticate(ctx context.Context, cfg Config, raw string) (context.Context, AuthClaims, error) {
	claims, err := cfg.TokenValidator.Validate(raw)
	if err != nil {
		return ctx, nil, err
	}

	if cfg.Revocations != nil {
		revoked, err := cfg.Revocations.IsRevoked(ctx, claims.TokenID())
		if err != nil {
			return ctx, nil, err
		}
		if revoked {
			return ctx, nil, ErrTokenRevoked
		}
	}

	if cfg.IdentityLoader != nil {
		loaded, err := cfg.IdentityLoader(ctx, claims)
		if err != nil {
			return ctx, nil, err
		}
		if loaded != nil {
			ctx = loaded
		}
	}

	return ctx, claims, nil
}

// ClaimsFromContext returns the claims the guard stored for this request.
func ClaimsFromContext(ctx router.Context, contextKey string) (AuthClaims, bool) {
	claims, ok := ctx.Locals(contextKey).(AuthClaims)
	return claims, ok
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err.Error() == ErrTokenMissingOrMalformed.Error() {
				return c.Status(router.StatusBadRequest).SendString(ErrTokenMissingOrMalformed.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.TokenValidator == nil {
		if cfg.SigningKey.Key == nil && len(cfg.SigningKeys) == 0 && len(cfg.JWKSetURLs) == 0 && cfg.KeyFunc == nil {
			panic("USERS: session middleware configuration: TokenValidator or one of KeyFunc, JWKSetURLs, SigningKeys, SigningKey is required.")
		}
		cfg.TokenValidator = newKeyfuncValidator(&cfg)
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "session"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

// localClaims mirrors the parent package's claim set for the keyfunc-backed
// fallback validator.
type localClaims struct {
	jwt.RegisteredClaims
	UID       int64  `json:"uid,omitempty"`
	TokenKind string `json:"type,omitempty"`
}

func (c *localClaims) UserID() int64 { return c.UID }

func (c *localClaims) TokenID() string { return c.RegisteredClaims.ID }

func (c *localClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

type keyfuncValidator struct {
	keyFunc jwt.Keyfunc
}

// newKeyfuncValidator builds a validator from local signing keys or remote
// JWK sets, for deployments that verify externally issued tokens instead of
// going through the token service.
func newKeyfuncValidator(cfg *Config) TokenValidator {
	kf := cfg.KeyFunc

	if kf == nil {
		if len(cfg.SigningKeys) > 0 || len(cfg.JWKSetURLs) > 0 {
			var givenKeys map[string]keyfunc.GivenKey
			if cfg.SigningKeys != nil {
				givenKeys = make(map[string]keyfunc.GivenKey, len(cfg.SigningKeys))
				for kid, key := range cfg.SigningKeys {
					givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
						Algorithm: key.JWTAlg,
					})
				}
			}
			if len(cfg.JWKSetURLs) > 0 {
				multi, err := multiKeyfunc(givenKeys, cfg.JWKSetURLs)
				if err != nil {
					panic("Failed to create keyfunc from JWK Set URL: " + err.Error())
				}
				kf = multi
			} else {
				kf = keyfunc.NewGiven(givenKeys).Keyfunc
			}
		} else {
			kf = signingKeyFunc(cfg.SigningKey)
		}
	}

	return &keyfuncValidator{keyFunc: kf}
}

func (v *keyfuncValidator) Validate(tokenString string) (AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &localClaims{}, v.keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*localClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMissingOrMalformed
	}

	return claims, nil
}

func multiKeyfunc(givenKeys map[string]keyfunc.GivenKey, jwkSetURLs []string) (jwt.Keyfunc, error) {
	opts := keyfuncOptions(givenKeys)
	m := make(map[string]keyfunc.Options, len(jwkSetURLs))
	for _, url := range jwkSetURLs {
		m[url] = opts
	}
	mopts := keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	}
	multi, err := keyfunc.GetMultiple(m, mopts)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWK set URLs: %w", err)
	}
	return multi.Keyfunc, nil
}

func keyfuncOptions(givenKeys map[string]keyfunc.GivenKey) keyfunc.Options {
	return keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWK set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

// GetExtractors parses a lookup expression such as
// "header:Authorization,query:auth_token" into extractor funcs.
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) < 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

type TokenExtractor func(c router.Context) (string, error)

// tokenFromHeader returns a function that extracts the token from the request
// header, enforcing the auth scheme prefix.
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		return ParseSchemeValue(a, authScheme)
	}
}

// ParseSchemeValue strips the auth scheme from a raw header value. Exported
// so tests and non-router callers can reuse the exact extraction rule.
func ParseSchemeValue(headerValue, authScheme string) (string, error) {
	authScheme = strings.TrimSpace(authScheme)
	if authScheme == "" {
		return "", ErrTokenMissingOrMalformed
	}

	l := len(authScheme)
	if len(headerValue) > l+1 && strings.EqualFold(headerValue[:l], authScheme) {
		token := strings.TrimSpace(headerValue[l:])
		if token != "" {
			return token, nil
		}
	}

	return "", ErrTokenMissingOrMalformed
}

func tokenFromQuery(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

func tokenFromCookie(name string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissingOrMalformed
		}
		return token, nil
	}
}

func signingKeyFunc(key SigningKey) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if key.JWTAlg != "" {
			alg, ok := token.Header["alg"].(string)
			if !ok {
				return nil, fmt.Errorf("unexpected JWT signing method: expected %q got: missing json type", key.JWTAlg)
			}
			if alg != key.JWTAlg {
				return nil, fmt.Errorf("unexpected JWT signing method: expected: %q: got: %q", key.JWTAlg, alg)
			}
		}
		return key.Key, nil
	}
}
