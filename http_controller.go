package users

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-users/middleware/sessionware"
	"github.com/nyaruka/phonenumbers"
)

// GetSessionClaims reads the validated token claims the guard stored for the
// request.
func GetSessionClaims(c router.Context, key string) (*TokenClaims, error) {
	val := c.Locals(key)
	if val == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := val.(*TokenClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToFindSession
	}

	return claims, nil
}

// RegisterUserRoutes mounts the account API on the router. Routes past the
// auth trio require a valid bearer access token.
func RegisterUserRoutes[T any](app router.Router[T], opts ...UsersControllerOption) {
	controller := NewUsersController(opts...)

	guard := controller.Auther.ProtectedRoute(
		controller.Auther.MakeAuthErrorHandler(false),
	)

	app.Post("/auth/register", controller.RegisterPost).SetName("auth.register")
	app.Post("/auth/login", controller.LoginPost).SetName("auth.login")
	app.Post("/auth/refresh", controller.RefreshPost).SetName("auth.refresh")
	app.Post("/auth/logout", controller.LogoutPost, guard).SetName("auth.logout")
	app.Get("/auth/me", controller.MeGet, guard).SetName("auth.me")

	app.Post("/users", controller.UserCreate).SetName("users.create")
	app.Get("/users", controller.UsersList, guard).SetName("users.list")
	app.Get("/users/:id", controller.UserGet, guard).SetName("users.get")
	app.Put("/users/:id", controller.UserUpdate, guard).SetName("users.update")
	app.Delete("/users/:id", controller.UserDelete, guard).SetName("users.delete")
}

// UsersController serves the JSON account API.
type UsersController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Auth       Authenticator
	Auther     *RouteAuthenticator
	ContextKey string
}

type UsersControllerOption func(*UsersController) *UsersController

func WithControllerLogger(l Logger) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuthenticator(auth Authenticator, auther *RouteAuthenticator) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Auth = auth
		c.Auther = auther
		return c
	}
}

func WithControllerDebug(debug bool) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Debug = debug
		return c
	}
}

func WithControllerContextKey(key string) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func NewUsersController(opts ...UsersControllerOption) *UsersController {
	c := &UsersController{
		Logger:     defLogger{},
		ContextKey: "session",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in users controller...")
	}

	if c.Auth == nil || c.Auther == nil {
		panic("Missing Authenticator in users controller...")
	}

	return c
}

var usernameFormat = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username  string `form:"username" json:"username"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Phone     string `form:"phone_number" json:"phone_number"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Username,
			validation.Required,
			validation.Length(3, 80),
			validation.Match(usernameFormat).
				Error("must start with a letter and contain only letters, digits, dashes, or underscores"),
		),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 100),
			validation.By(validatePasswordStrength),
		),
		validation.Field(&r.FirstName, validation.Length(0, 100)),
		validation.Field(&r.LastName, validation.Length(0, 100)),
		validation.Field(&r.Phone, validation.By(validatePhoneNumber)),
	)
}

// validatePasswordStrength requires at least one letter and one digit.
func validatePasswordStrength(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasLetter || !hasDigit {
		return errors.New("must contain at least one letter and one digit")
	}

	return nil
}

// validatePhoneNumber accepts E.164 style numbers, defaulting to the US
// region for national formats.
func validatePhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "US")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}

	return nil
}

func (a *UsersController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return writeError(ctx, ErrMalformedBody)
	}

	if err := payload.Validate(); err != nil {
		return writeValidationError(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	user, err := registerUser.Execute(ctx.Context(), RegisterUserMessage{
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
	})
	if err != nil {
		a.Logger.Error("register user failed", "error", err)
		return writeError(ctx, err)
	}

	pair, err := a.Auth.TokenService().IssuePair(user.ID)
	if err != nil {
		a.Logger.Error("register user issue tokens", "error", err, "user_id", user.ID)
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"message":       "User registered successfully",
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          user.Public(true),
	})
}

// UserCreate is the unauthenticated account creation endpoint: the same
// payload and outcome as RegisterPost, minus token issuance.
func (a *UsersController) UserCreate(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("create user parse payload", "error", err)
		return writeError(ctx, ErrMalformedBody)
	}

	if err := payload.Validate(); err != nil {
		return writeValidationError(ctx, err)
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	user, err := registerUser.Execute(ctx.Context(), RegisterUserMessage{
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
	})
	if err != nil {
		a.Logger.Error("create user failed", "error", err)
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    user.Public(true),
	})
}

// LoginRequest is the credential payload. The account can be addressed by
// identifier, username, or email; the first non-empty one wins.
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Username   string `form:"username" json:"username"`
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	for _, v := range []string{r.Identifier, r.Username, r.Email} {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	if r.GetIdentifier() == "" {
		return validation.Errors{
			"identifier": errors.New("a username or email is required"),
		}
	}

	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *UsersController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return writeError(ctx, ErrMalformedBody)
	}

	if err := payload.Validate(); err != nil {
		return writeValidationError(ctx, err)
	}

	pair, user, err := a.Auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message":       "Login successful",
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          user.Public(true),
	})
}

// RefreshPost mints a new access token from a bearer refresh token. An access
// token presented here is a request shape error, not an auth failure.
func (a *UsersController) RefreshPost(ctx router.Context) error {
	raw, err := a.Auther.RawToken(ctx)
	if err != nil {
		return writeError(ctx, ErrTokenMalformed)
	}

	claims, err := a.Auth.TokenService().Validate(raw, TokenTypeRefresh)
	if err != nil {
		if IsWrongTokenTypeError(err) {
			return ctx.JSON(http.StatusUnprocessableEntity, map[string]any{
				"error":     "Refresh requires a refresh token",
				"text_code": TextCodeWrongTokenType,
			})
		}
		return writeError(ctx, err)
	}

	access, err := a.Auth.Refresh(ctx.Context(), claims)
	if err != nil {
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"access_token": access,
	})
}

func (a *UsersController) LogoutPost(ctx router.Context) error {
	claims, err := GetSessionClaims(ctx, a.ContextKey)
	if err != nil {
		return writeError(ctx, err)
	}

	if err := a.Auth.Logout(ctx.Context(), claims); err != nil {
		a.Logger.Error("logout failed", "error", err, "user_id", claims.UserID())
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "Successfully logged out",
	})
}

func (a *UsersController) MeGet(ctx router.Context) error {
	claims, err := GetSessionClaims(ctx, a.ContextKey)
	if err != nil {
		return writeError(ctx, err)
	}

	user, err := a.Auth.CurrentUser(ctx.Context(), claims)
	if err != nil {
		return writeError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user": user.Public(true),
	})
}

// session returns the request SessionContext. The guard stores the enriched
// value on the standard context; the claims-only fallback covers handlers
// mounted without the enricher.
func (a *UsersController) session(ctx router.Context) (*SessionContext, error) {
	claims, err := GetSessionClaims(ctx, a.ContextKey)
	if err != nil {
		return nil, err
	}

	if sess, ok := SessionFromContext(ctx.Context()); ok {
		return sess, nil
	}

	return NewSessionContext(claims, false), nil
}

func (a *UsersController) UsersList(ctx router.Context) error {
	sess, err := a.session(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	params := ListUsersParams{Search: ctx.Query("search", "")}

	if params.Page, err = queryInt(ctx, "page", 1); err != nil {
		return writeValidationError(ctx, validation.Errors{"page": err})
	}

	if params.PerPage, err = queryInt(ctx, "per_page", defaultPerPage); err != nil {
		return writeValidationError(ctx, validation.Errors{"per_page": err})
	}

	page, err := a.Repo.Users().List(ctx.Context(), params)
	if err != nil {
		return writeError(ctx, err)
	}

	records := make([]map[string]any, 0, len(page.Users))
	for _, u := range page.Users {
		records = append(records, u.Public(sess.Owns(u.ID)))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"users": records,
		"pagination": map[string]any{
			"page":     page.Page,
			"per_page": page.PerPage,
			"total":    page.Total,
			"pages":    page.Pages(),
			"has_next": page.HasNext(),
			"has_prev": page.HasPrev(),
		},
	})
}

func (a *UsersController) UserGet(ctx router.Context) error {
	sess, err := a.session(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	id, err := paramID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), id)
	if err != nil {
		return writeError(ctx, err)
	}

	// deactivated accounts read as absent to everyone, the owner included
	if !user.IsActive {
		return writeError(ctx, ErrUserNotFound)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user": user.Public(sess.Owns(user.ID)),
	})
}

// UpdateUserPayload is the profile update body. Username is immutable; the
// field is bound only so we can reject attempts to change it.
type UpdateUserPayload struct {
	Username  *string `form:"username" json:"username"`
	Email     *string `form:"email" json:"email"`
	FirstName *string `form:"first_name" json:"first_name"`
	LastName  *string `form:"last_name" json:"last_name"`
	Phone     *string `form:"phone_number" json:"phone_number"`
	Password  *string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r UpdateUserPayload) Validate() error {
	if r.Username != nil {
		return validation.Errors{
			"username": errors.New("username cannot be changed"),
		}
	}

	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.FirstName, validation.Length(0, 100)),
		validation.Field(&r.LastName, validation.Length(0, 100)),
		validation.Field(&r.Phone, validation.By(validatePhoneNumber)),
		validation.Field(
			&r.Password,
			validation.Length(8, 100),
			validation.By(validatePasswordStrength),
		),
	)
}

// Empty reports whether the payload carries no mutation at all.
func (r UpdateUserPayload) Empty() bool {
	return r.Email == nil &&
		r.FirstName == nil &&
		r.LastName == nil &&
		r.Phone == nil &&
		r.Password == nil
}

func (a *UsersController) UserUpdate(ctx router.Context) error {
	sess, err := a.session(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	id, err := paramID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	if !sess.Owns(id) {
		return writeError(ctx, ErrNotAuthorized)
	}

	payload := new(UpdateUserPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("update user parse payload", "error", err)
		return writeError(ctx, ErrMalformedBody)
	}

	if err := payload.Validate(); err != nil {
		return writeValidationError(ctx, err)
	}

	if payload.Empty() {
		return writeValidationError(ctx, validation.Errors{
			"payload": errors.New("at least one field is required"),
		})
	}

	user, err := a.Repo.Users().UpdateProfile(ctx.Context(), id, UpdateUserRequest{
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
	})
	if err != nil {
		return writeError(ctx, err)
	}

	if payload.Password != nil {
		hash, err := HashPassword(*payload.Password)
		if err != nil {
			return writeError(ctx, err)
		}
		if err := a.Repo.Users().SetPassword(ctx.Context(), id, hash); err != nil {
			return writeError(ctx, err)
		}
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user":    user.Public(true),
	})
}

func (a *UsersController) UserDelete(ctx router.Context) error {
	sess, err := a.session(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	id, err := paramID(ctx)
	if err != nil {
		return writeError(ctx, err)
	}

	if !sess.Owns(id) {
		return writeError(ctx, ErrNotAuthorized)
	}

	if err := a.Repo.Users().Deactivate(ctx.Context(), id); err != nil {
		return writeError(ctx, err)
	}

	a.Logger.Info("user deactivated", "user_id", id)

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "User deactivated successfully",
	})
}

// RawToken extracts the bearer token from the request using the configured
// lookup and scheme, without validating it.
func (a *RouteAuthenticator) RawToken(ctx router.Context) (string, error) {
	extractors := sessionware.GetExtractors(a.cfg.GetTokenLookup(), a.cfg.GetAuthScheme())
	return sessionware.ExtractRawTokenFromContext(ctx, extractors)
}

func paramID(ctx router.Context) (int64, error) {
	raw := ctx.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidUserID
	}
	return id, nil
}

func queryInt(ctx router.Context, name string, def int) (int, error) {
	raw := ctx.Query(name, "")
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}

	return v, nil
}

// formatValidationErrors flattens ozzo field errors into a per-field map for
// the JSON error body.
func formatValidationErrors(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var fields validation.Errors
	if errors.As(err, &fields) {
		for name, ferr := range fields {
			if ferr != nil {
				out[name] = ferr.Error()
			}
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}
