package users

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RegisterUserMessage carries a registration request into the handler.
type RegisterUserMessage struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates accounts. The password is hashed before the
// transaction writes anything; the plaintext is never persisted or logged.
type RegisterUserHandler struct {
	repo RepositoryManager
}

// NewRegisterUserHandler returns a handler bound to the repository manager.
func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{repo: repo}
}

// Execute registers the user and returns the stored record. Uniqueness is
// enforced by the storage indexes inside the transaction, so two concurrent
// registrations of the same username resolve to one success and one
// duplicate error.
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Username:     getUsername(event.Username, event.Email),
		Email:        strings.TrimSpace(event.Email),
		PasswordHash: hash,
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		Phone:        event.Phone,
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := h.repo.Users().RegisterTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}

func getUsername(username, email string) string {
	username = strings.TrimSpace(username)
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
