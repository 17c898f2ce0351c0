package users

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserStore is the lookup surface the provider needs
type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
}

// UserProvider verifies credentials against stored accounts. It is the only
// component that sees plaintext passwords, and only long enough to hash or
// compare them.
type UserProvider struct {
	store  UserStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity finds the account by username or email and compares the
// password. Unknown identifier and wrong password fail identically with
// ErrInvalidCredentials so the response cannot confirm account existence.
// Deactivated accounts fail with the distinct ErrUserDeactivated.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (*User, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			// burn a bcrypt comparison so the miss costs the same as a
			// mismatch
			_ = ComparePasswordAndHash(password, dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserDeactivated
	}

	return user, nil
}

// FindActiveByID loads the account for an already-verified session. Missing
// rows surface as not found, inactive rows as deactivated; callers pick the
// response policy per path.
func (u *UserProvider) FindActiveByID(ctx context.Context, id int64) (*User, error) {
	user, err := u.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserDeactivated
	}

	return user, nil
}

// SetPassword re-hashes and replaces the stored secret. Verification against
// the previous password fails from this point on.
func (u *UserProvider) SetPassword(ctx context.Context, userID int64, plaintext string) error {
	hash, err := HashPassword(plaintext)
	if err != nil {
		return err
	}

	return u.store.SetPassword(ctx, userID, hash)
}

// dummyHash is a throwaway bcrypt digest ("not-the-password") used to keep
// verification latency flat when the account does not exist.
const dummyHash = "$2a$12$C6UzMDM.H6dfI/f/IKcEeO5YVb1B0Rd4yqsQCrnuzPZEPQkW1Gvt6"
