package users_test

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/mock"
)

// MockUserStore implements users.UserStore for provider tests.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByIdentifier(ctx context.Context, identifier string) (*users.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id int64) (*users.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func (m *MockUserStore) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// MockIdentityProvider implements users.IdentityProvider for authenticator
// tests.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (*users.User, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func (m *MockIdentityProvider) FindActiveByID(ctx context.Context, id int64) (*users.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func newTestTokenService() *users.TokenServiceImpl {
	return users.NewTokenService(
		[]byte("test-signing-key"),
		1,
		24,
		"go-users-test",
		jwt.ClaimStrings{"go-users-test"},
		nil,
	)
}

func activeUser(id int64) *users.User {
	now := time.Now()
	return &users.User{
		ID:        id,
		Username:  "testuser",
		Email:     "test@example.com",
		IsActive:  true,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
}
