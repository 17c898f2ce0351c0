package users_test

import (
	"context"
	"database/sql"
	"testing"

	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testSchema = `
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username VARCHAR(80) NOT NULL,
    email VARCHAR(120) NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    first_name VARCHAR(100),
    last_name VARCHAR(100),
    phone_number VARCHAR(32),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP,
    updated_at TIMESTAMP
);
CREATE UNIQUE INDEX idx_users_username ON users (username);
CREATE UNIQUE INDEX idx_users_email ON users (email);

CREATE TABLE revoked_tokens (
    jti VARCHAR(36) PRIMARY KEY,
    user_id INTEGER,
    expires_at TIMESTAMP NOT NULL,
    revoked_at TIMESTAMP NOT NULL
);
`

// newTestDB opens an isolated in-memory sqlite handle with the service schema
// applied.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(context.Background(), testSchema)
	require.NoError(t, err)

	return db
}

// seededHash is a fixed bcrypt digest used as the stored secret for seeded
// rows, so bulk seeding does not pay the hashing cost per row. No test
// verifies a plaintext against it.
const seededHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

func seedUser(t *testing.T, repo users.Users, username, email string) *users.User {
	t.Helper()

	user, err := repo.Register(context.Background(), &users.User{
		Username:     username,
		Email:        email,
		PasswordHash: seededHash,
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	return user
}
