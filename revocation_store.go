package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RevokedToken is the persisted form of a revocation entry, for deployments
// where the registry has to be shared across instances or survive restarts.
type RevokedToken struct {
	bun.BaseModel `bun:"table:revoked_tokens,alias:rvt"`

	JTI       string    `bun:"jti,pk" json:"jti"`
	UserID    int64     `bun:"user_id" json:"user_id,omitempty"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expires_at"`
	RevokedAt time.Time `bun:"revoked_at,notnull,default:current_timestamp" json:"revoked_at"`
}

// StoreRevocations is the bun-backed RevocationRegistry.
type StoreRevocations struct {
	db bun.IDB
}

var _ RevocationRegistry = (*StoreRevocations)(nil)

// NewStoreRevocations creates a registry backed by the revoked_tokens table.
func NewStoreRevocations(db bun.IDB) *StoreRevocations {
	return &StoreRevocations{db: db}
}

// Revoke inserts the jti; a replay of the same jti is a no-op thanks to the
// primary key conflict clause, which keeps the call idempotent under
// concurrent logouts of the same token.
func (s *StoreRevocations) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}

	entry := &RevokedToken{
		JTI:       jti,
		ExpiresAt: expiresAt,
		RevokedAt: time.Now(),
	}

	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (jti) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist token revocation")
	}

	return nil
}

// IsRevoked reports whether the jti is present.
func (s *StoreRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	exists, err := s.db.NewSelect().
		Model((*RevokedToken)(nil)).
		Where("?TableAlias.jti = ?", jti).
		Exists(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token revocation")
	}

	return exists, nil
}

// PurgeExpired removes entries whose token already hit its natural expiry.
func (s *StoreRevocations) PurgeExpired(ctx context.Context, now time.Time) error {
	_, err := s.db.NewDelete().
		Model((*RevokedToken)(nil)).
		Where("?TableAlias.expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to purge revocation entries")
	}

	return nil
}
