package users

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Users owns the identity rows: it is the only writer of the users table.
type Users interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	UpdateProfile(ctx context.Context, id int64, req UpdateUserRequest) (*User, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	Deactivate(ctx context.Context, id int64) error

	List(ctx context.Context, params ListUsersParams) (*UserPage, error)
}

// ListUsersParams drives the paginated listing. Search matches username or
// email substrings, case-insensitive. Only active accounts are listed.
type ListUsersParams struct {
	Page    int
	PerPage int
	Search  string
}

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

func (p *ListUsersParams) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}
	if p.PerPage > maxPerPage {
		p.PerPage = maxPerPage
	}
}

// UserPage is one page of results plus the pagination metadata the listing
// endpoint serializes.
type UserPage struct {
	Users   []*User
	Page    int
	PerPage int
	Total   int
}

// Pages is the page count for the current page size.
func (p *UserPage) Pages() int {
	if p.Total == 0 || p.PerPage == 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p *UserPage) HasNext() bool { return p.Page < p.Pages() }
func (p *UserPage) HasPrev() bool { return p.Page > 1 }

type usersRepo struct {
	db *bun.DB
}

var _ Users = (*usersRepo)(nil)

// NewUsersRepository creates the bun-backed Users repository.
func NewUsersRepository(db *bun.DB) Users {
	return &usersRepo{db: db}
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, "?TableAlias.id = ?", id)
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "?TableAlias.username = ?", username)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "?TableAlias.email = ?", email)
}

// GetByIdentifier looks the account up by username first and falls back to
// email, matching the login contract.
func (r *usersRepo) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrUserNotFound
	}

	user, err := r.GetByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}

	if !goerrors.IsNotFound(err) {
		return nil, err
	}

	return r.GetByEmail(ctx, identifier)
}

func (r *usersRepo) getOne(ctx context.Context, where string, arg any) (*User, error) {
	record := &User{}

	err := r.db.NewSelect().
		Model(record).
		Where(where, arg).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	return record, nil
}

func (r *usersRepo) Register(ctx context.Context, user *User) (*User, error) {
	return r.RegisterTx(ctx, r.db, user)
}

// RegisterTx inserts the record and relies on the unique indexes to enforce
// username/email uniqueness atomically. A violation discovered by storage maps
// to the same duplicate errors an up-front lookup would produce, so concurrent
// registrations cannot race past the check.
func (r *usersRepo) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, goerrors.New("user record must not be nil", goerrors.CategoryBadInput)
	}

	now := time.Now()
	user.IsActive = true
	user.CreatedAt = &now
	user.UpdatedAt = &now

	if _, err := tx.NewInsert().Model(user).Returning("*").Exec(ctx); err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user")
	}

	return user, nil
}

// UpdateProfile applies a typed partial update. Only the enumerated fields can
// change; the update timestamp is always bumped. An email change that collides
// with another account maps to the duplicate-email conflict.
func (r *usersRepo) UpdateProfile(ctx context.Context, id int64, req UpdateUserRequest) (*User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	q := r.db.NewUpdate().
		Model(user).
		Where("?TableAlias.id = ?", id)

	if req.Email != nil {
		user.Email = *req.Email
		q.Column("email")
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
		q.Column("first_name")
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
		q.Column("last_name")
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
		q.Column("phone_number")
	}

	user.Touch()
	q.Column("updated_at")

	if _, err := q.Exec(ctx); err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}

	return user, nil
}

// SetPassword replaces the stored hash and bumps updated_at. The plaintext
// never reaches this layer.
func (r *usersRepo) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password hash")
	}

	return ensureRowAffected(res)
}

// Deactivate performs the logical deletion: the row stays, the active flag
// flips. A deactivated account can no longer authenticate.
func (r *usersRepo) Deactivate(ctx context.Context, id int64) error {
	res, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("is_active = ?", false).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to deactivate user")
	}

	return ensureRowAffected(res)
}

func (r *usersRepo) List(ctx context.Context, params ListUsersParams) (*UserPage, error) {
	params.normalize()

	records := []*User{}

	q := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.is_active = ?", true)

	if search := strings.TrimSpace(params.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("LOWER(?TableAlias.username) LIKE ?", pattern).
				WhereOr("LOWER(?TableAlias.email) LIKE ?", pattern)
		})
	}

	total, err := q.
		Order("usr.id ASC").
		Limit(params.PerPage).
		Offset((params.Page - 1) * params.PerPage).
		ScanAndCount(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}

	return &UserPage{
		Users:   records,
		Page:    params.Page,
		PerPage: params.PerPage,
		Total:   total,
	}, nil
}

func ensureRowAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read affected rows")
	}

	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// mapUniqueViolation translates driver-level unique index failures into the
// duplicate errors of the domain. Covers sqlite ("UNIQUE constraint failed:
// users.username") and postgres ("duplicate key value violates unique
// constraint ...users_email...", SQLSTATE 23505) phrasing.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint") &&
		!strings.Contains(msg, "duplicate key") &&
		!strings.Contains(msg, "23505") {
		return nil
	}

	lower := strings.ToLower(msg)
	if strings.Contains(lower, "email") {
		return ErrDuplicateEmail
	}

	if strings.Contains(lower, "username") {
		return ErrDuplicateUsername
	}

	return ErrDuplicateUsername
}
