package users

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the account record. Username and email are unique at the storage
// level; username is immutable after creation. The password is only ever kept
// as a bcrypt hash. "Deletion" flips IsActive, rows are never removed.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           int64      `bun:"id,pk,autoincrement" json:"id"`
	Username     string     `bun:"username,notnull,unique" json:"username"`
	Email        string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	FirstName    string     `bun:"first_name" json:"first_name,omitempty"`
	LastName     string     `bun:"last_name" json:"last_name,omitempty"`
	Phone        string     `bun:"phone_number" json:"phone_number,omitempty"`
	IsActive     bool       `bun:"is_active,notnull,default:true" json:"is_active"`
	IsAdmin      bool       `bun:"is_admin,notnull,default:false" json:"is_admin,omitempty"`
	CreatedAt    *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt    *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// FullName falls back to the username when no name fields are set.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// Public returns the client-facing projection of the record. The email is
// included only for the owning identity; the admin flag only when set. The
// password hash never leaves the server.
func (u *User) Public(includeEmail bool) map[string]any {
	data := map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"is_active":  u.IsActive,
	}

	if u.Phone != "" {
		data["phone_number"] = u.Phone
	}

	if u.CreatedAt != nil {
		data["created_at"] = u.CreatedAt.UTC().Format(time.RFC3339)
	}

	if u.UpdatedAt != nil {
		data["updated_at"] = u.UpdatedAt.UTC().Format(time.RFC3339)
	}

	if includeEmail {
		data["email"] = u.Email
	}

	if u.IsAdmin {
		data["is_admin"] = true
	}

	return data
}

// Touch bumps the update timestamp.
func (u *User) Touch() {
	now := time.Now()
	u.UpdatedAt = &now
}

// UpdateUserRequest enumerates the mutable profile fields. Anything not listed
// here (username, flags, timestamps) cannot be changed through the self-service
// surface. Nil pointers mean "leave as is".
type UpdateUserRequest struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone_number,omitempty"`
	Password  *string `json:"password,omitempty"`
}

// Empty reports whether the request carries no mutation at all.
func (r UpdateUserRequest) Empty() bool {
	return r.Email == nil &&
		r.FirstName == nil &&
		r.LastName == nil &&
		r.Phone == nil &&
		r.Password == nil
}
