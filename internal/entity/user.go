package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/nightgig/platform/auth/internal/rbac"
)

type User struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	PasswordHash        string     `json:"-"`
	Role                rbac.Role  `json:"role"`
	GoogleID            string     `json:"-"`
	EmailVerified       bool       `json:"emailVerified"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func (u User) SecurityState() AccountSecurityState {
	return AccountSecurityState{
		UserID:              u.ID,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LockedUntil:         u.LockedUntil,
	}
}

func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UserUpdate carries the profile fields that may change after creation.
// Nil fields are left untouched. Lockout counters are not here: they are
// written through the account state repository only.
type UserUpdate struct {
	PasswordHash  *string
	Role          *rbac.Role
	Name          *string
	GoogleID      *string
	EmailVerified *bool
}

func (u UserUpdate) Empty() bool {
	return u.PasswordHash == nil && u.Role == nil && u.Name == nil && u.GoogleID == nil && u.EmailVerified == nil
}

// Actor is the authenticated principal attached to a request.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  rbac.Role
	// TokenID is the jti of the access token that authenticated the request.
	TokenID   string
	ExpiresAt time.Time
}

func (a Actor) Valid() bool {
	return a.ID != uuid.Nil && a.Role != ""
}
