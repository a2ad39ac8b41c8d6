package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// AccountSecurityState is the lockout state of one account.
type AccountSecurityState struct {
	UserID              uuid.UUID
	FailedLoginAttempts int
	LockedUntil         *time.Time
}

// LockedAt reports whether the account refuses logins at now.
func (s AccountSecurityState) LockedAt(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

type LoginProvider string

const (
	LoginProviderPassword LoginProvider = "password"
	LoginProviderGoogle   LoginProvider = "google"
)
