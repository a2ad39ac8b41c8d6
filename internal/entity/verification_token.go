package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

type VerificationPurpose string

const (
	VerificationPurposePasswordReset VerificationPurpose = "password_reset"
	VerificationPurposeEmailVerify   VerificationPurpose = "email_verification"
)

// VerificationToken is a one-time token. Only its hash is stored.
type VerificationToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Purpose   VerificationPurpose
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t VerificationToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
