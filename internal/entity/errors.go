package entity

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidInput  = errors.New("invalid input")
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrRateLimited        = errors.New("too many requests")
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrRefreshTokenUsed = errors.New("refresh token already used")
)

var (
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrPasswordTooLong       = errors.New("password is too long")
	ErrPasswordNoUpperCase   = errors.New("password must contain an upper-case letter")
	ErrPasswordNoLowerCase   = errors.New("password must contain a lower-case letter")
	ErrPasswordNoDigit       = errors.New("password must contain a digit")
	ErrPasswordNoSpecialChar = errors.New("password must contain a special character")
)

var (
	ErrEmailInvalidLen    = errors.New("email length exceeds 255 characters")
	ErrEmailInvalidFormat = errors.New("incorrect email format")
	ErrEmailNormalization = errors.New("email normalization failed")
	ErrNameInvalidLen     = errors.New("name must be between 1 and 100 characters")
	ErrRoleInvalid        = errors.New("unknown role")
	ErrRoleNotAssignable  = errors.New("role cannot be self-assigned")
)

var (
	ErrVerificationTokenInvalid = errors.New("verification token is invalid or expired")
)

var (
	ErrOAuthDisabled           = errors.New("oauth provider is not configured")
	ErrOAuthStateMismatch      = errors.New("oauth state mismatch")
	ErrOAuthInvalidCode        = errors.New("invalid authorization code")
	ErrOAuthInvalidToken       = errors.New("provider rejected token")
	ErrOAuthEmailMismatch      = errors.New("provider email does not match profile")
	ErrOAuthEmailUnverified    = errors.New("provider email is not verified")
	ErrOAuthServiceUnavailable = errors.New("oauth provider unavailable")
)

// LockedError is returned while an account is locked out.
type LockedError struct {
	LockedUntil time.Time
	RetryAfter  time.Duration
}

func (e *LockedError) Error() string { return ErrAccountLocked.Error() }

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// CredentialsError is a failed credential check. Unknown accounts count down
// Remaining like real ones, so callers cannot tell the two cases apart.
type CredentialsError struct {
	Remaining *int
}

func (e *CredentialsError) Error() string { return ErrInvalidCredentials.Error() }

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }

type RateLimitedError struct {
	RetryAfter time.Duration
	Limit      int
}

func (e *RateLimitedError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// ValidationError lists every violated rule of one input.
type ValidationError struct {
	Field      string
	Violations []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}

	return e.Field + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}

	return msgs
}
