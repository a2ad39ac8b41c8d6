package service

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/nightgig/platform/auth/internal/entity"
)

const (
	// PasswordCost keeps a single verification well under a second on
	// production hardware.
	PasswordCost = 12

	PasswordMinLen = 8
	// bcrypt ignores input beyond 72 bytes.
	PasswordMaxBytes = 72
)

// dummyPassword is hashed at startup so unknown accounts cost as much to
// reject as known ones.
const dummyPassword = "nightgig-dummy-password"

type Credentials struct {
	cost      int
	dummyHash string
}

func NewCredentials(cost int) (*Credentials, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}

	c := &Credentials{cost: cost}

	hash, err := c.HashPassword(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	c.dummyHash = hash

	return c, nil
}

func (c *Credentials) HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.cost)
	if err != nil {
		return "", fmt.Errorf("generate password hash: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash. An empty hash never
// matches but still costs one bcrypt comparison.
func (c *Credentials) VerifyPassword(plaintext, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(c.dummyHash), []byte(plaintext))
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// BurnVerification spends the time of one failed verification.
func (c *Credentials) BurnVerification(plaintext string) {
	c.VerifyPassword(plaintext, "")
}

// PasswordViolations returns every strength rule plaintext breaks.
func PasswordViolations(plaintext string) []error {
	var (
		violations                           []error
		hasUpper, hasLower, hasDigit, hasSym bool
	)

	if len([]rune(plaintext)) < PasswordMinLen {
		violations = append(violations, entity.ErrPasswordTooShort)
	}

	if len(plaintext) > PasswordMaxBytes {
		violations = append(violations, entity.ErrPasswordTooLong)
	}

	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSym = true
		}
	}

	if !hasUpper {
		violations = append(violations, entity.ErrPasswordNoUpperCase)
	}

	if !hasLower {
		violations = append(violations, entity.ErrPasswordNoLowerCase)
	}

	if !hasDigit {
		violations = append(violations, entity.ErrPasswordNoDigit)
	}

	if !hasSym {
		violations = append(violations, entity.ErrPasswordNoSpecialChar)
	}

	return violations
}

// ValidatePassword returns a *entity.ValidationError listing every violation.
func ValidatePassword(plaintext string) error {
	violations := PasswordViolations(plaintext)
	if len(violations) == 0 {
		return nil
	}

	return &entity.ValidationError{Field: "password", Violations: violations}
}
