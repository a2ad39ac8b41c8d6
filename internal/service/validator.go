package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/rbac"
)

const (
	EmailMaxLen = 255
	NameMinLen  = 1
	NameMaxLen  = 100
)

var (
	emailRegexp      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	whitespaceRegexp = regexp.MustCompile(`\s+`)
)

func ValidateEmail(email string) error {
	if len(email) > EmailMaxLen {
		return entity.ErrEmailInvalidLen
	}

	if !emailRegexp.MatchString(email) {
		return entity.ErrEmailInvalidFormat
	}

	if strings.Contains(email, "..") {
		return entity.ErrEmailInvalidFormat
	}

	return nil
}

func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	normalized = whitespaceRegexp.ReplaceAllString(normalized, "")

	err := ValidateEmail(normalized)
	if err != nil {
		return "", entity.ErrEmailNormalization
	}

	return normalized, nil
}

func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < NameMinLen || n > NameMaxLen {
		return entity.ErrNameInvalidLen
	}

	return nil
}

// RegistrationRole resolves the role requested at sign-up. Empty means the
// lowest role; privileged roles cannot be self-assigned.
func RegistrationRole(candidate string) (rbac.Role, error) {
	if strings.TrimSpace(candidate) == "" {
		return rbac.LowestRole, nil
	}

	role, ok := rbac.ValidateRole(candidate)
	if !ok {
		return "", entity.ErrRoleInvalid
	}

	if !rbac.IsSelfAssignable(role) {
		return "", entity.ErrRoleNotAssignable
	}

	return role, nil
}
