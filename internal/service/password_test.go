package service_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/service"
)

func TestCredentials_HashAndVerify(t *testing.T) {
	t.Parallel()

	c, err := service.NewCredentials(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := c.HashPassword(strongPassword)
	require.NoError(t, err)
	require.NotEqual(t, strongPassword, hash)

	other, err := c.HashPassword(strongPassword)
	require.NoError(t, err)
	require.NotEqual(t, hash, other, "salted hashes differ")

	require.True(t, c.VerifyPassword(strongPassword, hash))
	require.False(t, c.VerifyPassword("Dance#Floor8", hash))
	require.False(t, c.VerifyPassword(strongPassword, ""))
	require.False(t, c.VerifyPassword(strongPassword, "not-a-bcrypt-hash"))
}

func TestNewCredentials_RejectsBadCost(t *testing.T) {
	t.Parallel()

	_, err := service.NewCredentials(bcrypt.MaxCost + 1)
	require.Error(t, err)
}

func TestPasswordViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		expected []error
	}{
		{"strong", strongPassword, nil},
		{"short", "Ab1!", []error{entity.ErrPasswordTooShort}},
		{"no upper", "dance#floor9", []error{entity.ErrPasswordNoUpperCase}},
		{"no lower", "DANCE#FLOOR9", []error{entity.ErrPasswordNoLowerCase}},
		{"no digit", "Dance#Floors", []error{entity.ErrPasswordNoDigit}},
		{"no special", "DanceFloor99", []error{entity.ErrPasswordNoSpecialChar}},
		{"too long", "Aa1!" + strings.Repeat("x", 70), []error{entity.ErrPasswordTooLong}},
		{
			"everything wrong",
			"",
			[]error{
				entity.ErrPasswordTooShort,
				entity.ErrPasswordNoUpperCase,
				entity.ErrPasswordNoLowerCase,
				entity.ErrPasswordNoDigit,
				entity.ErrPasswordNoSpecialChar,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, service.PasswordViolations(tt.password))
		})
	}
}

func TestValidatePassword_ListsEveryViolation(t *testing.T) {
	t.Parallel()

	err := service.ValidatePassword("abc")

	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "password", verr.Field)
	require.Len(t, verr.Messages(), 4)
	require.ErrorIs(t, err, entity.ErrInvalidInput)

	require.NoError(t, service.ValidatePassword(strongPassword))
}
