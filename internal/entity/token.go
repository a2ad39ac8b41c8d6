package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"
	jwt "github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

type TokenClaims struct {
	Email string    `json:"email"`
	Role  string    `json:"role,omitempty"`
	Type  TokenType `json:"type"`
	jwt.RegisteredClaims
}

func (c TokenClaims) UserID() (uuid.UUID, error) {
	return uuid.FromString(c.Subject)
}

type TokenPair struct {
	AccessToken      string
	AccessTokenID    string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshTokenID   string
	RefreshExpiresAt time.Time
}

// RefreshToken is the persisted record of an issued refresh token.
type RefreshToken struct {
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Session struct {
	Tokens TokenPair
	User   User
}
