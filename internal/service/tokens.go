package service

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/rbac"
	"github.com/nightgig/platform/auth/pkg/config"
)

// TokenIssuer signs and verifies access and refresh tokens with one HS256
// secret. Verification is pure: it never touches storage.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(cfg config.JWTConfig, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}

	return &TokenIssuer{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenExpiry,
		refreshTTL: cfg.RefreshTokenExpiry,
		now:        now,
	}
}

func (t *TokenIssuer) IssuePair(subject uuid.UUID, email string, role rbac.Role) (entity.TokenPair, error) {
	now := t.now()

	access, accessID, err := t.sign(subject, email, role, entity.TokenTypeAccess, now, now.Add(t.accessTTL))
	if err != nil {
		return entity.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, refreshID, err := t.sign(subject, email, role, entity.TokenTypeRefresh, now, now.Add(t.refreshTTL))
	if err != nil {
		return entity.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return entity.TokenPair{
		AccessToken:      access,
		AccessTokenID:    accessID,
		AccessExpiresAt:  now.Add(t.accessTTL),
		RefreshToken:     refresh,
		RefreshTokenID:   refreshID,
		RefreshExpiresAt: now.Add(t.refreshTTL),
	}, nil
}

func (t *TokenIssuer) sign(
	subject uuid.UUID, email string, role rbac.Role, typ entity.TokenType, issuedAt, expiresAt time.Time,
) (string, string, error) {
	jti := uuid.Must(uuid.NewV4()).String()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, entity.TokenClaims{
		Email: email,
		Role:  string(role),
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    t.issuer,
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(t.secret)
	if err != nil {
		return "", "", err
	}

	return signed, jti, nil
}

// Verify returns the claims of a well-formed, correctly signed, unexpired
// token of either type, or nil.
func (t *TokenIssuer) Verify(token string) *entity.TokenClaims {
	if token == "" {
		return nil
	}

	var claims entity.TokenClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil
	}

	if claims.Type != entity.TokenTypeAccess && claims.Type != entity.TokenTypeRefresh {
		return nil
	}

	if claims.ID == "" {
		return nil
	}

	if _, err := claims.UserID(); err != nil {
		return nil
	}

	return &claims
}

// VerifyType is Verify restricted to one token type.
func (t *TokenIssuer) VerifyType(token string, typ entity.TokenType) *entity.TokenClaims {
	claims := t.Verify(token)
	if claims == nil || claims.Type != typ {
		return nil
	}

	return claims
}

func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }
