package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/rbac"
	"github.com/nightgig/platform/auth/pkg/config"
	"github.com/nightgig/platform/auth/pkg/logger"
)

const (
	verificationTokenBytes = 32
	defaultOAuthTimeout    = 10 * time.Second
)

type UserRepository interface {
	UserByEmail(ctx context.Context, email string) (entity.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (entity.User, error)
	CreateUser(ctx context.Context, user entity.User) error
	UpdateUser(ctx context.Context, id uuid.UUID, upd entity.UserUpdate) (entity.User, error)
}

type RefreshTokenRepository interface {
	SaveRefreshToken(ctx context.Context, token entity.RefreshToken) error
	// ConsumeRefreshToken deletes and returns an unexpired token in one step.
	// A missing, expired or already consumed token is entity.ErrNotFound.
	ConsumeRefreshToken(ctx context.Context, id string, now time.Time) (entity.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, id string) error
	DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) error
	// ActiveRefreshTokenIDs lists the unexpired tokens of a user, oldest first.
	ActiveRefreshTokenIDs(ctx context.Context, userID uuid.UUID, now time.Time) ([]string, error)
	CleanExpiredRefreshTokens(ctx context.Context, now time.Time) error
}

type VerificationTokenRepository interface {
	SaveVerificationToken(ctx context.Context, token entity.VerificationToken) error
	ConsumeVerificationToken(
		ctx context.Context, tokenHash string, purpose entity.VerificationPurpose, now time.Time,
	) (entity.VerificationToken, error)
	DeleteVerificationTokens(ctx context.Context, userID uuid.UUID, purpose entity.VerificationPurpose) error
	CleanExpiredVerificationTokens(ctx context.Context, now time.Time) error
}

// TokenDenylist holds access token ids revoked before their expiry.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type NotificationService interface {
	SendPasswordReset(ctx context.Context, email, link string)
	SendEmailVerification(ctx context.Context, email, link string)
}

type SecurityAuditor interface {
	Log(ctx context.Context, event entity.SecurityEvent)
}

type nopAuditor struct{}

func (nopAuditor) Log(context.Context, entity.SecurityEvent) {}

type nopNotifications struct{}

func (nopNotifications) SendPasswordReset(context.Context, string, string) {}

func (nopNotifications) SendEmailVerification(context.Context, string, string) {}

type Deps struct {
	Users         UserRepository
	AccountStates AccountStateRepository
	RefreshTokens RefreshTokenRepository
	Verifications VerificationTokenRepository
	Denylist      TokenDenylist
	// Attempts counts failed logins for unknown addresses. Optional.
	Attempts      WindowStore
	Notifications NotificationService
	Audit         SecurityAuditor
	// Provider is nil when Google sign-in is not configured.
	Provider IdentityProvider
	RBAC     *rbac.Engine
	// PasswordCost defaults to PasswordCost.
	PasswordCost int
	Clock        func() time.Time
}

type Service struct {
	cfg           config.Config
	users         UserRepository
	refreshTokens RefreshTokenRepository
	verifications VerificationTokenRepository
	denylist      TokenDenylist
	notification  NotificationService
	audit         SecurityAuditor
	rbac          *rbac.Engine
	credentials   *Credentials
	tokens        *TokenIssuer
	policy        *LoginPolicy
	bridge        *OAuthBridge
	now           func() time.Time
}

func NewService(cfg config.Config, d Deps) (*Service, error) {
	if d.Clock == nil {
		d.Clock = time.Now
	}

	if d.PasswordCost == 0 {
		d.PasswordCost = PasswordCost
	}

	if d.RBAC == nil {
		d.RBAC = rbac.Default()
	}

	if d.Audit == nil {
		d.Audit = nopAuditor{}
	}

	if d.Notifications == nil {
		d.Notifications = nopNotifications{}
	}

	credentials, err := NewCredentials(d.PasswordCost)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:           cfg,
		users:         d.Users,
		refreshTokens: d.RefreshTokens,
		verifications: d.Verifications,
		denylist:      d.Denylist,
		notification:  d.Notifications,
		audit:         d.Audit,
		rbac:          d.RBAC,
		credentials:   credentials,
		tokens:        NewTokenIssuer(cfg.JWT, d.Clock),
		policy: NewLoginPolicy(d.AccountStates, cfg.Security.MaxLoginAttempts, cfg.Security.LockoutDuration, d.Clock).
			WithUnknownAccounts(d.Attempts),
		now:           d.Clock,
	}

	timeout := cfg.Google.Timeout
	if timeout <= 0 {
		timeout = defaultOAuthTimeout
	}

	s.bridge = &OAuthBridge{
		provider: d.Provider,
		users:    d.Users,
		policy:   s.policy,
		audit:    d.Audit,
		start:    s.StartSession,
		verify:   cfg.Google.VerifyTokens,
		timeout:  timeout,
		now:      d.Clock,
	}

	return s, nil
}

func (s *Service) Tokens() *TokenIssuer { return s.tokens }

func (s *Service) Policy() *LoginPolicy { return s.policy }

func (s *Service) RBAC() *rbac.Engine { return s.rbac }

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (entity.Session, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return entity.Session{}, &entity.ValidationError{Field: "email", Violations: []error{entity.ErrEmailInvalidFormat}}
	}

	if err := ValidatePassword(in.Password); err != nil {
		return entity.Session{}, err
	}

	if err := ValidateName(in.Name); err != nil {
		return entity.Session{}, &entity.ValidationError{Field: "name", Violations: []error{err}}
	}

	role, err := RegistrationRole(in.Role)
	if err != nil {
		return entity.Session{}, &entity.ValidationError{Field: "role", Violations: []error{err}}
	}

	hash, err := s.credentials.HashPassword(in.Password)
	if err != nil {
		return entity.Session{}, err
	}

	now := s.now()
	user := entity.User{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.users.CreateUser(ctx, user)
	if errors.Is(err, entity.ErrAlreadyExists) {
		return entity.Session{}, entity.ErrEmailTaken
	}

	if err != nil {
		return entity.Session{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	s.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryAccountCreated,
		Actor:    user.ID.String(),
		Role:     string(user.Role),
		Outcome:  entity.OutcomeAllowed,
		Reason:   string(entity.LoginProviderPassword),
	})

	if err := s.sendEmailVerification(ctx, user); err != nil {
		slog.ErrorContext(ctx, "failed to issue email verification", "user_id", user.ID, "error", err)
	}

	return s.StartSession(ctx, user)
}

// Login checks lockout, then the password, then updates lockout state.
// Unknown accounts and wrong passwords both return *entity.CredentialsError.
func (s *Service) Login(ctx context.Context, email, password string) (entity.Session, error) {
	ctx = logger.SetLogType(ctx, "security")

	normalized, err := NormalizeEmail(email)
	if err != nil {
		s.credentials.BurnVerification(password)
		s.loginFailed(ctx, entity.AnonymousActor, "malformed_email")

		return entity.Session{}, s.unknownAccountFailure(ctx, email)
	}

	user, err := s.users.UserByEmail(ctx, normalized)
	if errors.Is(err, entity.ErrNotFound) {
		s.credentials.BurnVerification(password)
		s.loginFailed(ctx, entity.AnonymousActor, "unknown_account")

		return entity.Session{}, s.unknownAccountFailure(ctx, normalized)
	}

	if err != nil {
		return entity.Session{}, fmt.Errorf("find user by email: %w", err)
	}

	ctx = logger.SetUserID(ctx, user.ID.String())

	if err := s.policy.Check(user.SecurityState()); err != nil {
		s.audit.Log(ctx, entity.SecurityEvent{
			Category: entity.CategoryLockedAttempt,
			Actor:    user.ID.String(),
			Outcome:  entity.OutcomeDenied,
			Code:     "ACCOUNT_LOCKED",
		})

		return entity.Session{}, err
	}

	if !s.credentials.VerifyPassword(password, user.PasswordHash) {
		remaining, err := s.policy.RecordFailure(ctx, user.ID)

		var locked *entity.LockedError
		if errors.As(err, &locked) {
			slog.WarnContext(ctx, "account locked", "user_id", user.ID, "locked_until", locked.LockedUntil)
			s.audit.Log(ctx, entity.SecurityEvent{
				Category: entity.CategoryAccountLocked,
				Actor:    user.ID.String(),
				Outcome:  entity.OutcomeDenied,
				Code:     "ACCOUNT_LOCKED",
			})

			return entity.Session{}, err
		}

		if err != nil {
			return entity.Session{}, err
		}

		s.loginFailed(ctx, user.ID.String(), "wrong_password")

		return entity.Session{}, &entity.CredentialsError{Remaining: &remaining}
	}

	if err := s.policy.RecordSuccess(ctx, user.ID); err != nil {
		return entity.Session{}, err
	}

	now := s.now()
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	s.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryLoginSucceeded,
		Actor:    user.ID.String(),
		Role:     string(user.Role),
		Outcome:  entity.OutcomeAllowed,
		Reason:   string(entity.LoginProviderPassword),
	})

	return s.StartSession(ctx, user)
}

// revokeAfterReuse drops every refresh token of the user and returns how many
// live sessions that ended.
func (s *Service) revokeAfterReuse(ctx context.Context, userID uuid.UUID) int {
	active, err := s.refreshTokens.ActiveRefreshTokenIDs(ctx, userID, s.now())
	if err != nil {
		slog.WarnContext(ctx, "failed to list sessions before revocation", "error", err)
	}

	if err := s.refreshTokens.DeleteRefreshTokensByUserID(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "failed to revoke sessions after reuse", "error", err)
		return 0
	}

	return len(active)
}

// unknownAccountFailure answers a login for an address without an account
// exactly like a wrong password on a real one.
func (s *Service) unknownAccountFailure(ctx context.Context, email string) error {
	// hashed so raw addresses never reach the window store
	key := hashVerificationToken(strings.ToLower(strings.TrimSpace(email)))

	remaining, err := s.policy.RecordUnknownFailure(ctx, key)
	if err != nil {
		return err
	}

	return &entity.CredentialsError{Remaining: &remaining}
}

func (s *Service) loginFailed(ctx context.Context, actor, reason string) {
	s.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryLoginFailed,
		Actor:    actor,
		Outcome:  entity.OutcomeDenied,
		Code:     "INVALID_CREDENTIALS",
		Reason:   reason,
	})
}

// StartSession issues a token pair for user and records the refresh token.
func (s *Service) StartSession(ctx context.Context, user entity.User) (entity.Session, error) {
	pair, err := s.tokens.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		return entity.Session{}, fmt.Errorf("issue tokens: %w", err)
	}

	err = s.refreshTokens.SaveRefreshToken(ctx, entity.RefreshToken{
		ID:        pair.RefreshTokenID,
		UserID:    user.ID,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: s.now(),
	})
	if err != nil {
		return entity.Session{}, fmt.Errorf("save refresh token: %w", err)
	}

	return entity.Session{Tokens: pair, User: user}, nil
}

// Refresh rotates a refresh token. A token that verifies but was already
// consumed is treated as stolen: every session of its owner is revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (entity.Session, error) {
	claims := s.tokens.VerifyType(refreshToken, entity.TokenTypeRefresh)
	if claims == nil {
		return entity.Session{}, entity.ErrInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return entity.Session{}, entity.ErrInvalidToken
	}

	ctx = logger.SetUserID(ctx, userID.String())

	_, err = s.refreshTokens.ConsumeRefreshToken(ctx, claims.ID, s.now())
	if errors.Is(err, entity.ErrNotFound) {
		revoked := 0
		if s.cfg.Security.RevokeOnTokenReuse {
			revoked = s.revokeAfterReuse(ctx, userID)
		}

		slog.WarnContext(ctx, "refresh token reuse detected", "jti", claims.ID, "revoked_sessions", revoked)
		s.audit.Log(ctx, entity.SecurityEvent{
			Category: entity.CategoryTokenReuse,
			Actor:    userID.String(),
			Resource: "refresh_token",
			Action:   "refresh",
			Outcome:  entity.OutcomeDenied,
			Code:     "INVALID_TOKEN",
			Reason:   "sessions_revoked=" + strconv.Itoa(revoked),
		})

		return entity.Session{}, entity.ErrRefreshTokenUsed
	}

	if err != nil {
		return entity.Session{}, fmt.Errorf("consume refresh token: %w", err)
	}

	user, err := s.users.UserByID(ctx, userID)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.Session{}, entity.ErrInvalidToken
	}

	if err != nil {
		return entity.Session{}, fmt.Errorf("find user: %w", err)
	}

	return s.StartSession(ctx, user)
}

// Authenticate resolves a bearer access token to an actor.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (entity.Actor, error) {
	claims := s.tokens.VerifyType(accessToken, entity.TokenTypeAccess)
	if claims == nil {
		return entity.Actor{}, entity.ErrInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return entity.Actor{}, entity.ErrInvalidToken
	}

	role, ok := s.rbac.ValidateRole(claims.Role)
	if !ok {
		return entity.Actor{}, entity.ErrInvalidToken
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return entity.Actor{}, fmt.Errorf("check token denylist: %w", err)
		}

		if revoked {
			return entity.Actor{}, entity.ErrTokenRevoked
		}
	}

	actor := entity.Actor{
		ID:      userID,
		Email:   claims.Email,
		Role:    role,
		TokenID: claims.ID,
	}

	if claims.ExpiresAt != nil {
		actor.ExpiresAt = claims.ExpiresAt.Time
	}

	return actor, nil
}

// Logout revokes the refresh token of this session, or every session when
// all is set, and denylists the access token until it expires.
func (s *Service) Logout(ctx context.Context, actor entity.Actor, refreshToken string, all bool) error {
	if s.denylist != nil && s.cfg.Security.DenylistOnLogout && actor.TokenID != "" {
		if err := s.denylist.Revoke(ctx, actor.TokenID, actor.ExpiresAt); err != nil {
			return fmt.Errorf("denylist access token: %w", err)
		}
	}

	if all {
		if err := s.refreshTokens.DeleteRefreshTokensByUserID(ctx, actor.ID); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
	} else if claims := s.tokens.VerifyType(refreshToken, entity.TokenTypeRefresh); claims != nil && claims.Subject == actor.ID.String() {
		if err := s.refreshTokens.DeleteRefreshToken(ctx, claims.ID); err != nil {
			return fmt.Errorf("delete refresh token: %w", err)
		}
	}

	s.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryTokenRevoked,
		Actor:    actor.ID.String(),
		Role:     string(actor.Role),
		Resource: "session",
		Action:   "logout",
		Outcome:  entity.OutcomeAllowed,
	})

	return nil
}

// LogoutWithRefreshToken ends a session for a client whose access token is
// gone. The refresh token must still verify.
func (s *Service) LogoutWithRefreshToken(ctx context.Context, refreshToken string, all bool) error {
	claims := s.tokens.VerifyType(refreshToken, entity.TokenTypeRefresh)
	if claims == nil {
		return entity.ErrInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return entity.ErrInvalidToken
	}

	ctx = logger.SetUserID(ctx, userID.String())

	if all {
		err = s.refreshTokens.DeleteRefreshTokensByUserID(ctx, userID)
	} else {
		err = s.refreshTokens.DeleteRefreshToken(ctx, claims.ID)
	}

	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryTokenRevoked,
		Actor:    userID.String(),
		Resource: "session",
		Action:   "logout",
		Outcome:  entity.OutcomeAllowed,
		Reason:   "refresh_token",
	})

	return nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (entity.User, []string, error) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return entity.User{}, nil, fmt.Errorf("find user: %w", err)
	}

	return user, s.rbac.GetUserPermissions(string(user.Role)), nil
}

// ForgotPassword issues a reset token when the account exists. It reports
// success either way so callers cannot discover accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil
	}

	user, err := s.users.UserByEmail(ctx, normalized)
	if errors.Is(err, entity.ErrNotFound) {
		slog.InfoContext(ctx, "password reset requested for unknown email")
		return nil
	}

	if err != nil {
		return fmt.Errorf("find user by email: %w", err)
	}

	if err := s.verifications.DeleteVerificationTokens(ctx, user.ID, entity.VerificationPurposePasswordReset); err != nil {
		return fmt.Errorf("delete previous reset tokens: %w", err)
	}

	raw, err := s.issueVerificationToken(ctx, user.ID, entity.VerificationPurposePasswordReset, s.cfg.Security.PasswordResetTTL)
	if err != nil {
		return err
	}

	s.notification.SendPasswordReset(ctx, user.Email, s.frontendLink("/reset-password", raw))

	s.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryPasswordReset,
		Actor:    user.ID.String(),
		Action:   "request",
		Outcome:  entity.OutcomeAllowed,
	})

	return nil
}

// ResetPassword replaces the password, clears lockout and ends all sessions.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	record, err := s.verifications.ConsumeVerificationToken(
		ctx, hashVerificationToken(token), entity.VerificationPurposePasswordReset, s.now(),
	)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.ErrVerificationTokenInvalid
	}

	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}

	hash, err := s.credentials.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if _, err := s.users.UpdateUser(ctx, record.UserID, entity.UserUpdate{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.policy.Unlock(ctx, record.UserID); err != nil {
		return err
	}

	if err := s.refreshTokens.DeleteRefreshTokensByUserID(ctx, record.UserID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	s.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryPasswordReset,
		Actor:    record.UserID.String(),
		Action:   "complete",
		Outcome:  entity.OutcomeAllowed,
	})

	return nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	record, err := s.verifications.ConsumeVerificationToken(
		ctx, hashVerificationToken(token), entity.VerificationPurposeEmailVerify, s.now(),
	)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.ErrVerificationTokenInvalid
	}

	if err != nil {
		return fmt.Errorf("consume verification token: %w", err)
	}

	verified := true
	if _, err := s.users.UpdateUser(ctx, record.UserID, entity.UserUpdate{EmailVerified: &verified}); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	s.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryEmailVerified,
		Actor:    record.UserID.String(),
		Outcome:  entity.OutcomeAllowed,
	})

	return nil
}

// AssignRole changes a user's role and ends their sessions so the new role
// applies from the next login.
func (s *Service) AssignRole(ctx context.Context, admin entity.Actor, userID uuid.UUID, candidate string) (entity.User, error) {
	role, ok := s.rbac.ValidateRole(candidate)
	if !ok {
		return entity.User{}, &entity.ValidationError{Field: "role", Violations: []error{entity.ErrRoleInvalid}}
	}

	user, err := s.users.UpdateUser(ctx, userID, entity.UserUpdate{Role: &role})
	if err != nil {
		return entity.User{}, fmt.Errorf("update role: %w", err)
	}

	if err := s.refreshTokens.DeleteRefreshTokensByUserID(ctx, userID); err != nil {
		return entity.User{}, fmt.Errorf("revoke refresh tokens: %w", err)
	}

	s.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryRoleChanged,
		Actor:    admin.ID.String(),
		Role:     string(admin.Role),
		Resource: "users:" + userID.String(),
		Action:   "assign_role:" + string(role),
		Outcome:  entity.OutcomeAllowed,
	})

	return user, nil
}

func (s *Service) GoogleEnabled() bool {
	return s.bridge.Enabled()
}

func (s *Service) GoogleAuthURL(state string) (string, error) {
	if !s.bridge.Enabled() {
		return "", entity.ErrOAuthDisabled
	}

	return s.bridge.provider.AuthCodeURL(state), nil
}

func (s *Service) GoogleCallback(ctx context.Context, code string) (entity.Session, error) {
	return s.bridge.ExchangeCode(logger.SetLogType(ctx, "security"), code)
}

func (s *Service) GoogleTokenLogin(ctx context.Context, externalToken string, profile entity.ExternalProfile) (entity.Session, error) {
	return s.bridge.Exchange(logger.SetLogType(ctx, "security"), externalToken, profile)
}

func (s *Service) DeleteExpiredTokens(ctx context.Context) error {
	now := s.now()

	if err := s.refreshTokens.CleanExpiredRefreshTokens(ctx, now); err != nil {
		return fmt.Errorf("clean refresh tokens: %w", err)
	}

	if err := s.verifications.CleanExpiredVerificationTokens(ctx, now); err != nil {
		return fmt.Errorf("clean verification tokens: %w", err)
	}

	return nil
}

func (s *Service) sendEmailVerification(ctx context.Context, user entity.User) error {
	raw, err := s.issueVerificationToken(ctx, user.ID, entity.VerificationPurposeEmailVerify, s.cfg.Security.EmailVerifyTTL)
	if err != nil {
		return err
	}

	s.notification.SendEmailVerification(ctx, user.Email, s.frontendLink("/verify-email", raw))

	return nil
}

func (s *Service) issueVerificationToken(
	ctx context.Context, userID uuid.UUID, purpose entity.VerificationPurpose, ttl time.Duration,
) (string, error) {
	raw, err := GenerateVerificationToken()
	if err != nil {
		return "", err
	}

	now := s.now()

	err = s.verifications.SaveVerificationToken(ctx, entity.VerificationToken{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hashVerificationToken(raw),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("save verification token: %w", err)
	}

	return raw, nil
}

func (s *Service) frontendLink(path, token string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func GenerateVerificationToken() (string, error) {
	b := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashVerificationToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
