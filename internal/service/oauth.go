package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/rbac"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=oauth.go -destination=../mocks/oauth.go -package=mocks -typed

type IdentityProvider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*entity.ProviderTokens, error)
	VerifyAccessToken(ctx context.Context, accessToken string) (*entity.ExternalIdentity, error)
}

type sessionStarter func(ctx context.Context, user entity.User) (entity.Session, error)

// OAuthBridge turns a provider identity into a local session. It creates or
// links the account by email and honours lockout like a password login.
type OAuthBridge struct {
	provider IdentityProvider
	users    UserRepository
	policy   *LoginPolicy
	audit    SecurityAuditor
	start    sessionStarter
	verify   bool
	timeout  time.Duration
	now      func() time.Time
}

func (b *OAuthBridge) Enabled() bool {
	return b != nil && b.provider != nil
}

// Exchange establishes a session for an externally issued token. With
// verification on, the provider must confirm the token within the timeout or
// the exchange is denied.
func (b *OAuthBridge) Exchange(ctx context.Context, externalToken string, profile entity.ExternalProfile) (entity.Session, error) {
	if !b.Enabled() {
		return entity.Session{}, entity.ErrOAuthDisabled
	}

	var identity entity.ExternalIdentity

	if b.verify {
		verified, err := b.verifyToken(ctx, externalToken)
		if err != nil {
			b.deny(ctx, profile.Email, "verification_failed")
			return entity.Session{}, err
		}

		if profile.Email != "" && !strings.EqualFold(strings.TrimSpace(profile.Email), verified.Email) {
			b.deny(ctx, profile.Email, "email_mismatch")
			return entity.Session{}, entity.ErrOAuthEmailMismatch
		}

		identity = *verified
	} else {
		identity = entity.ExternalIdentity{
			Provider: entity.LoginProviderGoogle,
			Subject:  profile.Subject,
			Email:    profile.Email,
			Name:     profile.Name,
			Picture:  profile.Picture,
		}
	}

	return b.link(ctx, identity)
}

// ExchangeCode completes the authorization code flow. The identity always
// comes from the provider here, so verification cannot be skipped.
func (b *OAuthBridge) ExchangeCode(ctx context.Context, code string) (entity.Session, error) {
	if !b.Enabled() {
		return entity.Session{}, entity.ErrOAuthDisabled
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	tokens, err := b.provider.ExchangeCode(exchangeCtx, code)
	if err != nil {
		b.deny(ctx, "", "code_exchange_failed")
		return entity.Session{}, failClosed(err)
	}

	identity, err := b.verifyToken(ctx, tokens.AccessToken)
	if err != nil {
		b.deny(ctx, "", "verification_failed")
		return entity.Session{}, err
	}

	return b.link(ctx, *identity)
}

func (b *OAuthBridge) verifyToken(ctx context.Context, token string) (*entity.ExternalIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, entity.ErrOAuthInvalidToken
	}

	verifyCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	identity, err := b.provider.VerifyAccessToken(verifyCtx, token)
	if err != nil {
		return nil, failClosed(err)
	}

	if identity == nil || identity.Email == "" {
		return nil, entity.ErrOAuthInvalidToken
	}

	if !identity.EmailVerified {
		return nil, entity.ErrOAuthEmailUnverified
	}

	return identity, nil
}

// failClosed keeps provider rejections distinct and folds everything else,
// timeouts included, into ErrOAuthServiceUnavailable.
func failClosed(err error) error {
	switch {
	case errors.Is(err, entity.ErrOAuthInvalidToken),
		errors.Is(err, entity.ErrOAuthInvalidCode),
		errors.Is(err, entity.ErrOAuthEmailUnverified):
		return err
	default:
		return fmt.Errorf("%w: %w", entity.ErrOAuthServiceUnavailable, err)
	}
}

func (b *OAuthBridge) link(ctx context.Context, identity entity.ExternalIdentity) (entity.Session, error) {
	email, err := NormalizeEmail(identity.Email)
	if err != nil {
		return entity.Session{}, &entity.ValidationError{Field: "email", Violations: []error{err}}
	}

	user, err := b.users.UserByEmail(ctx, email)

	switch {
	case errors.Is(err, entity.ErrNotFound):
		user, err = b.createUser(ctx, email, identity)
		if err != nil {
			return entity.Session{}, err
		}
	case err != nil:
		return entity.Session{}, fmt.Errorf("find user by email: %w", err)
	default:
		user, err = b.linkExisting(ctx, user, identity)
		if err != nil {
			return entity.Session{}, err
		}
	}

	if err := b.policy.RecordSuccess(ctx, user.ID); err != nil {
		b.deny(ctx, email, "account_locked")
		return entity.Session{}, err
	}

	now := b.now()
	user.LastLoginAt = &now
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil

	return b.start(ctx, user)
}

func (b *OAuthBridge) linkExisting(ctx context.Context, user entity.User, identity entity.ExternalIdentity) (entity.User, error) {
	if err := b.policy.Check(user.SecurityState()); err != nil {
		b.audit.Log(ctx, entity.SecurityEvent{
			Category: entity.CategoryLockedAttempt,
			Actor:    user.ID.String(),
			Outcome:  entity.OutcomeDenied,
			Code:     "ACCOUNT_LOCKED",
			Reason:   "oauth",
		})

		return entity.User{}, err
	}

	if user.GoogleID != "" && identity.Subject != "" && user.GoogleID != identity.Subject {
		b.deny(ctx, user.Email, "subject_mismatch")
		return entity.User{}, entity.ErrOAuthEmailMismatch
	}

	var upd entity.UserUpdate

	if user.GoogleID == "" && identity.Subject != "" {
		upd.GoogleID = &identity.Subject
	}

	if identity.EmailVerified && !user.EmailVerified {
		verified := true
		upd.EmailVerified = &verified
	}

	if upd.Empty() {
		return user, nil
	}

	updated, err := b.users.UpdateUser(ctx, user.ID, upd)
	if err != nil {
		return entity.User{}, fmt.Errorf("link oauth identity: %w", err)
	}

	b.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryOAuthLinked,
		Actor:    user.ID.String(),
		Outcome:  entity.OutcomeAllowed,
		Reason:   string(identity.Provider),
	})

	return updated, nil
}

func (b *OAuthBridge) createUser(ctx context.Context, email string, identity entity.ExternalIdentity) (entity.User, error) {
	now := b.now()

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	user := entity.User{
		ID:            uuid.Must(uuid.NewV4()),
		Email:         email,
		Name:          name,
		Role:          rbac.LowestRole,
		GoogleID:      identity.Subject,
		EmailVerified: identity.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := b.users.CreateUser(ctx, user)
	if errors.Is(err, entity.ErrAlreadyExists) {
		// lost a race with a concurrent sign-up for the same email
		existing, findErr := b.users.UserByEmail(ctx, email)
		if findErr != nil {
			return entity.User{}, fmt.Errorf("find user after conflict: %w", findErr)
		}

		return b.linkExisting(ctx, existing, identity)
	}

	if err != nil {
		return entity.User{}, fmt.Errorf("create oauth user: %w", err)
	}

	slog.InfoContext(ctx, "account created from oauth identity", "user_id", user.ID, "provider", identity.Provider)

	b.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryAccountCreated,
		Actor:    user.ID.String(),
		Role:     string(user.Role),
		Outcome:  entity.OutcomeAllowed,
		Reason:   string(identity.Provider),
	})

	return user, nil
}

func (b *OAuthBridge) deny(ctx context.Context, email, reason string) {
	b.audit.Log(ctx, entity.SecurityEvent{
		Category: entity.CategoryOAuthDenied,
		Actor:    entity.AnonymousActor,
		Resource: "oauth",
		Action:   "exchange",
		Outcome:  entity.OutcomeDenied,
		Code:     "OAUTH_FAILED",
		Reason:   reason,
	})

	slog.WarnContext(ctx, "oauth exchange denied", "reason", reason, "email_present", email != "")
}
