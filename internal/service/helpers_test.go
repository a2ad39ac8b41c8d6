package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/repository"
	"github.com/nightgig/platform/auth/internal/service"
	"github.com/nightgig/platform/auth/pkg/config"
)

const strongPassword = "Dance#Floor9"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 16, 23, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []entity.SecurityEvent
}

func (a *recordingAuditor) Log(_ context.Context, e entity.SecurityEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.events = append(a.events, e)
}

func (a *recordingAuditor) Categories() []entity.SecurityCategory {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]entity.SecurityCategory, len(a.events))
	for i, e := range a.events {
		out[i] = e.Category
	}

	return out
}

func (a *recordingAuditor) Find(category entity.SecurityCategory) (entity.SecurityEvent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, e := range a.events {
		if e.Category == category {
			return e, true
		}
	}

	return entity.SecurityEvent{}, false
}

type recordingNotifications struct {
	mu            sync.Mutex
	resets        map[string]string
	verifications map[string]string
}

func newRecordingNotifications() *recordingNotifications {
	return &recordingNotifications{
		resets:        make(map[string]string),
		verifications: make(map[string]string),
	}
}

func (n *recordingNotifications) SendPasswordReset(_ context.Context, email, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.resets[email] = link
}

func (n *recordingNotifications) SendEmailVerification(_ context.Context, email, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.verifications[email] = link
}

func testConfig() config.Config {
	return config.Config{
		StorageDriver: config.StorageDriverMemory,
		FrontendURL:   "https://app.nightgig.test",
		JWT: config.JWTConfig{
			Secret:             "0123456789abcdef0123456789abcdef",
			Issuer:             "nightgig-auth",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
		Security: config.SecurityConfig{
			MaxLoginAttempts:   5,
			LockoutDuration:    15 * time.Minute,
			RateLimitWindow:    15 * time.Minute,
			RateLimitMax:       100,
			AuthRateLimitMax:   20,
			PasswordResetTTL:   time.Hour,
			EmailVerifyTTL:     24 * time.Hour,
			DenylistOnLogout:   true,
			RevokeOnTokenReuse: true,
		},
		Google: config.GoogleConfig{
			Timeout:      time.Second,
			VerifyTokens: true,
		},
	}
}

type testEnv struct {
	svc    *service.Service
	store  *repository.MemoryStore
	clock  *fakeClock
	audit  *recordingAuditor
	notify *recordingNotifications
}

func newTestEnv(t *testing.T, provider service.IdentityProvider) *testEnv {
	t.Helper()

	return newTestEnvWithConfig(t, testConfig(), provider)
}

func newTestEnvWithConfig(t *testing.T, cfg config.Config, provider service.IdentityProvider) *testEnv {
	t.Helper()

	clock := newFakeClock()
	store := repository.NewMemoryStore(clock.Now)
	audit := &recordingAuditor{}
	notify := newRecordingNotifications()

	deps := service.Deps{
		Users:         store,
		AccountStates: store,
		RefreshTokens: store,
		Verifications: store,
		Denylist:      store,
		Attempts:      store,
		Notifications: notify,
		Audit:         audit,
		PasswordCost:  bcrypt.MinCost,
		Clock:         clock.Now,
	}

	if provider != nil {
		deps.Provider = provider
	}

	svc, err := service.NewService(cfg, deps)
	require.NoError(t, err)

	return &testEnv{svc: svc, store: store, clock: clock, audit: audit, notify: notify}
}

func (e *testEnv) register(t *testing.T, email, role string) entity.Session {
	t.Helper()

	session, err := e.svc.Register(context.Background(), service.RegisterInput{
		Email:    email,
		Password: strongPassword,
		Name:     "Test User",
		Role:     role,
	})
	require.NoError(t, err)

	return session
}
