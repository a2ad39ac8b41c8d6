package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/nightgig/platform/auth/internal/entity"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps every record in process memory behind one mutex. It
// serves single instance deployments and tests.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]entity.User
	emails        map[string]uuid.UUID
	refreshTokens map[string]entity.RefreshToken
	verifications map[string]entity.VerificationToken
	windows       map[string]window
	revoked       map[string]time.Time
	now           func() time.Time
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}

	return &MemoryStore{
		users:         make(map[uuid.UUID]entity.User),
		emails:        make(map[string]uuid.UUID),
		refreshTokens: make(map[string]entity.RefreshToken),
		verifications: make(map[string]entity.VerificationToken),
		windows:       make(map[string]window),
		revoked:       make(map[string]time.Time),
		now:           now,
	}
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.emails[email]
	if !ok {
		return entity.User{}, entity.ErrNotFound
	}

	return m.users[id], nil
}

func (m *MemoryStore) UserByID(_ context.Context, id uuid.UUID) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return entity.User{}, entity.ErrNotFound
	}

	return user, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emails[user.Email]; ok {
		return entity.ErrAlreadyExists
	}

	if _, ok := m.users[user.ID]; ok {
		return entity.ErrAlreadyExists
	}

	m.users[user.ID] = user
	m.emails[user.Email] = user.ID

	return nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, id uuid.UUID, upd entity.UserUpdate) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return entity.User{}, entity.ErrNotFound
	}

	if upd.Empty() {
		return user, nil
	}

	if upd.PasswordHash != nil {
		user.PasswordHash = *upd.PasswordHash
	}

	if upd.Role != nil {
		user.Role = *upd.Role
	}

	if upd.Name != nil {
		user.Name = *upd.Name
	}

	if upd.GoogleID != nil {
		user.GoogleID = *upd.GoogleID
	}

	if upd.EmailVerified != nil {
		user.EmailVerified = *upd.EmailVerified
	}

	user.UpdatedAt = m.now()
	m.users[id] = user

	return user, nil
}

func (m *MemoryStore) RegisterFailedLogin(
	_ context.Context, userID uuid.UUID, maxAttempts int, lockFor time.Duration, now time.Time,
) (entity.AccountSecurityState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return entity.AccountSecurityState{}, entity.ErrNotFound
	}

	switch {
	case user.LockedUntil != nil && now.Before(*user.LockedUntil):
		user.FailedLoginAttempts++
	case user.LockedUntil != nil:
		user.FailedLoginAttempts = 1
		user.LockedUntil = nil
	default:
		user.FailedLoginAttempts++
	}

	if user.LockedUntil == nil && user.FailedLoginAttempts >= maxAttempts {
		until := now.Add(lockFor)
		user.LockedUntil = &until
	}

	user.UpdatedAt = now
	m.users[userID] = user

	return user.SecurityState(), nil
}

func (m *MemoryStore) RegisterSuccessfulLogin(_ context.Context, userID uuid.UUID, now time.Time) (entity.AccountSecurityState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return entity.AccountSecurityState{}, entity.ErrNotFound
	}

	if user.SecurityState().LockedAt(now) {
		return user.SecurityState(), nil
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.UpdatedAt = now
	m.users[userID] = user

	return user.SecurityState(), nil
}

func (m *MemoryStore) ClearLockout(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return entity.ErrNotFound
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	m.users[userID] = user

	return nil
}

func (m *MemoryStore) SaveRefreshToken(_ context.Context, token entity.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.refreshTokens[token.ID]; ok {
		return entity.ErrAlreadyExists
	}

	m.refreshTokens[token.ID] = token

	return nil
}

func (m *MemoryStore) ConsumeRefreshToken(_ context.Context, id string, now time.Time) (entity.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.refreshTokens[id]
	if !ok {
		return entity.RefreshToken{}, entity.ErrNotFound
	}

	delete(m.refreshTokens, id)

	if !now.Before(token.ExpiresAt) {
		return entity.RefreshToken{}, entity.ErrNotFound
	}

	return token, nil
}

func (m *MemoryStore) DeleteRefreshToken(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.refreshTokens, id)

	return nil
}

func (m *MemoryStore) DeleteRefreshTokensByUserID(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, token := range m.refreshTokens {
		if token.UserID == userID {
			delete(m.refreshTokens, id)
		}
	}

	return nil
}

func (m *MemoryStore) ActiveRefreshTokenIDs(_ context.Context, userID uuid.UUID, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make([]entity.RefreshToken, 0)

	for _, token := range m.refreshTokens {
		if token.UserID == userID && now.Before(token.ExpiresAt) {
			active = append(active, token)
		}
	}

	slices.SortFunc(active, func(a, b entity.RefreshToken) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	ids := make([]string, len(active))
	for i, token := range active {
		ids[i] = token.ID
	}

	return ids, nil
}

func (m *MemoryStore) CleanExpiredRefreshTokens(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, token := range m.refreshTokens {
		if !now.Before(token.ExpiresAt) {
			delete(m.refreshTokens, id)
		}
	}

	return nil
}

// RefreshTokenCount returns the number of stored refresh tokens of a user.
func (m *MemoryStore) RefreshTokenCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0

	for _, token := range m.refreshTokens {
		if token.UserID == userID {
			n++
		}
	}

	return n
}

func (m *MemoryStore) SaveVerificationToken(_ context.Context, token entity.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.verifications[token.TokenHash]; ok {
		return entity.ErrAlreadyExists
	}

	m.verifications[token.TokenHash] = token

	return nil
}

func (m *MemoryStore) ConsumeVerificationToken(
	_ context.Context, tokenHash string, purpose entity.VerificationPurpose, now time.Time,
) (entity.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.verifications[tokenHash]
	if !ok || token.Purpose != purpose {
		return entity.VerificationToken{}, entity.ErrNotFound
	}

	delete(m.verifications, tokenHash)

	if token.ExpiredAt(now) {
		return entity.VerificationToken{}, entity.ErrNotFound
	}

	return token, nil
}

func (m *MemoryStore) DeleteVerificationTokens(_ context.Context, userID uuid.UUID, purpose entity.VerificationPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for hash, token := range m.verifications {
		if token.UserID == userID && token.Purpose == purpose {
			delete(m.verifications, hash)
		}
	}

	return nil
}

func (m *MemoryStore) CleanExpiredVerificationTokens(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for hash, token := range m.verifications {
		if token.ExpiredAt(now) {
			delete(m.verifications, hash)
		}
	}

	return nil
}

// Hit counts one request for key in a fixed window starting at the first hit.
func (m *MemoryStore) Hit(_ context.Context, key string, d time.Duration, now time.Time) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(d)}
	}

	w.count++
	m.windows[key] = w

	return w.count, w.resetAt, nil
}

func (m *MemoryStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.revoked[tokenID] = until

	return nil
}

func (m *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.revoked[tokenID]
	if !ok {
		return false, nil
	}

	return until.IsZero() || m.now().Before(until), nil
}

// Sweep drops rate limit windows and denylist entries that ended before now.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0

	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
			n++
		}
	}

	for id, until := range m.revoked {
		if !until.IsZero() && !now.Before(until) {
			delete(m.revoked, id)
			n++
		}
	}

	return n
}
