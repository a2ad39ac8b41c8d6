package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/nightgig/platform/auth/internal/api"
	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/rbac"
	"github.com/nightgig/platform/auth/internal/service"
)

type stubAuthenticator struct {
	actor entity.Actor
	err   error
}

func (s stubAuthenticator) Authenticate(context.Context, string) (entity.Actor, error) {
	return s.actor, s.err
}

func TestMiddleware_WithIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		trustProxy bool
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr without proxy trust",
			remoteAddr: "203.0.113.7:5555",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "last forwarded entry behind proxy",
			trustProxy: true,
			remoteAddr: "10.0.0.2:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1, 203.0.113.50"},
			want:       "203.0.113.50",
		},
		{
			name:       "client supplied prefix ignored",
			trustProxy: true,
			remoteAddr: "10.0.0.2:80",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8, 203.0.113.50:4431"},
			want:       "203.0.113.50",
		},
		{
			name:       "garbage last entry falls back to remote addr",
			trustProxy: true,
			remoteAddr: "10.0.0.2:80",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1, garbage"},
			want:       "10.0.0.2",
		},
		{
			name:       "real ip without forwarded header",
			trustProxy: true,
			remoteAddr: "10.0.0.2:80",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "198.51.100.9",
		},
		{
			name:       "real ip ignored without proxy trust",
			remoteAddr: "203.0.113.7:5555",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "203.0.113.7",
		},
		{
			name:       "invalid address",
			remoteAddr: "not-an-ip",
			want:       "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mw := api.NewMiddleware(stubAuthenticator{}, &recordingAuditor{}, tt.trustProxy)

			var got string

			h := mw.WithIP(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = entity.IPFromCtx(r.Context())
			}))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr

			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			h.ServeHTTP(httptest.NewRecorder(), r)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	actor := entity.Actor{ID: uuid.Must(uuid.NewV4()), Role: rbac.Client, TokenID: "jti"}

	tests := []struct {
		name      string
		header    string
		auth      stubAuthenticator
		wantActor bool
	}{
		{name: "no header", header: "", wantActor: false},
		{name: "valid token", header: "Bearer good", auth: stubAuthenticator{actor: actor}, wantActor: true},
		{name: "invalid token", header: "Bearer bad", auth: stubAuthenticator{err: entity.ErrInvalidToken}, wantActor: false},
		{name: "revoked token", header: "Bearer old", auth: stubAuthenticator{err: entity.ErrTokenRevoked}, wantActor: false},
		{name: "denylist down", header: "Bearer good", auth: stubAuthenticator{err: errors.New("redis down")}, wantActor: false},
		{name: "wrong scheme", header: "Basic abc", auth: stubAuthenticator{err: entity.ErrInvalidToken}, wantActor: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mw := api.NewMiddleware(tt.auth, &recordingAuditor{}, false)

			var (
				got    entity.Actor
				gotOK  bool
				called bool
			)

			h := mw.Authenticate(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				called = true
				got, gotOK = entity.ActorFromCtx(r.Context())
			}))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			h.ServeHTTP(httptest.NewRecorder(), r)

			require.True(t, called)
			require.Equal(t, tt.wantActor, gotOK)

			if tt.wantActor {
				require.Equal(t, actor.ID, got.ID)
			}
		})
	}
}

type brokenWindowStore struct{}

func (brokenWindowStore) Hit(context.Context, string, time.Duration, time.Time) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

type countingWindowStore struct {
	count int
	reset time.Time
}

func (s *countingWindowStore) Hit(_ context.Context, _ string, _ time.Duration, _ time.Time) (int, time.Time, error) {
	s.count++
	return s.count, s.reset, nil
}

func TestMiddleware_RateLimit(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 16, 23, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := &countingWindowStore{reset: now.Add(90 * time.Second)}
	limiter := service.NewRateLimiter(store, "auth", 2, 15*time.Minute, clock)

	auditor := &recordingAuditor{}
	mw := api.NewMiddleware(stubAuthenticator{}, auditor, false)

	h := mw.RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := range 2 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, strconv.Itoa(1-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "90", rec.Header().Get("Retry-After"))

	body := decodeError(t, rec)
	require.Equal(t, api.CodeRateLimited, body.Code)
	require.NotNil(t, body.RetryAfter)
	require.Equal(t, 90, *body.RetryAfter)
	require.Equal(t, entity.CategoryRateLimited, auditor.Last().Category)
}

func TestMiddleware_RateLimitFailsOpen(t *testing.T) {
	t.Parallel()

	mw := api.NewMiddleware(stubAuthenticator{}, &recordingAuditor{}, false)
	limiter := service.NewRateLimiter(brokenWindowStore{}, "auth", 1, time.Minute, nil)

	h := mw.RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestMiddleware_RecoverReturnsJSON(t *testing.T) {
	t.Parallel()

	mw := api.NewMiddleware(stubAuthenticator{}, &recordingAuditor{}, false)

	h := mw.Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, api.CodeInternal, decodeError(t, rec).Code)
}

func TestNilAuditorDefaultsToNoop(t *testing.T) {
	t.Parallel()

	mw := api.NewMiddleware(stubAuthenticator{err: entity.ErrInvalidToken}, nil, false)
	gates := api.NewGates(rbac.Default(), nil)

	h := mw.Authenticate(gates.RequireRole(rbac.Client)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/missions", nil)
	r.Header.Set("Authorization", "Bearer stale")

	require.NotPanics(t, func() { h.ServeHTTP(rec, r) })
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	denied := gates.RequireRole(rbac.Client)(http.NotFoundHandler())

	require.NotPanics(t, func() { denied.ServeHTTP(rec, actorRequest(http.MethodGet, "/api/missions", rbac.Guest)) })
	require.Equal(t, http.StatusForbidden, rec.Code)
}
