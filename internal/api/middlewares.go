package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/service"
	"github.com/nightgig/platform/auth/pkg/logger"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (entity.Actor, error)
}

type Middleware struct {
	auth       Authenticator
	audit      service.SecurityAuditor
	trustProxy bool
}

type nopAuditor struct{}

func (nopAuditor) Log(context.Context, entity.SecurityEvent) {}

func NewMiddleware(auth Authenticator, audit service.SecurityAuditor, trustProxy bool) *Middleware {
	if audit == nil {
		audit = nopAuditor{}
	}

	return &Middleware{
		auth:       auth,
		audit:      audit,
		trustProxy: trustProxy,
	}
}

func (m *Middleware) Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Origin, Accept, User-Agent, Cache-Control, X-Service-Name")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := logger.SetRequestID(r.Context(), uuid.Must(uuid.NewV4()).String())

		ctx = logger.SetMethod(ctx, r.Method)
		ctx = logger.SetURL(ctx, r.URL.Path)
		ctx = logger.SetUserAgent(ctx, r.UserAgent())
		ctx = logger.SetLogType(ctx, "webrequest")

		callerService := r.Header.Get("X-Service-Name")
		if callerService == "" {
			callerService = "unknown"
		}

		ctx = logger.SetCallerService(ctx, callerService)

		ip := entity.IPFromCtx(ctx)
		ctx = logger.SetIP(ctx, ip)

		deviceID := entity.DeviceIDFromCtx(ctx)
		ctx = logger.SetDeviceID(ctx, deviceID)

		slog.DebugContext(ctx, "incoming request")

		next.ServeHTTP(w, r.WithContext(ctx))

		duration := time.Since(start)
		slog.InfoContext(ctx, "request completed", "duration_ms", duration.Milliseconds())
	})
}

func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			err := recover()
			if err == nil {
				return
			}

			if err == http.ErrAbortHandler { //nolint:errorlint,err113 // sentinel compared as panic value
				panic(err)
			}

			slog.ErrorContext(ctx, "panic", "error", err, "stack", string(debug.Stack()))
			sendErr(ctx, w, http.StatusInternalServerError, nil, ResponseError{Message: errInternalText, Code: CodeInternal})
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

// WithIP resolves the client address. Forwarding headers are honoured only
// behind a trusted proxy, and then only the hop that proxy appended.
func (m *Middleware) WithIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := removePort(r.RemoteAddr)

		if m.trustProxy {
			if forwarded, ok := lastForwardedIP(r.Header.Get("X-Forwarded-For")); ok {
				ip = forwarded
			} else if xRealIP := removePort(strings.TrimSpace(r.Header.Get("X-Real-IP"))); isValidIP(xRealIP) {
				ip = xRealIP
			}
		}

		if !isValidIP(ip) {
			slog.Warn("invalid IP detected, using fallback", "ip", ip, "remote_addr", r.RemoteAddr)
			ip = "unknown"
		}

		ctx := context.WithValue(r.Context(), entity.CtxKeyIP{}, ip)
		ctx = context.WithValue(ctx, entity.CtxKeyUserAgent{}, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lastForwardedIP returns the rightmost X-Forwarded-For entry. Everything to
// its left was supplied by the client.
func lastForwardedIP(header string) (string, bool) {
	parts := splitAndTrim(header, ",")
	if len(parts) == 0 {
		return "", false
	}

	last := removePort(parts[len(parts)-1])

	return last, isValidIP(last)
}

func (m *Middleware) WithDeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		deviceID := logger.HashDeviceID(entity.IPFromCtx(ctx), r.UserAgent())

		ctx = context.WithValue(ctx, entity.CtxKeyDeviceID{}, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticate attaches the actor of a valid bearer token. Requests without
// a usable token continue anonymous and are stopped by the route gates, so a
// stale token never blocks public routes like refresh.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := m.auth.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, entity.ErrInvalidToken) || errors.Is(err, entity.ErrTokenRevoked) {
				m.audit.Log(ctx, entity.SecurityEvent{
					Category: entity.CategoryAuthnDenied,
					Actor:    entity.AnonymousActor,
					Outcome:  entity.OutcomeDenied,
					Code:     CodeInvalidToken,
					Reason:   err.Error(),
				})
			} else {
				slog.ErrorContext(ctx, "authenticate bearer token", "error", err)
			}

			next.ServeHTTP(w, r)

			return
		}

		ctx = entity.WithActor(ctx, actor)
		ctx = logger.SetUserID(ctx, actor.ID.String())
		ctx = logger.SetRole(ctx, string(actor.Role))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type RateLimiter interface {
	Allow(ctx context.Context, address string) (service.RateDecision, error)
	Now() time.Time
}

// RateLimit throttles by client address. A failing window store lets the
// request through.
func (m *Middleware) RateLimit(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			decision, err := limiter.Allow(ctx, entity.IPFromCtx(ctx))
			if err != nil {
				slog.WarnContext(ctx, "rate limiter unavailable, request allowed", "error", err)
				next.ServeHTTP(w, r)

				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if err := decision.Err(limiter.Now()); err != nil {
				m.audit.Log(ctx, entity.SecurityEvent{
					Category: entity.CategoryRateLimited,
					Actor:    entity.AnonymousActor,
					Resource: r.URL.Path,
					Outcome:  entity.OutcomeDenied,
					Code:     CodeRateLimited,
				})

				sendServiceErr(ctx, w, err)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}

	return strings.TrimSpace(token), true
}

func removePort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := []string{}

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func isValidIP(ip string) bool {
	if ip == "" {
		return false
	}

	parsedIP := net.ParseIP(ip)

	return parsedIP != nil
}
