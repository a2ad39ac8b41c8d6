package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/nightgig/platform/auth/docs" //nolint:revive,nolintlint
	"github.com/nightgig/platform/auth/internal/rbac"
	"github.com/nightgig/platform/auth/pkg/metrics"
)

type Limiters struct {
	Auth RateLimiter
	API  RateLimiter
}

func NewRouter(h *Handler, mw *Middleware, g *Gates, limits Limiters) http.Handler {
	router := chi.NewRouter()

	router.Use(mw.Recover, mw.Cors, mw.WithIP, mw.WithDeviceID, mw.Log, metrics.Instrument(routePattern))

	router.Get("/health", h.Health)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Route("/api", func(r chi.Router) {
		r.Use(mw.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit(limits.Auth))

			r.Post("/auth/register", h.Register)
			r.Post("/auth/login", h.Login)
			r.Post("/auth/refresh", h.Refresh)
			r.Post("/auth/forgot-password", h.ForgotPassword)
			r.Post("/auth/reset-password", h.ResetPassword)
			r.Post("/auth/verify-email", h.VerifyEmail)

			r.Get("/auth/google", h.GoogleRedirect)
			r.Get("/auth/google/callback", h.GoogleCallback)
			r.Post("/auth/google", h.GoogleToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit(limits.API))

			r.Get("/rbac/roles", h.Roles)
			r.Get("/rbac/permissions/{role}", h.Permissions)

			// a refresh token alone is enough to end a session
			r.Post("/auth/logout", h.Logout)

			r.Group(func(r chi.Router) {
				r.Use(g.RequireRole(rbac.Guest))

				r.Get("/auth/me", h.Me)
				r.Get("/missions", h.ListMissions)
			})

			r.With(g.RequirePermission("missions", "create")).Post("/missions", h.CreateMission)

			r.With(g.RequireAdmin()).Put("/admin/users/{id}/role", h.AssignRole)
		})
	})

	return router
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return "unmatched"
	}

	return rctx.RoutePattern()
}
