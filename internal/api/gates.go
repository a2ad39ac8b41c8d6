package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/rbac"
	"github.com/nightgig/platform/auth/internal/service"
)

// Gates build route guards on top of the RBAC engine. Every guard stops a
// request without an actor with 401 AUTH_REQUIRED before anything else.
type Gates struct {
	rbac  *rbac.Engine
	audit service.SecurityAuditor
}

func NewGates(engine *rbac.Engine, audit service.SecurityAuditor) *Gates {
	if audit == nil {
		audit = nopAuditor{}
	}

	return &Gates{rbac: engine, audit: audit}
}

// RequireRole admits actors whose role is at least role.
func (g *Gates) RequireRole(role rbac.Role) func(http.Handler) http.Handler {
	return g.gate(CodeInsufficientPrivileges, "role", string(role), func(a entity.Actor) bool {
		return g.rbac.HasRole(string(a.Role), string(role))
	})
}

func (g *Gates) RequireAdmin() func(http.Handler) http.Handler {
	return g.gate(CodeAdminRequired, "admin", "access", func(a entity.Actor) bool {
		return g.rbac.HasRole(string(a.Role), string(rbac.Admin))
	})
}

func (g *Gates) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return g.gate(CodePermissionDenied, resource, action, func(a entity.Actor) bool {
		return g.rbac.HasPermission(string(a.Role), resource, action)
	})
}

func (g *Gates) gate(code, resource, action string, allow func(entity.Actor) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			actor, ok := entity.ActorFromCtx(ctx)
			if !ok {
				g.deny(ctx, entity.CategoryAuthnDenied, entity.AnonymousActor, "", resource, action, CodeAuthRequired)
				sendErr(ctx, w, http.StatusUnauthorized, nil, ResponseError{Message: errAuthRequiredText, Code: CodeAuthRequired})

				return
			}

			if !check(ctx, actor, allow) {
				g.deny(ctx, entity.CategoryAuthzDenied, actor.ID.String(), string(actor.Role), resource, action, code)
				sendErr(ctx, w, http.StatusForbidden, nil, ResponseError{Message: errForbiddenText, Code: code})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check treats a panicking predicate as a denial.
func check(ctx context.Context, actor entity.Actor, allow func(entity.Actor) bool) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "authorization check panicked", "error", rec)
			ok = false
		}
	}()

	return allow(actor)
}

func (g *Gates) deny(ctx context.Context, category entity.SecurityCategory, actor, role, resource, action, code string) {
	g.audit.Log(ctx, entity.SecurityEvent{
		Category: category,
		Actor:    actor,
		Role:     role,
		Resource: resource,
		Action:   action,
		Outcome:  entity.OutcomeDenied,
		Code:     code,
	})
}
