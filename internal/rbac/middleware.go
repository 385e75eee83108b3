package rbac

import (
	"log/slog"
	"net/http"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Middleware wires permission checks into the HTTP layer.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require ensures the current principal may perform action on module.
func (m Middleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			allowed, err := m.Service.Allowed(r.Context(), principal.UserID, principal.Roles, module, action)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac check", slog.String("module", string(module)), slog.Any("error", err))
				}
				httpx.Fail(w, http.StatusInternalServerError, "internal error")
				return
			}
			if !allowed {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireElevated admits only owner/admin principals.
func (m Middleware) RequireElevated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if !IsElevated(principal.Roles) {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
