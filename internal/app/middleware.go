package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/meridian-erp/meridian/internal/auth"
	"github.com/meridian-erp/meridian/internal/brand"
	"github.com/meridian-erp/meridian/internal/rbac"
	"github.com/meridian-erp/meridian/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger *slog.Logger
	Config *Config
	Tokens *auth.TokenManager
	Scope  *brand.ScopeResolver
	Active *brand.ActiveResolver
}

// TenantMiddleware resolves the per-request tenant context for authenticated
// callers: the allowed brand set and the active brand. It runs after the
// authenticator so the principal is already on the context. Anonymous
// requests pass through without a tenant; RequireSession fences those off
// from the API surface.
func TenantMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			userID := &principal.UserID
			tc := &shared.TenantContext{}

			if !rbac.IsElevated(principal.Roles) {
				allowed, err := cfg.Scope.ResolveAllowedBrandIDs(ctx, userID, principal.Roles, nil)
				if err != nil {
					cfg.Logger.Error("resolve brand scope", slog.Int64("user_id", principal.UserID), slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if allowed == nil {
					allowed = []int64{}
				}
				tc.AllowedBrandIDs = allowed
			}

			if active := cfg.Active.Resolve(ctx, userID, principal.Roles, brand.SlugFromRequest(r)); active != nil {
				tc.ActiveBrand = &shared.BrandRef{ID: active.ID, Slug: active.Slug, Name: active.Name}
			}

			next.ServeHTTP(w, r.WithContext(shared.ContextWithTenant(ctx, tc)))
		})
	}
}

// MiddlewareStack installs the Meridian middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	return []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		auth.Authenticator(cfg.Tokens),
		auth.RequireSession,
		TenantMiddleware(cfg),
	}
}
