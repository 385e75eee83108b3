package auth

import (
	"net/http"
	"strings"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

// publicPaths are reachable without a session.
var publicPaths = map[string]bool{
	"/api/auth/login":  true,
	"/api/auth/signup": true,
	"/healthz":         true,
}

// Authenticator reads the auth cookie, verifies it and stores the principal
// on the request context. Requests without a valid cookie pass through
// anonymous; RequireSession decides whether that is acceptable.
func Authenticator(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err == nil && cookie.Value != "" {
				if principal, err := tokens.Verify(cookie.Value); err == nil {
					r = r.WithContext(shared.ContextWithPrincipal(r.Context(), principal))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects anonymous requests to protected API paths with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] || !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		if shared.PrincipalFromContext(r.Context()) == nil {
			httpx.Fail(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
