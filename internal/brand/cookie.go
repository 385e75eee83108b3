package brand

import (
	"net/http"
	"time"
)

// CookieName carries the current working brand slug. The value is a
// non-sensitive slug readable by client script; every use of it is
// re-authorized server-side.
const CookieName = "active_brand_slug"

// WriteCookie sets the active-brand cookie.
func WriteCookie(w http.ResponseWriter, slug string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    slug,
		Path:     "/",
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
	})
}

// SlugFromRequest reads the active-brand cookie, empty when absent.
func SlugFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
