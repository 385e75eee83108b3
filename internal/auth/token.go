package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meridian-erp/meridian/internal/shared"
)

// CookieName is the HTTP-only cookie carrying the signed auth token.
const CookieName = "auth_token"

// Claims is the payload embedded in the auth token.
type Claims struct {
	UserID int64    `json:"uid"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed auth tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(secret string, ttl time.Duration, secure bool) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, secure: secure}
}

// Issue signs a token for the given user and role set.
func (tm *TokenManager) Issue(user *User, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Verify parses a signed token and returns the principal it carries.
func (tm *TokenManager) Verify(raw string) (*shared.Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("auth: invalid token")
	}
	return &shared.Principal{UserID: claims.UserID, Email: claims.Email, Roles: claims.Roles}, nil
}

// TTL exposes the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// WriteCookie sets the auth cookie on the response.
func (tm *TokenManager) WriteCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   tm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(tm.ttl),
	})
}

// ClearCookie expires the auth cookie.
func (tm *TokenManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   tm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
