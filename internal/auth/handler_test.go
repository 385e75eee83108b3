package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, repo *stubUserRepo) (*Handler, http.Handler) {
	t.Helper()
	h := &Handler{
		Service:  NewService(repo, nil),
		Tokens:   NewTokenManager("test-secret", time.Hour, false),
		Validate: validator.New(),
	}
	r := chi.NewRouter()
	h.MountRoutes(r)
	return h, r
}

func TestLoginSetsCookie(t *testing.T) {
	repo := &stubUserRepo{byEmail: map[string]*User{
		"jo@example.com": {ID: 7, Email: "jo@example.com", PasswordHash: hash(t, "s3cret-pass"), IsActive: true},
	}}
	h, router := newTestHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"jo@example.com","password":"s3cret-pass"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)

	principal, err := h.Tokens.Verify(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, int64(7), principal.UserID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := &stubUserRepo{byEmail: map[string]*User{
		"jo@example.com": {ID: 7, Email: "jo@example.com", PasswordHash: hash(t, "s3cret-pass"), IsActive: true},
	}}
	_, router := newTestHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"jo@example.com","password":"nope"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestSignupValidatesPasswordLength(t *testing.T) {
	_, router := newTestHandler(t, &stubUserRepo{byEmail: map[string]*User{}})

	req := httptest.NewRequest(http.MethodPost, "/auth/signup",
		strings.NewReader(`{"email":"jo@example.com","name":"Jo","password":"short"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupConflict(t *testing.T) {
	repo := &stubUserRepo{byEmail: map[string]*User{
		"jo@example.com": {ID: 1, Email: "jo@example.com"},
	}}
	_, router := newTestHandler(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/signup",
		strings.NewReader(`{"email":"jo@example.com","name":"Jo","password":"longenough"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRequireSession(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour, false)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	stack := Authenticator(tm)(RequireSession(ok))

	req := httptest.NewRequest(http.MethodGet, "/api/quotations", nil)
	rec := httptest.NewRecorder()
	stack.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	rec = httptest.NewRecorder()
	stack.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	token, err := tm.Issue(&User{ID: 3, Email: "jo@example.com"}, nil)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/quotations", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec = httptest.NewRecorder()
	stack.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
