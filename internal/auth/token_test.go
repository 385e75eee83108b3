package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour, false)
	user := &User{ID: 42, Email: "jo@example.com"}

	raw, err := tm.Issue(user, []string{"finance"})
	require.NoError(t, err)

	principal, err := tm.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), principal.UserID)
	assert.Equal(t, "jo@example.com", principal.Email)
	assert.Equal(t, []string{"finance"}, principal.Roles)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	raw, err := NewTokenManager("secret-a", time.Hour, false).Issue(&User{ID: 1}, nil)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour, false).Verify(raw)
	require.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	raw, err := NewTokenManager("secret", -time.Minute, false).Issue(&User{ID: 1}, nil)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", -time.Minute, false).Verify(raw)
	require.Error(t, err)
}

func TestWriteAndClearCookie(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour, false)

	rec := httptest.NewRecorder()
	tm.WriteCookie(rec, "tok")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	rec = httptest.NewRecorder()
	tm.ClearCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)
}
