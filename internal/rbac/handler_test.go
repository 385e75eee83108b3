package rbac

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/shared"
)

func newRolesRouter(t *testing.T, repo *stubRepo, principal *shared.Principal) http.Handler {
	t.Helper()
	svc := NewService(repo, nil)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, Middleware{Service: svc})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), principal)))
		})
	})
	h.MountRoutes(r)
	return r
}

func TestUpdateRoleForbiddenWithoutUsersEdit(t *testing.T) {
	repo := newStubRepo()
	repo.roles[1] = &Role{ID: 1, Name: RoleStaff, Matrix: Matrix{
		ModuleSales: Actions{View: true, Create: true},
	}}
	repo.userRoles[9] = []int64{1}

	router := newRolesRouter(t, repo, &shared.Principal{UserID: 9, Roles: []string{RoleStaff}})

	req := httptest.NewRequest(http.MethodPut, "/roles/1",
		strings.NewReader(`{"matrix":{"users":{"view":true,"edit":true,"approve":true}}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, repo.roles[1].Matrix.Allows(ModuleUsers, ActionApprove))
}

func TestCreateRoleForbiddenWithoutUsersEdit(t *testing.T) {
	repo := newStubRepo()
	repo.roles[1] = &Role{ID: 1, Name: RoleStaff, Matrix: Matrix{
		ModuleSales: Actions{View: true},
	}}
	repo.userRoles[9] = []int64{1}

	router := newRolesRouter(t, repo, &shared.Principal{UserID: 9, Roles: []string{RoleStaff}})

	req := httptest.NewRequest(http.MethodPost, "/roles",
		strings.NewReader(`{"name":"backdoor","matrix":{"users":{"edit":true}}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Len(t, repo.roles, 1)
}

func TestListRolesForbiddenWithoutUsersView(t *testing.T) {
	repo := newStubRepo()
	repo.roles[1] = &Role{ID: 1, Name: RoleWarehouse, Matrix: Matrix{
		ModuleInventory: Actions{View: true},
	}}
	repo.userRoles[4] = []int64{1}

	router := newRolesRouter(t, repo, &shared.Principal{UserID: 4, Roles: []string{RoleWarehouse}})

	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateRoleAllowedForAdmin(t *testing.T) {
	repo := newStubRepo()
	repo.roles[1] = &Role{ID: 1, Name: RoleStaff, Matrix: Matrix{
		ModuleSales: Actions{View: true},
	}}

	router := newRolesRouter(t, repo, &shared.Principal{UserID: 1, Roles: []string{RoleAdmin}})

	req := httptest.NewRequest(http.MethodPut, "/roles/1",
		strings.NewReader(`{"matrix":{"sales":{"view":true,"edit":true}}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, repo.roles[1].Matrix.Allows(ModuleSales, ActionEdit))
}

func TestRolesUnauthenticated(t *testing.T) {
	router := newRolesRouter(t, newStubRepo(), nil)

	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
