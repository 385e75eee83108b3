package rbac

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/shared"
)

type stubRepo struct {
	roles         map[int64]*Role
	userRoles     map[int64][]int64
	rolesForCalls int
}

func newStubRepo() *stubRepo {
	return &stubRepo{roles: map[int64]*Role{}, userRoles: map[int64][]int64{}}
}

func (r *stubRepo) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, *role)
	}
	return out, nil
}

func (r *stubRepo) GetRole(ctx context.Context, id int64) (*Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, errNotFound
	}
	return role, nil
}

func (r *stubRepo) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, errNotFound
}

func (r *stubRepo) CreateRole(ctx context.Context, name string, matrix Matrix) (int64, error) {
	id := int64(len(r.roles) + 1)
	r.roles[id] = &Role{ID: id, Name: name, Matrix: matrix}
	return id, nil
}

func (r *stubRepo) UpdateRoleMatrix(ctx context.Context, id int64, matrix Matrix) error {
	role, ok := r.roles[id]
	if !ok {
		return errNotFound
	}
	role.Matrix = matrix
	return nil
}

func (r *stubRepo) DeleteRole(ctx context.Context, id int64) error {
	delete(r.roles, id)
	return nil
}

func (r *stubRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	r.userRoles[userID] = append(r.userRoles[userID], roleID)
	return nil
}

func (r *stubRepo) RemoveRole(ctx context.Context, userID, roleID int64) error {
	kept := r.userRoles[userID][:0]
	for _, id := range r.userRoles[userID] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	r.userRoles[userID] = kept
	return nil
}

func (r *stubRepo) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	r.rolesForCalls++
	var out []Role
	for _, id := range r.userRoles[userID] {
		if role, ok := r.roles[id]; ok {
			out = append(out, *role)
		}
	}
	return out, nil
}

var errNotFound = shared.ErrNotFound

func testCache(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestEffectiveMatrixMergesRoles(t *testing.T) {
	repo := newStubRepo()
	repo.roles[1] = &Role{ID: 1, Name: "finance", Matrix: Matrix{
		ModuleSales: Actions{View: true, Approve: true},
	}}
	repo.roles[2] = &Role{ID: 2, Name: "staff", Matrix: Matrix{
		ModuleSales:   Actions{View: true, Create: true},
		ModuleReports: Actions{View: true},
	}}
	repo.userRoles[7] = []int64{1, 2}

	svc := NewService(repo, nil)
	matrix, err := svc.EffectiveMatrix(context.Background(), 7)
	require.NoError(t, err)

	require.True(t, matrix.Allows(ModuleSales, ActionView))
	require.True(t, matrix.Allows(ModuleSales, ActionCreate))
	require.True(t, matrix.Allows(ModuleSales, ActionApprove))
	require.True(t, matrix.Allows(ModuleReports, ActionView))
	require.False(t, matrix.Allows(ModuleSales, ActionDelete))
	require.False(t, matrix.Allows(ModuleUsers, ActionView))
}

func TestEffectiveMatrixUsesCache(t *testing.T) {
	repo := newStubRepo()
	repo.roles[1] = &Role{ID: 1, Name: "staff", Matrix: Matrix{ModuleSales: Actions{View: true}}}
	repo.userRoles[3] = []int64{1}

	svc := NewService(repo, testCache(t))
	ctx := context.Background()

	_, err := svc.EffectiveMatrix(ctx, 3)
	require.NoError(t, err)
	_, err = svc.EffectiveMatrix(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 1, repo.rolesForCalls)
}

func TestAssignRoleInvalidatesCachedMatrix(t *testing.T) {
	repo := newStubRepo()
	repo.roles[1] = &Role{ID: 1, Name: "staff", Matrix: Matrix{ModuleSales: Actions{View: true}}}
	repo.roles[2] = &Role{ID: 2, Name: "finance", Matrix: Matrix{ModuleReports: Actions{View: true}}}
	repo.userRoles[3] = []int64{1}

	svc := NewService(repo, testCache(t))
	ctx := context.Background()

	matrix, err := svc.EffectiveMatrix(ctx, 3)
	require.NoError(t, err)
	require.False(t, matrix.Allows(ModuleReports, ActionView))

	require.NoError(t, svc.AssignRole(ctx, 3, 2))

	matrix, err = svc.EffectiveMatrix(ctx, 3)
	require.NoError(t, err)
	require.True(t, matrix.Allows(ModuleReports, ActionView))
}

func TestUpdateRoleMatrixInvalidatesAllUsers(t *testing.T) {
	repo := newStubRepo()
	repo.roles[1] = &Role{ID: 1, Name: "staff", Matrix: Matrix{ModuleSales: Actions{View: true}}}
	repo.userRoles[3] = []int64{1}
	repo.userRoles[4] = []int64{1}

	svc := NewService(repo, testCache(t))
	ctx := context.Background()

	_, err := svc.EffectiveMatrix(ctx, 3)
	require.NoError(t, err)
	_, err = svc.EffectiveMatrix(ctx, 4)
	require.NoError(t, err)

	_, err = svc.UpdateRoleMatrix(ctx, 1, map[string]Actions{"sales": {View: true, Edit: true}})
	require.NoError(t, err)

	matrix, err := svc.EffectiveMatrix(ctx, 3)
	require.NoError(t, err)
	require.True(t, matrix.Allows(ModuleSales, ActionEdit))
}

func TestAllowedElevatedBypassesMatrix(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)

	ok, err := svc.Allowed(context.Background(), 1, []string{RoleOwner}, ModuleUsers, ActionDelete)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, repo.rolesForCalls)
}

func TestCreateRoleRejectsDuplicateName(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "Finance", map[string]Actions{"sales": {View: true}})
	require.NoError(t, err)
	_, err = svc.CreateRole(ctx, "finance", map[string]Actions{"sales": {View: true}})
	require.Error(t, err)
}

func TestCreateRoleRejectsUnknownModule(t *testing.T) {
	svc := NewService(newStubRepo(), nil)
	_, err := svc.CreateRole(context.Background(), "ops", map[string]Actions{"warehouse2": {View: true}})
	require.Error(t, err)
}
