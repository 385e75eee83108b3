package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

type stubAccountRepo struct {
	byID map[int64]*Account
}

func (s *stubAccountRepo) List(_ context.Context, activeOnly *bool) ([]Account, error) {
	var out []Account
	for _, a := range s.byID {
		if activeOnly != nil && a.IsActive != *activeOnly {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (s *stubAccountRepo) Get(_ context.Context, id int64) (*Account, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *stubAccountRepo) SetActive(_ context.Context, id int64, active bool) error {
	a, ok := s.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.IsActive = active
	return nil
}

func (s *stubAccountRepo) SetDefaultBrand(_ context.Context, id int64, brandID *int64) error {
	a, ok := s.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.DefaultBrandProfileID = brandID
	return nil
}

type stubRoles struct {
	names    map[int64][]string
	assigned []int64
}

func (s *stubRoles) RoleNamesForUser(_ context.Context, userID int64) ([]string, error) {
	return s.names[userID], nil
}

func (s *stubRoles) AssignRole(_ context.Context, _, roleID int64) error {
	s.assigned = append(s.assigned, roleID)
	return nil
}

func (s *stubRoles) RemoveRole(context.Context, int64, int64) error { return nil }

type stubBrands struct{ known map[int64]bool }

func (s *stubBrands) BrandExists(_ context.Context, brandID int64) (bool, error) {
	return s.known[brandID], nil
}

func fixture() (*Service, *stubAccountRepo) {
	repo := &stubAccountRepo{byID: map[int64]*Account{
		1: {ID: 1, Email: "jo@example.com", IsActive: true, CreatedAt: time.Now()},
		2: {ID: 2, Email: "pending@example.com", IsActive: false, CreatedAt: time.Now()},
	}}
	roles := &stubRoles{names: map[int64][]string{1: {"finance"}}}
	brands := &stubBrands{known: map[int64]bool{3: true}}
	return NewService(repo, roles, brands), repo
}

func TestListPendingFiltersInactive(t *testing.T) {
	svc, _ := fixture()

	pending, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "pending@example.com", pending[0].Email)
}

func TestApproveActivatesOnce(t *testing.T) {
	svc, repo := fixture()

	account, err := svc.Approve(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, account.IsActive)
	assert.True(t, repo.byID[2].IsActive)

	_, err = svc.Approve(context.Background(), 2)
	require.ErrorIs(t, err, httpx.ErrConflict)

	_, err = svc.Approve(context.Background(), 99)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestSetDefaultBrandChecksExistence(t *testing.T) {
	svc, repo := fixture()

	account, err := svc.SetDefaultBrand(context.Background(), 1, ptr(int64(3)))
	require.NoError(t, err)
	require.NotNil(t, account.DefaultBrandProfileID)
	assert.Equal(t, int64(3), *account.DefaultBrandProfileID)

	_, err = svc.SetDefaultBrand(context.Background(), 1, ptr(int64(99)))
	require.ErrorIs(t, err, httpx.ErrValidation)

	// Clearing the preference needs no existence check.
	account, err = svc.SetDefaultBrand(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Nil(t, account.DefaultBrandProfileID)
	assert.Nil(t, repo.byID[1].DefaultBrandProfileID)
}

func TestDefaultBrandIDLookup(t *testing.T) {
	svc, repo := fixture()
	repo.byID[1].DefaultBrandProfileID = ptr(int64(3))

	got, err := svc.DefaultBrandID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), *got)
}

func ptr[T any](v T) *T { return &v }
