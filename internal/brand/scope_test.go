package brand_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/brand"
	"github.com/meridian-erp/meridian/internal/shared"
)

type stubRepo struct {
	profiles []brand.BrandProfile
	grants   map[int64][]int64
	failAll  error
}

func (s *stubRepo) List(ctx context.Context) ([]brand.BrandProfile, error) {
	return s.profiles, nil
}

func (s *stubRepo) AllIDs(ctx context.Context) ([]int64, error) {
	if s.failAll != nil {
		return nil, s.failAll
	}
	ids := make([]int64, 0, len(s.profiles))
	for _, p := range s.profiles {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *stubRepo) GetByID(ctx context.Context, id int64) (*brand.BrandProfile, error) {
	for i := range s.profiles {
		if s.profiles[i].ID == id {
			return &s.profiles[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) GetBySlug(ctx context.Context, slug string) (*brand.BrandProfile, error) {
	for i := range s.profiles {
		if s.profiles[i].Slug == slug {
			return &s.profiles[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) Create(ctx context.Context, p brand.BrandProfile) (int64, error) { return 0, nil }
func (s *stubRepo) Update(ctx context.Context, p brand.BrandProfile) error          { return nil }
func (s *stubRepo) SetGlobalActive(ctx context.Context, id int64) error             { return nil }

func (s *stubRepo) GlobalActive(ctx context.Context) (*brand.BrandProfile, error) {
	var best *brand.BrandProfile
	for i := range s.profiles {
		if !s.profiles[i].IsActive {
			continue
		}
		if best == nil || s.profiles[i].UpdatedAt.After(best.UpdatedAt) {
			best = &s.profiles[i]
		}
	}
	if best == nil {
		return nil, shared.ErrNotFound
	}
	return best, nil
}

func (s *stubRepo) EarliestCreated(ctx context.Context) (*brand.BrandProfile, error) {
	var best *brand.BrandProfile
	for i := range s.profiles {
		if best == nil || s.profiles[i].CreatedAt.Before(best.CreatedAt) {
			best = &s.profiles[i]
		}
	}
	if best == nil {
		return nil, shared.ErrNotFound
	}
	return best, nil
}

func (s *stubRepo) GrantedBrandIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.grants[userID], nil
}

func (s *stubRepo) ScopeExists(ctx context.Context, userID, brandID int64) (bool, error) {
	for _, id := range s.grants[userID] {
		if id == brandID {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) GrantScope(ctx context.Context, userID, brandID int64) error  { return nil }
func (s *stubRepo) RevokeScope(ctx context.Context, userID, brandID int64) error { return nil }

func newStubRepo() *stubRepo {
	now := time.Now()
	return &stubRepo{
		profiles: []brand.BrandProfile{
			{ID: 5, Name: "Acme", Slug: "acme", IsActive: true, CreatedAt: now.Add(-3 * time.Hour), UpdatedAt: now},
			{ID: 7, Name: "Globex", Slug: "globex", CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now},
			{ID: 9, Name: "Initech", Slug: "initech", CreatedAt: now.Add(-1 * time.Hour), UpdatedAt: now},
		},
		grants: map[int64][]int64{
			42: {5, 7},
		},
	}
}

func ptr(v int64) *int64 { return &v }

func TestResolveAllowedBrandIDsElevated(t *testing.T) {
	resolver := brand.NewScopeResolver(newStubRepo())

	ids, err := resolver.ResolveAllowedBrandIDs(context.Background(), ptr(1), []string{"Admin"}, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{5, 7, 9}, ids)

	ids, err = resolver.ResolveAllowedBrandIDs(context.Background(), ptr(1), []string{"owner"}, []int64{9, 5})
	require.NoError(t, err)
	require.Equal(t, []int64{9, 5}, ids, "requested list is trusted verbatim")
}

func TestResolveAllowedBrandIDsRegularUser(t *testing.T) {
	resolver := brand.NewScopeResolver(newStubRepo())

	ids, err := resolver.ResolveAllowedBrandIDs(context.Background(), ptr(42), []string{"staff"}, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{5, 7}, ids)

	ids, err = resolver.ResolveAllowedBrandIDs(context.Background(), ptr(42), []string{"staff"}, []int64{5, 9})
	require.NoError(t, err)
	require.Equal(t, []int64{5}, ids, "ungranted brands are filtered out")
}

func TestResolveAllowedBrandIDsNeverLeaksUngranted(t *testing.T) {
	repo := newStubRepo()
	resolver := brand.NewScopeResolver(repo)

	for _, requested := range [][]int64{nil, {9}, {5, 7, 9}, {1, 2, 3}} {
		ids, err := resolver.ResolveAllowedBrandIDs(context.Background(), ptr(42), []string{"warehouse"}, requested)
		require.NoError(t, err)
		for _, id := range ids {
			require.Contains(t, repo.grants[42], id)
		}
	}
}

func TestResolveAllowedBrandIDsAnonymousFailsClosed(t *testing.T) {
	resolver := brand.NewScopeResolver(newStubRepo())

	ids, err := resolver.ResolveAllowedBrandIDs(context.Background(), nil, []string{"staff"}, []int64{5})
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestUserCanAccessBrand(t *testing.T) {
	resolver := brand.NewScopeResolver(newStubRepo())

	ok, err := resolver.UserCanAccessBrand(context.Background(), nil, nil, 5)
	require.NoError(t, err)
	require.False(t, ok, "anonymous access is always denied")

	ok, err = resolver.UserCanAccessBrand(context.Background(), ptr(42), []string{"staff"}, 5)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = resolver.UserCanAccessBrand(context.Background(), ptr(42), []string{"staff"}, 9)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = resolver.UserCanAccessBrand(context.Background(), ptr(99), []string{"OWNER"}, 9)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestResolveAllowedBrandIDsRepoError(t *testing.T) {
	repo := newStubRepo()
	repo.failAll = errors.New("boom")
	resolver := brand.NewScopeResolver(repo)

	_, err := resolver.ResolveAllowedBrandIDs(context.Background(), ptr(1), []string{"admin"}, nil)
	require.Error(t, err)
}
