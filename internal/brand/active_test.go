package brand_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/brand"
)

type stubDefaults struct {
	defaults map[int64]*int64
}

func (s *stubDefaults) DefaultBrandID(ctx context.Context, userID int64) (*int64, error) {
	return s.defaults[userID], nil
}

func TestActiveResolverCookieWins(t *testing.T) {
	repo := newStubRepo()
	scope := brand.NewScopeResolver(repo)
	resolver := brand.NewActiveResolver(repo, scope, &stubDefaults{}, nil)

	profile := resolver.Resolve(context.Background(), ptr(42), []string{"staff"}, "globex")
	require.NotNil(t, profile)
	require.Equal(t, int64(7), profile.ID)
}

func TestActiveResolverCookieDeniedFallsThrough(t *testing.T) {
	repo := newStubRepo()
	scope := brand.NewScopeResolver(repo)
	resolver := brand.NewActiveResolver(repo, scope, &stubDefaults{}, nil)

	// User 42 has no grant on initech; the cookie is ignored and the
	// globally active profile wins.
	profile := resolver.Resolve(context.Background(), ptr(42), []string{"staff"}, "initech")
	require.NotNil(t, profile)
	require.Equal(t, "acme", profile.Slug)
}

func TestActiveResolverUserDefault(t *testing.T) {
	repo := newStubRepo()
	scope := brand.NewScopeResolver(repo)
	defaults := &stubDefaults{defaults: map[int64]*int64{42: ptr(7)}}
	resolver := brand.NewActiveResolver(repo, scope, defaults, nil)

	profile := resolver.Resolve(context.Background(), ptr(42), []string{"staff"}, "")
	require.NotNil(t, profile)
	require.Equal(t, int64(7), profile.ID)
}

func TestActiveResolverGlobalFlag(t *testing.T) {
	repo := newStubRepo()
	scope := brand.NewScopeResolver(repo)
	resolver := brand.NewActiveResolver(repo, scope, &stubDefaults{}, nil)

	// No cookie, no user default: the single is_active profile wins.
	profile := resolver.Resolve(context.Background(), nil, nil, "")
	require.NotNil(t, profile)
	require.Equal(t, "acme", profile.Slug)
}

func TestActiveResolverEarliestFallback(t *testing.T) {
	repo := newStubRepo()
	for i := range repo.profiles {
		repo.profiles[i].IsActive = false
	}
	scope := brand.NewScopeResolver(repo)
	resolver := brand.NewActiveResolver(repo, scope, &stubDefaults{}, nil)

	profile := resolver.Resolve(context.Background(), nil, nil, "")
	require.NotNil(t, profile)
	require.Equal(t, "acme", profile.Slug, "earliest created wins when no flag is set")
}

func TestActiveResolverNoBrands(t *testing.T) {
	repo := &stubRepo{}
	scope := brand.NewScopeResolver(repo)
	resolver := brand.NewActiveResolver(repo, scope, &stubDefaults{}, nil)

	require.Nil(t, resolver.Resolve(context.Background(), nil, nil, ""))
}
