package brand

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian/internal/rbac"
)

// ScopeResolver computes the brand set a principal may operate on. It is
// read-only; callers use its output to build brand filters on every
// brand-scoped query.
type ScopeResolver struct {
	repo Repository
}

// NewScopeResolver constructs a ScopeResolver.
func NewScopeResolver(repo Repository) *ScopeResolver {
	return &ScopeResolver{repo: repo}
}

// ResolveAllowedBrandIDs returns the brand IDs the caller may act on.
//
// Owner/admin role sets trust the requested list verbatim, or see every
// brand when none is requested. Everyone else is limited to their scope
// grants, intersected with the requested list when one is supplied. An
// unauthenticated non-elevated caller gets an empty set: empty always means
// "no access", never "all access".
func (s *ScopeResolver) ResolveAllowedBrandIDs(ctx context.Context, userID *int64, roles []string, requested []int64) ([]int64, error) {
	if rbac.IsElevated(roles) {
		if len(requested) > 0 {
			return requested, nil
		}
		ids, err := s.repo.AllIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("brand: list brand ids: %w", err)
		}
		return ids, nil
	}

	if userID == nil {
		return []int64{}, nil
	}

	granted, err := s.repo.GrantedBrandIDs(ctx, *userID)
	if err != nil {
		return nil, fmt.Errorf("brand: granted brand ids: %w", err)
	}
	if len(requested) == 0 {
		return granted, nil
	}

	grantedSet := make(map[int64]struct{}, len(granted))
	for _, id := range granted {
		grantedSet[id] = struct{}{}
	}
	allowed := make([]int64, 0, len(requested))
	for _, id := range requested {
		if _, ok := grantedSet[id]; ok {
			allowed = append(allowed, id)
		}
	}
	return allowed, nil
}

// UserCanAccessBrand reports whether the principal may operate on one brand.
// A nil userID is never granted access unless the role set is elevated.
func (s *ScopeResolver) UserCanAccessBrand(ctx context.Context, userID *int64, roles []string, brandID int64) (bool, error) {
	if rbac.IsElevated(roles) {
		return true, nil
	}
	if userID == nil {
		return false, nil
	}
	exists, err := s.repo.ScopeExists(ctx, *userID, brandID)
	if err != nil {
		return false, fmt.Errorf("brand: scope lookup: %w", err)
	}
	return exists, nil
}
