package shared

import "context"

// Principal describes the authenticated actor extracted from the auth token.
type Principal struct {
	UserID int64
	Email  string
	Roles  []string
}

// BrandRef is the subset of a brand profile carried in request context.
type BrandRef struct {
	ID   int64
	Slug string
	Name string
}

// TenantContext is resolved once per request by the tenant middleware and
// threaded through every brand-scoped call. AllowedBrandIDs is nil for
// elevated principals (meaning "all brands"); an empty non-nil slice means
// no access.
type TenantContext struct {
	AllowedBrandIDs []int64
	ActiveBrand     *BrandRef
}

// CanAccess reports whether the tenant may touch the given brand.
func (tc *TenantContext) CanAccess(brandID int64) bool {
	if tc == nil {
		return false
	}
	if tc.AllowedBrandIDs == nil {
		return true
	}
	for _, id := range tc.AllowedBrandIDs {
		if id == brandID {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

type tenantContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal, nil when anonymous.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// ContextWithTenant stores the resolved tenant context.
func ContextWithTenant(ctx context.Context, tc *TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tc)
}

// TenantFromContext extracts the tenant context, nil when unresolved.
func TenantFromContext(ctx context.Context) *TenantContext {
	tc, _ := ctx.Value(tenantContextKey{}).(*TenantContext)
	return tc
}
