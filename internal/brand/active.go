package brand

import (
	"context"
	"log/slog"
)

// DefaultBrandSource resolves a user's stored default brand. Implemented by
// the users service.
type DefaultBrandSource interface {
	DefaultBrandID(ctx context.Context, userID int64) (*int64, error)
}

// ActiveResolver picks the brand context applied to brand-scoped operations
// when none is explicitly specified.
type ActiveResolver struct {
	repo     Repository
	scope    *ScopeResolver
	defaults DefaultBrandSource
	logger   *slog.Logger
}

// NewActiveResolver constructs an ActiveResolver.
func NewActiveResolver(repo Repository, scope *ScopeResolver, defaults DefaultBrandSource, logger *slog.Logger) *ActiveResolver {
	return &ActiveResolver{repo: repo, scope: scope, defaults: defaults, logger: logger}
}

// Resolve returns the active brand profile, or nil when none can be
// determined. Resolution order: cookie slug (when the caller may access it),
// the user's stored default, the globally active profile, the earliest
// created profile. Database errors are swallowed to nil; callers must treat
// nil as "no brand context" and reject writes that need one.
func (r *ActiveResolver) Resolve(ctx context.Context, userID *int64, roles []string, cookieSlug string) *BrandProfile {
	if cookieSlug != "" {
		if profile, err := r.repo.GetBySlug(ctx, cookieSlug); err == nil {
			ok, err := r.scope.UserCanAccessBrand(ctx, userID, roles, profile.ID)
			if err == nil && ok {
				return profile
			}
		} else {
			r.debug("active brand: cookie slug lookup", err)
		}
	}

	if userID != nil && r.defaults != nil {
		defaultID, err := r.defaults.DefaultBrandID(ctx, *userID)
		if err == nil && defaultID != nil {
			if profile, err := r.repo.GetByID(ctx, *defaultID); err == nil {
				return profile
			}
		} else if err != nil {
			r.debug("active brand: user default lookup", err)
		}
	}

	if profile, err := r.repo.GlobalActive(ctx); err == nil {
		return profile
	} else {
		r.debug("active brand: global flag lookup", err)
	}

	if profile, err := r.repo.EarliestCreated(ctx); err == nil {
		return profile
	} else {
		r.debug("active brand: earliest lookup", err)
	}

	return nil
}

func (r *ActiveResolver) debug(msg string, err error) {
	if r.logger != nil {
		r.logger.Debug(msg, slog.Any("error", err))
	}
}
