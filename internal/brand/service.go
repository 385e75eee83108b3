package brand

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Service orchestrates brand profile management and activation.
type Service struct {
	repo  Repository
	scope *ScopeResolver
}

// NewService constructs a Service.
func NewService(repo Repository, scope *ScopeResolver) *Service {
	return &Service{repo: repo, scope: scope}
}

// List returns all brand profiles.
func (s *Service) List(ctx context.Context) ([]BrandProfile, error) {
	return s.repo.List(ctx)
}

// Get fetches one profile.
func (s *Service) Get(ctx context.Context, id int64) (*BrandProfile, error) {
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

// BrandExists reports whether a profile with the id exists.
func (s *Service) BrandExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create inserts a new brand profile. The slug is derived from the name and
// must be unique.
func (s *Service) Create(ctx context.Context, name string, enabledModules map[string]bool, defaults map[string]string) (*BrandProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: brand name required", httpx.ErrValidation)
	}
	profileSlug := slug.Make(name)
	if _, err := s.repo.GetBySlug(ctx, profileSlug); err == nil {
		return nil, fmt.Errorf("%w: brand %q already exists", httpx.ErrConflict, profileSlug)
	}

	profile := BrandProfile{
		Name:           name,
		Slug:           profileSlug,
		EnabledModules: enabledModules,
		Defaults:       defaults,
	}
	id, err := s.repo.Create(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("brand: create: %w", err)
	}
	return s.repo.GetByID(ctx, id)
}

// Update replaces mutable fields.
func (s *Service) Update(ctx context.Context, id int64, name string, logoPath *string, enabledModules map[string]bool, defaults map[string]string) (*BrandProfile, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		existing.Name = name
	}
	if logoPath != nil {
		existing.LogoPath = *logoPath
	}
	if enabledModules != nil {
		existing.EnabledModules = enabledModules
	}
	if defaults != nil {
		existing.Defaults = defaults
	}
	if err := s.repo.Update(ctx, *existing); err != nil {
		return nil, fmt.Errorf("brand: update: %w", err)
	}
	return s.repo.GetByID(ctx, id)
}

// Activate authorizes the caller against the profile named by slug and
// returns it. The caller sets the working-brand cookie; no database state
// changes here.
func (s *Service) Activate(ctx context.Context, userID *int64, roles []string, profileSlug string) (*BrandProfile, error) {
	profile, err := s.repo.GetBySlug(ctx, profileSlug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if userID == nil {
		return nil, httpx.ErrUnauthorized
	}
	ok, err := s.scope.UserCanAccessBrand(ctx, userID, roles, profile.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, httpx.ErrForbidden
	}
	return profile, nil
}

// SetGlobalActive makes one profile the system-wide default, clearing the
// flag on every other profile in the same transaction.
func (s *Service) SetGlobalActive(ctx context.Context, id int64) (*BrandProfile, error) {
	if err := s.repo.SetGlobalActive(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// GrantScope gives a user access to a brand.
func (s *Service) GrantScope(ctx context.Context, userID, brandID int64) error {
	if _, err := s.Get(ctx, brandID); err != nil {
		return err
	}
	return s.repo.GrantScope(ctx, userID, brandID)
}

// RevokeScope removes a user's access to a brand.
func (s *Service) RevokeScope(ctx context.Context, userID, brandID int64) error {
	return s.repo.RevokeScope(ctx, userID, brandID)
}

// Ref converts a profile to the context-carried reference.
func Ref(p *BrandProfile) *shared.BrandRef {
	if p == nil {
		return nil
	}
	return &shared.BrandRef{ID: p.ID, Slug: p.Slug, Name: p.Name}
}
