package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

// RoleDirectory resolves and mutates role assignments. Implemented by the
// rbac service.
type RoleDirectory interface {
	RoleNamesForUser(ctx context.Context, userID int64) ([]string, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
}

// BrandChecker verifies a brand profile exists before it becomes a default.
type BrandChecker interface {
	BrandExists(ctx context.Context, brandID int64) (bool, error)
}

type Service struct {
	repo   Repository
	roles  RoleDirectory
	brands BrandChecker
}

func NewService(repo Repository, roles RoleDirectory, brands BrandChecker) *Service {
	return &Service{repo: repo, roles: roles, brands: brands}
}

// DefaultBrandID satisfies the active-brand resolver's lookup.
func (s *Service) DefaultBrandID(ctx context.Context, userID int64) (*int64, error) {
	account, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return account.DefaultBrandProfileID, nil
}

func (s *Service) List(ctx context.Context, pendingOnly bool) ([]Account, error) {
	var activeOnly *bool
	if pendingOnly {
		f := false
		activeOnly = &f
	}
	accounts, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if names, err := s.roles.RoleNamesForUser(ctx, accounts[i].ID); err == nil {
			accounts[i].Roles = names
		}
	}
	return accounts, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if names, err := s.roles.RoleNamesForUser(ctx, id); err == nil {
		account.Roles = names
	}
	return account, nil
}

// Approve activates a pending signup.
func (s *Service) Approve(ctx context.Context, id int64) (*Account, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.IsActive {
		return nil, fmt.Errorf("%w: account is already active", httpx.ErrConflict)
	}
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	return s.roles.AssignRole(ctx, userID, roleID)
}

func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	return s.roles.RemoveRole(ctx, userID, roleID)
}

// SetDefaultBrand stores the brand preselected for the user's sessions.
// A nil brandID clears the preference.
func (s *Service) SetDefaultBrand(ctx context.Context, userID int64, brandID *int64) (*Account, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	if brandID != nil {
		exists, err := s.brands.BrandExists(ctx, *brandID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: unknown brand profile", httpx.ErrValidation)
		}
	}
	if err := s.repo.SetDefaultBrand(ctx, userID, brandID); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}
