package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

const (
	matrixCacheTTL    = 2 * time.Minute
	matrixCachePrefix = "rbac:matrix:"
)

// Service orchestrates role management and permission resolution. Effective
// matrices are cached in Redis with a short TTL and invalidated on role
// changes.
type Service struct {
	repo  Repository
	cache *redis.Client
}

// NewService constructs a Service. cache may be nil to disable caching.
func NewService(repo Repository, cache *redis.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole validates and inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name string, raw map[string]Actions) (*Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("%w: role name required", httpx.ErrValidation)
	}
	matrix, err := ParseMatrix(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	if _, err := s.repo.GetRoleByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: role %q already exists", httpx.ErrConflict, name)
	}
	id, err := s.repo.CreateRole(ctx, name, matrix)
	if err != nil {
		return nil, fmt.Errorf("rbac: create role: %w", err)
	}
	return s.repo.GetRole(ctx, id)
}

// UpdateRoleMatrix validates and replaces a role's matrix.
func (s *Service) UpdateRoleMatrix(ctx context.Context, id int64, raw map[string]Actions) (*Role, error) {
	matrix, err := ParseMatrix(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	if err := s.repo.UpdateRoleMatrix(ctx, id, matrix); err != nil {
		return nil, err
	}
	s.invalidateAll(ctx)
	return s.repo.GetRole(ctx, id)
}

// DeleteRole removes a role.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.invalidateAll(ctx)
	return nil
}

// AssignRole links a user to a role by role name or id.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateUser(ctx, userID)
	return nil
}

// RemoveRole unlinks a user from a role.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateUser(ctx, userID)
	return nil
}

// RoleNamesForUser returns the role names assigned to a user.
func (s *Service) RoleNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	roles, err := s.repo.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names, nil
}

// EffectiveMatrix returns the union of the user's role matrices.
func (s *Service) EffectiveMatrix(ctx context.Context, userID int64) (Matrix, error) {
	if cached, ok := s.cachedMatrix(ctx, userID); ok {
		return cached, nil
	}

	roles, err := s.repo.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	matrix := Matrix{}
	for _, role := range roles {
		matrix = matrix.Merge(role.Matrix)
	}

	s.storeMatrix(ctx, userID, matrix)
	return matrix, nil
}

// Allowed reports whether the user may perform action on module. Elevated
// role sets bypass the matrix.
func (s *Service) Allowed(ctx context.Context, userID int64, roles []string, module Module, action Action) (bool, error) {
	if IsElevated(roles) {
		return true, nil
	}
	matrix, err := s.EffectiveMatrix(ctx, userID)
	if err != nil {
		return false, err
	}
	return matrix.Allows(module, action), nil
}

func (s *Service) cachedMatrix(ctx context.Context, userID int64) (Matrix, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, matrixCacheKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var matrix Matrix
	if err := json.Unmarshal(data, &matrix); err != nil {
		return nil, false
	}
	return matrix, true
}

func (s *Service) storeMatrix(ctx context.Context, userID int64, matrix Matrix) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(matrix)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, matrixCacheKey(userID), data, matrixCacheTTL).Err()
}

func (s *Service) invalidateUser(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, matrixCacheKey(userID)).Err()
}

// invalidateAll drops every cached matrix. Role definitions change rarely;
// a full scan is acceptable.
func (s *Service) invalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, matrixCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		_ = s.cache.Del(ctx, iter.Val()).Err()
	}
}

func matrixCacheKey(userID int64) string {
	return fmt.Sprintf("%s%d", matrixCachePrefix, userID)
}
