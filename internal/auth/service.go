package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian/internal/shared"
)

// ErrEmailTaken is returned when signup reuses an existing email.
var ErrEmailTaken = errors.New("auth: email already registered")

// RoleSource resolves the role names assigned to a user. Implemented by the
// rbac service.
type RoleSource interface {
	RoleNamesForUser(ctx context.Context, userID int64) ([]string, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo  Repository
	roles RoleSource
}

// NewService constructs a new Service.
func NewService(repo Repository, roles RoleSource) *Service {
	return &Service{repo: repo, roles: roles}
}

// Authenticate validates email/password credentials. Unknown email, wrong
// password and inactive account are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RoleNames returns the role names for a user, empty on lookup failure.
func (s *Service) RoleNames(ctx context.Context, userID int64) []string {
	if s.roles == nil {
		return nil
	}
	names, err := s.roles.RoleNamesForUser(ctx, userID)
	if err != nil {
		return nil
	}
	return names
}

// Signup registers a new account. The account stays inactive until approved.
func (s *Service) Signup(ctx context.Context, email, name, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("auth: check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user := User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		IsActive:     false,
	}
	id, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	return s.repo.FindByID(ctx, id)
}
