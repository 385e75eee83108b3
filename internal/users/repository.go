// Package users manages accounts after signup: listing, approval and the
// stored default brand used by the active-brand resolver.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/shared"
)

// Account is the administrative view of a user.
type Account struct {
	ID                    int64     `json:"id"`
	Email                 string    `json:"email"`
	Name                  string    `json:"name"`
	IsActive              bool      `json:"is_active"`
	DefaultBrandProfileID *int64    `json:"default_brand_profile_id,omitempty"`
	Roles                 []string  `json:"roles,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type Repository interface {
	List(ctx context.Context, activeOnly *bool) ([]Account, error)
	Get(ctx context.Context, id int64) (*Account, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetDefaultBrand(ctx context.Context, id int64, brandID *int64) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, email, name, is_active, default_brand_profile_id, created_at, updated_at`

func (r *PGRepository) List(ctx context.Context, activeOnly *bool) ([]Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM users`, accountColumns)
	var args []any
	if activeOnly != nil {
		query += ` WHERE is_active = $1`
		args = append(args, *activeOnly)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.IsActive,
			&a.DefaultBrandProfileID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("users: scan: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, accountColumns)
	var a Account
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.Email, &a.Name, &a.IsActive,
		&a.DefaultBrandProfileID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("users: get: %w", err)
	}
	return &a, nil
}

func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("users: set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) SetDefaultBrand(ctx context.Context, id int64, brandID *int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET default_brand_profile_id = $2, updated_at = now() WHERE id = $1`, id, brandID)
	if err != nil {
		return fmt.Errorf("users: set default brand: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
