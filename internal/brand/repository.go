package brand

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Repository defines persistence operations for brand profiles and scopes.
type Repository interface {
	List(ctx context.Context) ([]BrandProfile, error)
	AllIDs(ctx context.Context) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*BrandProfile, error)
	GetBySlug(ctx context.Context, slug string) (*BrandProfile, error)
	Create(ctx context.Context, profile BrandProfile) (int64, error)
	Update(ctx context.Context, profile BrandProfile) error
	SetGlobalActive(ctx context.Context, id int64) error
	GlobalActive(ctx context.Context) (*BrandProfile, error)
	EarliestCreated(ctx context.Context) (*BrandProfile, error)
	GrantedBrandIDs(ctx context.Context, userID int64) ([]int64, error)
	ScopeExists(ctx context.Context, userID, brandID int64) (bool, error)
	GrantScope(ctx context.Context, userID, brandID int64) error
	RevokeScope(ctx context.Context, userID, brandID int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const profileColumns = `id, name, slug, logo_path, enabled_modules, defaults, is_active, created_at, updated_at`

// List returns all brand profiles ordered by name.
func (r *PGRepository) List(ctx context.Context) ([]BrandProfile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM brand_profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []BrandProfile
	for rows.Next() {
		profile, err := scanProfileRow(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

// AllIDs returns every brand profile ID.
func (r *PGRepository) AllIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM brand_profiles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetByID fetches a brand profile by primary key.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*BrandProfile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM brand_profiles WHERE id = $1`, id)
}

// GetBySlug fetches a brand profile by its unique slug.
func (r *PGRepository) GetBySlug(ctx context.Context, slug string) (*BrandProfile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM brand_profiles WHERE slug = $1`, slug)
}

// Create inserts a new brand profile.
func (r *PGRepository) Create(ctx context.Context, profile BrandProfile) (int64, error) {
	modulesJSON, defaultsJSON, err := marshalProfileJSON(profile)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO brand_profiles (name, slug, logo_path, enabled_modules, defaults, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id
	`, profile.Name, profile.Slug, profile.LogoPath, modulesJSON, defaultsJSON, profile.IsActive).Scan(&id)
	return id, err
}

// Update replaces mutable fields of a brand profile.
func (r *PGRepository) Update(ctx context.Context, profile BrandProfile) error {
	modulesJSON, defaultsJSON, err := marshalProfileJSON(profile)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE brand_profiles
		SET name = $2, logo_path = $3, enabled_modules = $4, defaults = $5, updated_at = NOW()
		WHERE id = $1
	`, profile.ID, profile.Name, profile.LogoPath, modulesJSON, defaultsJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetGlobalActive marks one profile active and clears the flag on all
// others in the same transaction.
func (r *PGRepository) SetGlobalActive(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE brand_profiles SET is_active = FALSE, updated_at = NOW() WHERE is_active = TRUE AND id <> $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE brand_profiles SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// GlobalActive returns the profile flagged active, latest-updated first as a
// defensive tie-break should more than one row carry the flag.
func (r *PGRepository) GlobalActive(ctx context.Context) (*BrandProfile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM brand_profiles WHERE is_active = TRUE ORDER BY updated_at DESC LIMIT 1`)
}

// EarliestCreated returns the oldest profile.
func (r *PGRepository) EarliestCreated(ctx context.Context) (*BrandProfile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM brand_profiles ORDER BY created_at ASC, id ASC LIMIT 1`)
}

// GrantedBrandIDs returns the brand IDs granted to a user via scopes.
func (r *PGRepository) GrantedBrandIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT brand_profile_id FROM user_brand_scopes WHERE user_id = $1 ORDER BY brand_profile_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ScopeExists reports whether the user holds a scope grant for the brand.
func (r *PGRepository) ScopeExists(ctx context.Context, userID, brandID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM user_brand_scopes WHERE user_id = $1 AND brand_profile_id = $2)
	`, userID, brandID).Scan(&exists)
	return exists, err
}

// GrantScope adds a scope grant, idempotently.
func (r *PGRepository) GrantScope(ctx context.Context, userID, brandID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_brand_scopes (user_id, brand_profile_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, brand_profile_id) DO NOTHING
	`, userID, brandID)
	return err
}

// RevokeScope removes a scope grant.
func (r *PGRepository) RevokeScope(ctx context.Context, userID, brandID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_brand_scopes WHERE user_id = $1 AND brand_profile_id = $2`, userID, brandID)
	return err
}

func (r *PGRepository) getOne(ctx context.Context, query string, args ...any) (*BrandProfile, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, shared.ErrNotFound
	}
	return scanProfileRow(rows)
}

func scanProfileRow(rows pgx.Rows) (*BrandProfile, error) {
	var profile BrandProfile
	var modulesJSON, defaultsJSON []byte
	err := rows.Scan(&profile.ID, &profile.Name, &profile.Slug, &profile.LogoPath,
		&modulesJSON, &defaultsJSON, &profile.IsActive, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if len(modulesJSON) > 0 {
		if err := json.Unmarshal(modulesJSON, &profile.EnabledModules); err != nil {
			return nil, fmt.Errorf("brand: unmarshal enabled_modules: %w", err)
		}
	}
	if len(defaultsJSON) > 0 {
		if err := json.Unmarshal(defaultsJSON, &profile.Defaults); err != nil {
			return nil, fmt.Errorf("brand: unmarshal defaults: %w", err)
		}
	}
	return &profile, nil
}

func marshalProfileJSON(profile BrandProfile) ([]byte, []byte, error) {
	modulesJSON, err := json.Marshal(profile.EnabledModules)
	if err != nil {
		return nil, nil, fmt.Errorf("brand: marshal enabled_modules: %w", err)
	}
	defaultsJSON, err := json.Marshal(profile.Defaults)
	if err != nil {
		return nil, nil, fmt.Errorf("brand: marshal defaults: %w", err)
	}
	return modulesJSON, defaultsJSON, nil
}

var _ Repository = (*PGRepository)(nil)
