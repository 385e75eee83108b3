package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/shared"
)

// Repository defines persistence operations for roles and assignments.
type Repository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	CreateRole(ctx context.Context, name string, matrix Matrix) (int64, error)
	UpdateRoleMatrix(ctx context.Context, id int64, matrix Matrix) error
	DeleteRole(ctx context.Context, id int64) error
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListRoles returns all roles ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, permissions, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (*Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, permissions, created_at, updated_at FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

// GetRoleByName fetches a role by its unique name.
func (r *PGRepository) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, permissions, created_at, updated_at FROM roles WHERE LOWER(name) = LOWER($1)`, name)
	return scanRole(row)
}

// CreateRole inserts a new role with its permission matrix.
func (r *PGRepository) CreateRole(ctx context.Context, name string, matrix Matrix) (int64, error) {
	matrixJSON, err := json.Marshal(matrix)
	if err != nil {
		return 0, fmt.Errorf("rbac: marshal matrix: %w", err)
	}
	var id int64
	err = r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, permissions, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id
	`, name, matrixJSON).Scan(&id)
	return id, err
}

// UpdateRoleMatrix replaces a role's permission matrix.
func (r *PGRepository) UpdateRoleMatrix(ctx context.Context, id int64, matrix Matrix) error {
	matrixJSON, err := json.Marshal(matrix)
	if err != nil {
		return fmt.Errorf("rbac: marshal matrix: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET permissions = $2, updated_at = NOW() WHERE id = $1`, id, matrixJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteRole removes a role.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignRole links a user to a role, idempotently.
func (r *PGRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, userID, roleID)
	return err
}

// RemoveRole unlinks a user from a role.
func (r *PGRepository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

// RolesForUser returns the roles assigned to a user.
func (r *PGRepository) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.permissions, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	var roles []Role
	for rows.Next() {
		var role Role
		var matrixJSON []byte
		if err := rows.Scan(&role.ID, &role.Name, &matrixJSON, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalMatrix(matrixJSON, &role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	var matrixJSON []byte
	err := row.Scan(&role.ID, &role.Name, &matrixJSON, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := unmarshalMatrix(matrixJSON, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

func unmarshalMatrix(data []byte, role *Role) error {
	if len(data) == 0 {
		role.Matrix = Matrix{}
		return nil
	}
	if err := json.Unmarshal(data, &role.Matrix); err != nil {
		return fmt.Errorf("rbac: unmarshal matrix for role %s: %w", role.Name, err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
