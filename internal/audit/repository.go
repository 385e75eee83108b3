package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists activity log rows.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	Timeline(ctx context.Context, filters TimelineFilters) ([]Row, int, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert appends one activity log row.
func (r *PGRepository) Insert(ctx context.Context, entry Entry) error {
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("audit: marshal meta: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO activity_logs (actor_id, action, entity, entity_id, meta, ip, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE(NULLIF($8::timestamptz, '0001-01-01'), NOW()))
	`, entry.ActorID, entry.Action, entry.Entity, entry.EntityID, metaJSON, entry.IP, entry.UserAgent, entry.At)
	return err
}

// Timeline lists activity rows, newest first.
func (r *PGRepository) Timeline(ctx context.Context, filters TimelineFilters) ([]Row, int, error) {
	pageSize := filters.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	where := "WHERE 1=1"
	args := []any{}
	argPos := 1
	if filters.Entity != "" {
		where += fmt.Sprintf(" AND entity = $%d", argPos)
		args = append(args, filters.Entity)
		argPos++
	}
	if filters.Action != "" {
		where += fmt.Sprintf(" AND action = $%d", argPos)
		args = append(args, filters.Action)
		argPos++
	}
	if filters.ActorID != nil {
		where += fmt.Sprintf(" AND actor_id = $%d", argPos)
		args = append(args, *filters.ActorID)
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM activity_logs "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, actor_id, action, entity, entity_id, meta, ip, user_agent, occurred_at
		FROM activity_logs %s
		ORDER BY occurred_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, argPos, argPos+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var row Row
		var metaJSON []byte
		if err := rows.Scan(&row.ID, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &metaJSON, &row.IP, &row.UserAgent, &row.At); err != nil {
			return nil, 0, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &row.Meta)
		}
		result = append(result, row)
	}
	return result, total, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
