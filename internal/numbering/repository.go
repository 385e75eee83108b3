package numbering

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository stores sequences in the document_sequences table, keyed by
// brand, kind and period.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) NextSequence(ctx context.Context, brandID int64, kind Kind, period string) (int64, error) {
	const q = `
		INSERT INTO document_sequences (brand_profile_id, kind, period, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (brand_profile_id, kind, period)
		DO UPDATE SET last_value = document_sequences.last_value + 1
		RETURNING last_value`
	var seq int64
	if err := r.pool.QueryRow(ctx, q, brandID, string(kind), period).Scan(&seq); err != nil {
		return 0, fmt.Errorf("numbering: advance sequence: %w", err)
	}
	return seq, nil
}

func (r *PGRepository) PeekSequence(ctx context.Context, brandID int64, kind Kind, period string) (int64, error) {
	const q = `
		SELECT COALESCE(MAX(last_value), 0) + 1
		FROM document_sequences
		WHERE brand_profile_id = $1 AND kind = $2 AND period = $3`
	var seq int64
	if err := r.pool.QueryRow(ctx, q, brandID, string(kind), period).Scan(&seq); err != nil {
		return 0, fmt.Errorf("numbering: peek sequence: %w", err)
	}
	return seq, nil
}

func (r *PGRepository) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM sales_orders WHERE number = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("numbering: probe order number: %w", err)
	}
	return exists, nil
}
