// Package reports aggregates sales figures per brand. Every query is fenced
// by the caller's resolved brand scope.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BrandSummary aggregates document totals for one brand over a date range.
type BrandSummary struct {
	BrandProfileID int64   `json:"brand_profile_id"`
	BrandName      string  `json:"brand_name"`
	QuotationCount int64   `json:"quotation_count"`
	QuotationTotal float64 `json:"quotation_total"`
	OrderCount     int64   `json:"order_count"`
	OrderTotal     float64 `json:"order_total"`
	InvoiceCount   int64   `json:"invoice_count"`
	InvoiceTotal   float64 `json:"invoice_total"`
}

type Repository interface {
	SalesSummary(ctx context.Context, allowed []int64, from, to time.Time) ([]BrandSummary, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) SalesSummary(ctx context.Context, allowed []int64, from, to time.Time) ([]BrandSummary, error) {
	const query = `
		SELECT b.id, b.name,
		       COALESCE(q.cnt, 0), COALESCE(q.total, 0),
		       COALESCE(o.cnt, 0), COALESCE(o.total, 0),
		       COALESCE(i.cnt, 0), COALESCE(i.total, 0)
		FROM brand_profiles b
		LEFT JOIN (
			SELECT brand_profile_id, COUNT(*) AS cnt, SUM(total_amount) AS total
			FROM quotations
			WHERE quote_date >= $2 AND quote_date <= $3
			GROUP BY brand_profile_id
		) q ON q.brand_profile_id = b.id
		LEFT JOIN (
			SELECT brand_profile_id, COUNT(*) AS cnt, SUM(total_amount) AS total
			FROM sales_orders
			WHERE order_date >= $2 AND order_date <= $3
			GROUP BY brand_profile_id
		) o ON o.brand_profile_id = b.id
		LEFT JOIN (
			SELECT brand_profile_id, COUNT(*) AS cnt, SUM(total_amount) AS total
			FROM invoices
			WHERE invoice_date >= $2 AND invoice_date <= $3 AND deleted_at IS NULL
			GROUP BY brand_profile_id
		) i ON i.brand_profile_id = b.id
		WHERE b.id = ANY($1)
		ORDER BY b.name`

	rows, err := r.pool.Query(ctx, query, allowed, from, to)
	if err != nil {
		return nil, fmt.Errorf("reports: sales summary: %w", err)
	}
	defer rows.Close()

	var summaries []BrandSummary
	for rows.Next() {
		var s BrandSummary
		if err := rows.Scan(&s.BrandProfileID, &s.BrandName,
			&s.QuotationCount, &s.QuotationTotal,
			&s.OrderCount, &s.OrderTotal,
			&s.InvoiceCount, &s.InvoiceTotal); err != nil {
			return nil, fmt.Errorf("reports: scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
