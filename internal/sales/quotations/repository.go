package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Repository persists quotations. Read methods take the caller's allowed
// brand ids: nil means unrestricted, an empty slice matches nothing, and a
// row outside the set is reported as absent.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64, allowed []int64) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest, allowed []int64) ([]QuotationWithCustomer, int, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	UpdateHeader(ctx context.Context, id int64, customerID int64, quoteDate time.Time, total float64) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	InsertItem(ctx context.Context, item Item) (int64, error)
	DeleteItems(ctx context.Context, quotationID int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const quotationColumns = `id, number, brand_profile_id, customer_id, quote_date, status,
	total_amount, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64, allowed []int64) (*Quotation, error) {
	query := fmt.Sprintf(`SELECT %s FROM quotations WHERE id = $1`, quotationColumns)
	args := []any{id}
	if allowed != nil {
		query += ` AND brand_profile_id = ANY($2)`
		args = append(args, allowed)
	}

	var q Quotation
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&q.ID, &q.Number, &q.BrandProfileID, &q.CustomerID, &q.QuoteDate, &q.Status,
		&q.TotalAmount, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("quotations: get: %w", err)
	}

	items, err := r.items(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	q.Items = items
	return &q, nil
}

func (r *repository) items(ctx context.Context, quotationID int64) ([]Item, error) {
	const query = `
		SELECT id, quotation_id, product_id, description, quantity, unit, price, image_path, subtotal
		FROM quotation_items
		WHERE quotation_id = $1
		ORDER BY id`
	rows, err := r.db.Query(ctx, query, quotationID)
	if err != nil {
		return nil, fmt.Errorf("quotations: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.ProductID, &it.Description,
			&it.Quantity, &it.Unit, &it.Price, &it.ImagePath, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("quotations: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest, allowed []int64) ([]QuotationWithCustomer, int, error) {
	conditions := []string{"1=1"}
	var args []any
	argPos := 1

	if allowed != nil {
		conditions = append(conditions, fmt.Sprintf("q.brand_profile_id = ANY($%d)", argPos))
		args = append(args, allowed)
		argPos++
	}
	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("q.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("q.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("q.quote_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("q.quote_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM quotations q %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("quotations: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT q.id, q.number, q.brand_profile_id, q.customer_id, q.quote_date, q.status,
		       q.total_amount, q.created_by, q.created_at, q.updated_at,
		       c.name AS customer_name,
		       b.name AS brand_name
		FROM quotations q
		JOIN customers c ON q.customer_id = c.id
		JOIN brand_profiles b ON q.brand_profile_id = b.id
		%s
		ORDER BY q.quote_date DESC, q.id DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("quotations: list: %w", err)
	}
	defer rows.Close()

	var result []QuotationWithCustomer
	for rows.Next() {
		var q QuotationWithCustomer
		if err := rows.Scan(&q.ID, &q.Number, &q.BrandProfileID, &q.CustomerID, &q.QuoteDate,
			&q.Status, &q.TotalAmount, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
			&q.CustomerName, &q.BrandName); err != nil {
			return nil, 0, fmt.Errorf("quotations: scan: %w", err)
		}
		result = append(result, q)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	const query = `
		INSERT INTO quotations (number, brand_profile_id, customer_id, quote_date, status,
			total_amount, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		q.Number, q.BrandProfileID, q.CustomerID, q.QuoteDate, q.Status, q.TotalAmount, q.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("quotations: insert: %w", err)
	}
	return id, nil
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, customerID int64, quoteDate time.Time, total float64) error {
	const query = `
		UPDATE quotations
		SET customer_id = $2, quote_date = $3, total_amount = $4, updated_at = now()
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, customerID, quoteDate, total)
	if err != nil {
		return fmt.Errorf("quotations: update header: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	const query = `UPDATE quotations SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("quotations: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	const query = `
		INSERT INTO quotation_items (quotation_id, product_id, description, quantity, unit, price, image_path, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		item.QuotationID, item.ProductID, item.Description, item.Quantity, item.Unit,
		item.Price, item.ImagePath, item.Subtotal,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("quotations: insert item: %w", err)
	}
	return id, nil
}

func (r *repository) DeleteItems(ctx context.Context, quotationID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, quotationID); err != nil {
		return fmt.Errorf("quotations: delete items: %w", err)
	}
	return nil
}
