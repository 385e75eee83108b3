package invoices

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

// Repository persists invoices. Soft-deleted rows are invisible to every
// read; PurgeBefore removes them for good.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64, allowed []int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest, allowed []int64) ([]InvoiceWithCustomer, int, error)
	Create(ctx context.Context, inv Invoice) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	SoftDelete(ctx context.Context, id int64) error
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
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

const invoiceColumns = `id, number, brand_profile_id, customer_id, sales_order_id, quotation_id,
	invoice_date, status, total_amount, created_by, deleted_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64, allowed []int64) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 AND deleted_at IS NULL`, invoiceColumns)
	args := []any{id}
	if allowed != nil {
		query += ` AND brand_profile_id = ANY($2)`
		args = append(args, allowed)
	}

	var inv Invoice
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&inv.ID, &inv.Number, &inv.BrandProfileID, &inv.CustomerID, &inv.SalesOrderID,
		&inv.QuotationID, &inv.InvoiceDate, &inv.Status, &inv.TotalAmount, &inv.CreatedBy,
		&inv.DeletedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("invoices: get: %w", err)
	}

	items, err := r.items(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return &inv, nil
}

func (r *repository) items(ctx context.Context, invoiceID int64) ([]Item, error) {
	const query = `
		SELECT id, invoice_id, product_id, description, quantity, unit, price, subtotal
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id`
	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoices: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.Description,
			&it.Quantity, &it.Unit, &it.Price, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("invoices: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest, allowed []int64) ([]InvoiceWithCustomer, int, error) {
	conditions := []string{"i.deleted_at IS NULL"}
	var args []any
	argPos := 1

	if allowed != nil {
		conditions = append(conditions, fmt.Sprintf("i.brand_profile_id = ANY($%d)", argPos))
		args = append(args, allowed)
		argPos++
	}
	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("i.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("i.invoice_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("i.invoice_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM invoices i %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("invoices: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT i.id, i.number, i.brand_profile_id, i.customer_id, i.sales_order_id, i.quotation_id,
		       i.invoice_date, i.status, i.total_amount, i.created_by, i.deleted_at, i.created_at, i.updated_at,
		       c.name AS customer_name,
		       b.name AS brand_name
		FROM invoices i
		JOIN customers c ON i.customer_id = c.id
		JOIN brand_profiles b ON i.brand_profile_id = b.id
		%s
		ORDER BY i.invoice_date DESC, i.id DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoices: list: %w", err)
	}
	defer rows.Close()

	var result []InvoiceWithCustomer
	for rows.Next() {
		var inv InvoiceWithCustomer
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.BrandProfileID, &inv.CustomerID,
			&inv.SalesOrderID, &inv.QuotationID, &inv.InvoiceDate, &inv.Status, &inv.TotalAmount,
			&inv.CreatedBy, &inv.DeletedAt, &inv.CreatedAt, &inv.UpdatedAt,
			&inv.CustomerName, &inv.BrandName); err != nil {
			return nil, 0, fmt.Errorf("invoices: scan: %w", err)
		}
		result = append(result, inv)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, inv Invoice) (int64, error) {
	const query = `
		INSERT INTO invoices (number, brand_profile_id, customer_id, sales_order_id, quotation_id,
			invoice_date, status, total_amount, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		inv.Number, inv.BrandProfileID, inv.CustomerID, inv.SalesOrderID, inv.QuotationID,
		inv.InvoiceDate, inv.Status, inv.TotalAmount, inv.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("invoices: insert: %w", err)
	}
	return id, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	const query = `UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("invoices: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	const query = `UPDATE invoices SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("invoices: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("invoices: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	const query = `
		INSERT INTO invoice_items (invoice_id, product_id, description, quantity, unit, price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		item.InvoiceID, item.ProductID, item.Description, item.Quantity, item.Unit,
		item.Price, item.Subtotal,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("invoices: insert item: %w", err)
	}
	return id, nil
}
