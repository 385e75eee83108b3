package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Repository persists sales orders. The allowed slice carries the caller's
// brand scope: nil means unrestricted, empty means nothing is visible.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64, allowed []int64) (*SalesOrder, error)
	GetByQuotationID(ctx context.Context, quotationID int64) (*SalesOrder, error)
	List(ctx context.Context, req ListOrdersRequest, allowed []int64) ([]OrderWithCustomer, int, error)
	Create(ctx context.Context, o SalesOrder) (int64, error)
	UpdateTotals(ctx context.Context, id int64, customerID int64, total float64) error
	InsertItem(ctx context.Context, item Item) (int64, error)
	DeleteItems(ctx context.Context, orderID int64) error
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

const orderColumns = `id, number, brand_profile_id, customer_id, quotation_id, order_date, status,
	total_amount, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64, allowed []int64) (*SalesOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM sales_orders WHERE id = $1`, orderColumns)
	args := []any{id}
	if allowed != nil {
		query += ` AND brand_profile_id = ANY($2)`
		args = append(args, allowed)
	}
	return r.getOne(ctx, query, args...)
}

func (r *repository) GetByQuotationID(ctx context.Context, quotationID int64) (*SalesOrder, error) {
	query := fmt.Sprintf(`SELECT %s FROM sales_orders WHERE quotation_id = $1`, orderColumns)
	return r.getOne(ctx, query, quotationID)
}

func (r *repository) getOne(ctx context.Context, query string, args ...any) (*SalesOrder, error) {
	var o SalesOrder
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&o.ID, &o.Number, &o.BrandProfileID, &o.CustomerID, &o.QuotationID, &o.OrderDate,
		&o.Status, &o.TotalAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("orders: get: %w", err)
	}

	items, err := r.items(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *repository) items(ctx context.Context, orderID int64) ([]Item, error) {
	const query = `
		SELECT id, sales_order_id, product_id, description, quantity, unit, price, image_path, subtotal
		FROM sales_order_items
		WHERE sales_order_id = $1
		ORDER BY id`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.SalesOrderID, &it.ProductID, &it.Description,
			&it.Quantity, &it.Unit, &it.Price, &it.ImagePath, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("orders: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest, allowed []int64) ([]OrderWithCustomer, int, error) {
	conditions := []string{"1=1"}
	var args []any
	argPos := 1

	if allowed != nil {
		conditions = append(conditions, fmt.Sprintf("o.brand_profile_id = ANY($%d)", argPos))
		args = append(args, allowed)
		argPos++
	}
	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("o.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sales_orders o %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("orders: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.number, o.brand_profile_id, o.customer_id, o.quotation_id, o.order_date,
		       o.status, o.total_amount, o.created_by, o.created_at, o.updated_at,
		       c.name AS customer_name,
		       b.name AS brand_name
		FROM sales_orders o
		JOIN customers c ON o.customer_id = c.id
		JOIN brand_profiles b ON o.brand_profile_id = b.id
		%s
		ORDER BY o.order_date DESC, o.id DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("orders: list: %w", err)
	}
	defer rows.Close()

	var result []OrderWithCustomer
	for rows.Next() {
		var o OrderWithCustomer
		if err := rows.Scan(&o.ID, &o.Number, &o.BrandProfileID, &o.CustomerID, &o.QuotationID,
			&o.OrderDate, &o.Status, &o.TotalAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
			&o.CustomerName, &o.BrandName); err != nil {
			return nil, 0, fmt.Errorf("orders: scan: %w", err)
		}
		result = append(result, o)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, o SalesOrder) (int64, error) {
	const query = `
		INSERT INTO sales_orders (number, brand_profile_id, customer_id, quotation_id, order_date,
			status, total_amount, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		o.Number, o.BrandProfileID, o.CustomerID, o.QuotationID, o.OrderDate,
		o.Status, o.TotalAmount, o.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orders: insert: %w", err)
	}
	return id, nil
}

// UpdateTotals refreshes the customer and total after a re-conversion while
// keeping the order's number, date and id intact.
func (r *repository) UpdateTotals(ctx context.Context, id int64, customerID int64, total float64) error {
	const query = `
		UPDATE sales_orders
		SET customer_id = $2, total_amount = $3, updated_at = now()
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, customerID, total)
	if err != nil {
		return fmt.Errorf("orders: update totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	const query = `
		INSERT INTO sales_order_items (sales_order_id, product_id, description, quantity, unit, price, image_path, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		item.SalesOrderID, item.ProductID, item.Description, item.Quantity, item.Unit,
		item.Price, item.ImagePath, item.Subtotal,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("orders: insert item: %w", err)
	}
	return id, nil
}

func (r *repository) DeleteItems(ctx context.Context, orderID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sales_order_items WHERE sales_order_id = $1`, orderID); err != nil {
		return fmt.Errorf("orders: delete items: %w", err)
	}
	return nil
}
