package purchasing

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

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64, allowed []int64) (*PurchaseDirect, error)
	List(ctx context.Context, req ListPurchasesRequest, allowed []int64) ([]PurchaseWithBrand, int, error)
	Create(ctx context.Context, p PurchaseDirect) (int64, error)
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

func (r *repository) Get(ctx context.Context, id int64, allowed []int64) (*PurchaseDirect, error) {
	query := `
		SELECT id, number, brand_profile_id, supplier_name, purchase_date, total_amount,
		       created_by, created_at, updated_at
		FROM purchase_directs
		WHERE id = $1`
	args := []any{id}
	if allowed != nil {
		query += ` AND brand_profile_id = ANY($2)`
		args = append(args, allowed)
	}

	var p PurchaseDirect
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.Number, &p.BrandProfileID, &p.SupplierName, &p.PurchaseDate,
		&p.TotalAmount, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("purchasing: get: %w", err)
	}

	items, err := r.items(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return &p, nil
}

func (r *repository) items(ctx context.Context, purchaseID int64) ([]Item, error) {
	const query = `
		SELECT id, purchase_direct_id, product_id, description, quantity, unit, price, subtotal
		FROM purchase_direct_items
		WHERE purchase_direct_id = $1
		ORDER BY id`
	rows, err := r.db.Query(ctx, query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("purchasing: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.PurchaseDirectID, &it.ProductID, &it.Description,
			&it.Quantity, &it.Unit, &it.Price, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("purchasing: scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListPurchasesRequest, allowed []int64) ([]PurchaseWithBrand, int, error) {
	conditions := []string{"1=1"}
	var args []any
	argPos := 1

	if allowed != nil {
		conditions = append(conditions, fmt.Sprintf("p.brand_profile_id = ANY($%d)", argPos))
		args = append(args, allowed)
		argPos++
	}
	if req.Supplier != "" {
		conditions = append(conditions, fmt.Sprintf("p.supplier_name ILIKE $%d", argPos))
		args = append(args, "%"+req.Supplier+"%")
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("p.purchase_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("p.purchase_date <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM purchase_directs p %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("purchasing: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.number, p.brand_profile_id, p.supplier_name, p.purchase_date,
		       p.total_amount, p.created_by, p.created_at, p.updated_at,
		       b.name AS brand_name
		FROM purchase_directs p
		JOIN brand_profiles b ON p.brand_profile_id = b.id
		%s
		ORDER BY p.purchase_date DESC, p.id DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("purchasing: list: %w", err)
	}
	defer rows.Close()

	var result []PurchaseWithBrand
	for rows.Next() {
		var p PurchaseWithBrand
		if err := rows.Scan(&p.ID, &p.Number, &p.BrandProfileID, &p.SupplierName, &p.PurchaseDate,
			&p.TotalAmount, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &p.BrandName); err != nil {
			return nil, 0, fmt.Errorf("purchasing: scan: %w", err)
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p PurchaseDirect) (int64, error) {
	const query = `
		INSERT INTO purchase_directs (number, brand_profile_id, supplier_name, purchase_date,
			total_amount, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		p.Number, p.BrandProfileID, p.SupplierName, p.PurchaseDate, p.TotalAmount, p.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("purchasing: insert: %w", err)
	}
	return id, nil
}

func (r *repository) InsertItem(ctx context.Context, item Item) (int64, error) {
	const query = `
		INSERT INTO purchase_direct_items (purchase_direct_id, product_id, description, quantity, unit, price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		item.PurchaseDirectID, item.ProductID, item.Description, item.Quantity, item.Unit,
		item.Price, item.Subtotal,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("purchasing: insert item: %w", err)
	}
	return id, nil
}
