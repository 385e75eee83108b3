package invoices

import "time"

type Status string

const (
	StatusDraft Status = "DRAFT"
	StatusSent  Status = "SENT"
	StatusPaid  Status = "PAID"
)

// Invoice bills a customer, optionally referencing the sales order or
// quotation it came from. Deletion is soft; purged by the retention job.
type Invoice struct {
	ID             int64      `json:"id" db:"id"`
	Number         string     `json:"number" db:"number"`
	BrandProfileID int64      `json:"brand_profile_id" db:"brand_profile_id"`
	CustomerID     int64      `json:"customer_id" db:"customer_id"`
	SalesOrderID   *int64     `json:"sales_order_id,omitempty" db:"sales_order_id"`
	QuotationID    *int64     `json:"quotation_id,omitempty" db:"quotation_id"`
	InvoiceDate    time.Time  `json:"invoice_date" db:"invoice_date"`
	Status         Status     `json:"status" db:"status"`
	TotalAmount    float64    `json:"total_amount" db:"total_amount"`
	CreatedBy      *int64     `json:"created_by,omitempty" db:"created_by"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	Items          []Item     `json:"items,omitempty" db:"-"`
}

type Item struct {
	ID          int64   `json:"id" db:"id"`
	InvoiceID   int64   `json:"invoice_id" db:"invoice_id"`
	ProductID   int64   `json:"product_id" db:"product_id"`
	Description *string `json:"description,omitempty" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	Unit        string  `json:"unit" db:"unit"`
	Price       float64 `json:"price" db:"price"`
	Subtotal    float64 `json:"subtotal" db:"subtotal"`
}

// InvoiceWithCustomer is the list projection.
type InvoiceWithCustomer struct {
	Invoice
	CustomerName string `json:"customer_name" db:"customer_name"`
	BrandName    string `json:"brand_name" db:"brand_name"`
}
