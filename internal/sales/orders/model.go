package orders

import "time"

type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusConfirmed Status = "CONFIRMED"
	StatusFulfilled Status = "FULFILLED"
	StatusCancelled Status = "CANCELLED"
)

// SalesOrder is a confirmed order, possibly born from a quotation. Orders
// created by conversion keep a back-reference through QuotationID so a
// later re-conversion can find and refresh them.
type SalesOrder struct {
	ID             int64     `json:"id" db:"id"`
	Number         string    `json:"number" db:"number"`
	BrandProfileID int64     `json:"brand_profile_id" db:"brand_profile_id"`
	CustomerID     int64     `json:"customer_id" db:"customer_id"`
	QuotationID    *int64    `json:"quotation_id,omitempty" db:"quotation_id"`
	OrderDate      time.Time `json:"order_date" db:"order_date"`
	Status         Status    `json:"status" db:"status"`
	TotalAmount    float64   `json:"total_amount" db:"total_amount"`
	CreatedBy      *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
	Items          []Item    `json:"items,omitempty" db:"-"`
}

type Item struct {
	ID           int64   `json:"id" db:"id"`
	SalesOrderID int64   `json:"sales_order_id" db:"sales_order_id"`
	ProductID    int64   `json:"product_id" db:"product_id"`
	Description  *string `json:"description,omitempty" db:"description"`
	Quantity     float64 `json:"quantity" db:"quantity"`
	Unit         string  `json:"unit" db:"unit"`
	Price        float64 `json:"price" db:"price"`
	ImagePath    *string `json:"image_path,omitempty" db:"image_path"`
	Subtotal     float64 `json:"subtotal" db:"subtotal"`
}

// OrderWithCustomer is the list and conversion-response projection.
type OrderWithCustomer struct {
	SalesOrder
	CustomerName string `json:"customer_name" db:"customer_name"`
	BrandName    string `json:"brand_name" db:"brand_name"`
}
