package quotations

import "time"

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSent      Status = "SENT"
	StatusConfirmed Status = "CONFIRMED"
)

// Quotation is a sales quote tagged to a brand profile. CONFIRMED is only
// reachable through conversion to a sales order.
type Quotation struct {
	ID             int64     `json:"id" db:"id"`
	Number         string    `json:"number" db:"number"`
	BrandProfileID int64     `json:"brand_profile_id" db:"brand_profile_id"`
	CustomerID     int64     `json:"customer_id" db:"customer_id"`
	QuoteDate      time.Time `json:"quote_date" db:"quote_date"`
	Status         Status    `json:"status" db:"status"`
	TotalAmount    float64   `json:"total_amount" db:"total_amount"`
	CreatedBy      *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
	Items          []Item    `json:"items,omitempty" db:"-"`
}

type Item struct {
	ID          int64   `json:"id" db:"id"`
	QuotationID int64   `json:"quotation_id" db:"quotation_id"`
	ProductID   int64   `json:"product_id" db:"product_id"`
	Description *string `json:"description,omitempty" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	Unit        string  `json:"unit" db:"unit"`
	Price       float64 `json:"price" db:"price"`
	ImagePath   *string `json:"image_path,omitempty" db:"image_path"`
	Subtotal    float64 `json:"subtotal" db:"subtotal"`
}

// QuotationWithCustomer is the list projection.
type QuotationWithCustomer struct {
	Quotation
	CustomerName string `json:"customer_name" db:"customer_name"`
	BrandName    string `json:"brand_name" db:"brand_name"`
}

// CanEdit reports whether the quotation still accepts edits.
func (q *Quotation) CanEdit() bool {
	return q.Status == StatusDraft || q.Status == StatusSent
}
