package purchasing

import "time"

// PurchaseDirect is a direct purchase recorded against a brand, numbered
// per month within the brand.
type PurchaseDirect struct {
	ID             int64     `json:"id" db:"id"`
	Number         string    `json:"number" db:"number"`
	BrandProfileID int64     `json:"brand_profile_id" db:"brand_profile_id"`
	SupplierName   string    `json:"supplier_name" db:"supplier_name"`
	PurchaseDate   time.Time `json:"purchase_date" db:"purchase_date"`
	TotalAmount    float64   `json:"total_amount" db:"total_amount"`
	CreatedBy      *int64    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
	Items          []Item    `json:"items,omitempty" db:"-"`
}

type Item struct {
	ID               int64   `json:"id" db:"id"`
	PurchaseDirectID int64   `json:"purchase_direct_id" db:"purchase_direct_id"`
	ProductID        *int64  `json:"product_id,omitempty" db:"product_id"`
	Description      string  `json:"description" db:"description"`
	Quantity         float64 `json:"quantity" db:"quantity"`
	Unit             string  `json:"unit" db:"unit"`
	Price            float64 `json:"price" db:"price"`
	Subtotal         float64 `json:"subtotal" db:"subtotal"`
}

// PurchaseWithBrand is the list projection.
type PurchaseWithBrand struct {
	PurchaseDirect
	BrandName string `json:"brand_name" db:"brand_name"`
}
