package invoices

import "time"

type CreateInvoiceRequest struct {
	BrandProfileID *int64        `json:"brand_profile_id,omitempty" validate:"omitempty,gt=0"`
	SalesOrderID   *int64        `json:"sales_order_id,omitempty" validate:"omitempty,gt=0"`
	CustomerID     int64         `json:"customer_id" validate:"required_without=SalesOrderID,omitempty,gt=0"`
	InvoiceDate    time.Time     `json:"invoice_date" validate:"required"`
	Items          []ItemRequest `json:"items,omitempty" validate:"required_without=SalesOrderID,omitempty,min=1,dive"`
}

type ItemRequest struct {
	ProductID   int64   `json:"product_id" validate:"required,gt=0"`
	Description *string `json:"description,omitempty"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Unit        string  `json:"unit" validate:"required,max=20"`
	Price       float64 `json:"price" validate:"gte=0"`
}

type ListInvoicesRequest struct {
	CustomerID *int64     `json:"customer_id,omitempty"`
	Status     *Status    `json:"status,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
	Limit      int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int        `json:"offset" validate:"gte=0"`
}
