package purchasing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian/internal/numbering"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	salesshared "github.com/meridian-erp/meridian/internal/sales/shared"
	"github.com/meridian-erp/meridian/internal/shared"
)

type CreatePurchaseRequest struct {
	BrandProfileID *int64        `json:"brand_profile_id,omitempty" validate:"omitempty,gt=0"`
	SupplierName   string        `json:"supplier_name" validate:"required,min=2"`
	PurchaseDate   time.Time     `json:"purchase_date" validate:"required"`
	Items          []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type ItemRequest struct {
	ProductID   *int64  `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Unit        string  `json:"unit" validate:"required,max=20"`
	Price       float64 `json:"price" validate:"gte=0"`
}

type ListPurchasesRequest struct {
	Supplier string     `json:"supplier,omitempty"`
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	Limit    int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int        `json:"offset" validate:"gte=0"`
}

type NumberSource interface {
	Next(ctx context.Context, brandID int64, kind numbering.Kind, at time.Time) (string, error)
	Peek(ctx context.Context, brandID int64, kind numbering.Kind, at time.Time) (string, error)
}

type Service struct {
	repo    Repository
	numbers NumberSource
}

func NewService(repo Repository, numbers NumberSource) *Service {
	return &Service{repo: repo, numbers: numbers}
}

func (s *Service) Create(ctx context.Context, req CreatePurchaseRequest, tenant *shared.TenantContext, createdBy *int64) (*PurchaseDirect, error) {
	var brandID int64
	switch {
	case req.BrandProfileID != nil:
		brandID = *req.BrandProfileID
	case tenant != nil && tenant.ActiveBrand != nil:
		brandID = tenant.ActiveBrand.ID
	default:
		return nil, fmt.Errorf("%w: no brand profile selected", httpx.ErrValidation)
	}
	if !tenant.CanAccess(brandID) {
		return nil, httpx.ErrForbidden
	}

	number, err := s.numbers.Next(ctx, brandID, numbering.KindPurchase, req.PurchaseDate)
	if err != nil {
		return nil, fmt.Errorf("purchasing: reserve number: %w", err)
	}

	items := make([]Item, 0, len(req.Items))
	var total float64
	for _, ir := range req.Items {
		sub := salesshared.LineSubtotal(ir.Quantity, ir.Price)
		total += sub
		items = append(items, Item{
			ProductID:   ir.ProductID,
			Description: ir.Description,
			Quantity:    ir.Quantity,
			Unit:        ir.Unit,
			Price:       ir.Price,
			Subtotal:    sub,
		})
	}

	purchase := PurchaseDirect{
		Number:         number,
		BrandProfileID: brandID,
		SupplierName:   req.SupplierName,
		PurchaseDate:   req.PurchaseDate,
		TotalAmount:    total,
		CreatedBy:      createdBy,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, purchase)
		if err != nil {
			return err
		}
		for _, item := range items {
			item.PurchaseDirectID = id
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id, tenant)
}

func (s *Service) Get(ctx context.Context, id int64, tenant *shared.TenantContext) (*PurchaseDirect, error) {
	p, err := s.repo.Get(ctx, id, allowedOf(tenant))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, req ListPurchasesRequest, tenant *shared.TenantContext) ([]PurchaseWithBrand, int, error) {
	return s.repo.List(ctx, req, allowedOf(tenant))
}

func (s *Service) NextNumber(ctx context.Context, tenant *shared.TenantContext) (string, error) {
	if tenant == nil || tenant.ActiveBrand == nil {
		return "", fmt.Errorf("%w: no brand profile selected", httpx.ErrValidation)
	}
	return s.numbers.Peek(ctx, tenant.ActiveBrand.ID, numbering.KindPurchase, time.Now())
}

func allowedOf(tenant *shared.TenantContext) []int64 {
	if tenant == nil {
		return []int64{}
	}
	return tenant.AllowedBrandIDs
}
