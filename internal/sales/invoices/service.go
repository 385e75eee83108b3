package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian/internal/numbering"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/sales/orders"
	salesshared "github.com/meridian-erp/meridian/internal/sales/shared"
	"github.com/meridian-erp/meridian/internal/shared"
)

type NumberSource interface {
	Next(ctx context.Context, brandID int64, kind numbering.Kind, at time.Time) (string, error)
	Peek(ctx context.Context, brandID int64, kind numbering.Kind, at time.Time) (string, error)
}

type Service struct {
	repo    Repository
	orders  orders.Repository
	numbers NumberSource
}

func NewService(repo Repository, orderRepo orders.Repository, numbers NumberSource) *Service {
	return &Service{repo: repo, orders: orderRepo, numbers: numbers}
}

// Create bills the customer. With a sales order reference the items and
// customer come from the order; otherwise the request must carry them.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest, tenant *shared.TenantContext, createdBy *int64) (*Invoice, error) {
	var (
		brandID     int64
		customerID  = req.CustomerID
		quotationID *int64
		items       []Item
		total       float64
	)

	if req.SalesOrderID != nil {
		order, err := s.orders.Get(ctx, *req.SalesOrderID, allowedOf(tenant))
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, httpx.ErrNotFound
			}
			return nil, err
		}
		brandID = order.BrandProfileID
		customerID = order.CustomerID
		quotationID = order.QuotationID
		for _, oi := range order.Items {
			sub := salesshared.LineSubtotal(oi.Quantity, oi.Price)
			total += sub
			items = append(items, Item{
				ProductID:   oi.ProductID,
				Description: oi.Description,
				Quantity:    oi.Quantity,
				Unit:        oi.Unit,
				Price:       oi.Price,
				Subtotal:    sub,
			})
		}
	} else {
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
		if len(req.Items) == 0 {
			return nil, fmt.Errorf("%w: items are required without a sales order", httpx.ErrValidation)
		}
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
	}

	number, err := s.numbers.Next(ctx, brandID, numbering.KindInvoice, req.InvoiceDate)
	if err != nil {
		return nil, fmt.Errorf("invoices: reserve number: %w", err)
	}

	invoice := Invoice{
		Number:         number,
		BrandProfileID: brandID,
		CustomerID:     customerID,
		SalesOrderID:   req.SalesOrderID,
		QuotationID:    quotationID,
		InvoiceDate:    req.InvoiceDate,
		Status:         StatusDraft,
		TotalAmount:    total,
		CreatedBy:      createdBy,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, invoice)
		if err != nil {
			return err
		}
		for _, item := range items {
			item.InvoiceID = id
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id, allowedOf(tenant))
}

func (s *Service) SetStatus(ctx context.Context, id int64, status Status, tenant *shared.TenantContext) (*Invoice, error) {
	if status != StatusSent && status != StatusPaid {
		return nil, fmt.Errorf("%w: unknown invoice status %q", httpx.ErrValidation, status)
	}
	if _, err := s.Get(ctx, id, tenant); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.Get(ctx, id, tenant)
}

// Delete hides the invoice; the retention job removes it permanently later.
func (s *Service) Delete(ctx context.Context, id int64, tenant *shared.TenantContext) error {
	if _, err := s.Get(ctx, id, tenant); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return httpx.ErrNotFound
		}
		return err
	}
	return nil
}

// PurgeSoftDeleted hard-deletes invoices soft-deleted before the retention
// window. Called by the nightly worker task.
func (s *Service) PurgeSoftDeleted(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.PurgeBefore(ctx, time.Now().Add(-retention))
}

func (s *Service) Get(ctx context.Context, id int64, tenant *shared.TenantContext) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id, allowedOf(tenant))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest, tenant *shared.TenantContext) ([]InvoiceWithCustomer, int, error) {
	return s.repo.List(ctx, req, allowedOf(tenant))
}

func (s *Service) NextNumber(ctx context.Context, tenant *shared.TenantContext) (string, error) {
	if tenant == nil || tenant.ActiveBrand == nil {
		return "", fmt.Errorf("%w: no brand profile selected", httpx.ErrValidation)
	}
	return s.numbers.Peek(ctx, tenant.ActiveBrand.ID, numbering.KindInvoice, time.Now())
}

func allowedOf(tenant *shared.TenantContext) []int64 {
	if tenant == nil {
		return []int64{}
	}
	return tenant.AllowedBrandIDs
}
