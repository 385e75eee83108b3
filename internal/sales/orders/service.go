package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian/internal/notifications"
	"github.com/meridian-erp/meridian/internal/numbering"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/sales/quotations"
	salesshared "github.com/meridian-erp/meridian/internal/sales/shared"
	"github.com/meridian-erp/meridian/internal/shared"
)

// NumberSource reserves sales order numbers.
type NumberSource interface {
	Next(ctx context.Context, brandID int64, kind numbering.Kind, at time.Time) (string, error)
}

// Notifier fans out in-app notifications, best-effort.
type Notifier interface {
	Notify(ctx context.Context, f notifications.Fanout)
	FormatAmount(amount float64) string
}

type Service struct {
	repo       Repository
	quotations quotations.Repository
	numbers    NumberSource
	notifier   Notifier
	now        func() time.Time
}

func NewService(repo Repository, quotationRepo quotations.Repository, numbers NumberSource, notifier Notifier) *Service {
	return &Service{
		repo:       repo,
		quotations: quotationRepo,
		numbers:    numbers,
		notifier:   notifier,
		now:        time.Now,
	}
}

// ConvertFromQuotation turns a quotation into a sales order, or re-syncs the
// order a previous conversion produced.
//
// A quotation outside the caller's brand scope is reported as absent. When
// an order already exists for the quotation, the quotation's updated_at must
// be strictly newer than the order's, otherwise nothing is touched and the
// caller gets a conflict. A re-sync replaces the order's entire item set and
// totals in one transaction while keeping its number, date and id.
func (s *Service) ConvertFromQuotation(ctx context.Context, quotationID int64, tenant *shared.TenantContext, actorID *int64) (*SalesOrder, error) {
	q, err := s.quotations.Get(ctx, quotationID, allowedOf(tenant))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}

	existing, err := s.repo.GetByQuotationID(ctx, q.ID)
	switch {
	case err == nil:
		return s.resync(ctx, q, existing)
	case errors.Is(err, shared.ErrNotFound):
		return s.convert(ctx, q, tenant, actorID)
	default:
		return nil, err
	}
}

func (s *Service) convert(ctx context.Context, q *quotations.Quotation, tenant *shared.TenantContext, actorID *int64) (*SalesOrder, error) {
	brandID := q.BrandProfileID
	if brandID == 0 {
		if tenant == nil || tenant.ActiveBrand == nil {
			return nil, fmt.Errorf("%w: quotation has no brand and no brand is active", httpx.ErrValidation)
		}
		brandID = tenant.ActiveBrand.ID
	}

	if q.Status != quotations.StatusConfirmed {
		if err := s.quotations.UpdateStatus(ctx, q.ID, quotations.StatusConfirmed); err != nil {
			return nil, fmt.Errorf("orders: confirm quotation: %w", err)
		}
	}

	number, err := s.numbers.Next(ctx, brandID, numbering.KindSalesOrder, s.now())
	if err != nil {
		return nil, fmt.Errorf("orders: reserve number: %w", err)
	}

	items, total := itemsFromQuotation(q)
	quotationID := q.ID
	order := SalesOrder{
		Number:         number,
		BrandProfileID: brandID,
		CustomerID:     q.CustomerID,
		QuotationID:    &quotationID,
		OrderDate:      s.now(),
		Status:         StatusConfirmed,
		TotalAmount:    total,
		CreatedBy:      actorID,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, order)
		if err != nil {
			return err
		}
		for _, item := range items {
			item.SalesOrderID = id
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Get(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	s.notifyConverted(ctx, q, created)
	return created, nil
}

func (s *Service) resync(ctx context.Context, q *quotations.Quotation, order *SalesOrder) (*SalesOrder, error) {
	if !q.UpdatedAt.After(order.UpdatedAt) {
		return nil, fmt.Errorf("%w: quotation %s has no changes newer than order %s", httpx.ErrConflict, q.Number, order.Number)
	}

	items, total := itemsFromQuotation(q)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.DeleteItems(ctx, order.ID); err != nil {
			return err
		}
		for _, item := range items {
			item.SalesOrderID = order.ID
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return repo.UpdateTotals(ctx, order.ID, q.CustomerID, total)
	})
	if err != nil {
		return nil, err
	}

	refreshed, err := s.repo.Get(ctx, order.ID, nil)
	if err != nil {
		return nil, err
	}
	s.notifyConverted(ctx, q, refreshed)
	return refreshed, nil
}

// itemsFromQuotation copies the quotation's lines with freshly computed
// subtotals. Totals are never carried over from the stored rows.
func itemsFromQuotation(q *quotations.Quotation) ([]Item, float64) {
	items := make([]Item, 0, len(q.Items))
	var total float64
	for _, qi := range q.Items {
		sub := salesshared.LineSubtotal(qi.Quantity, qi.Price)
		total += sub
		items = append(items, Item{
			ProductID:   qi.ProductID,
			Description: qi.Description,
			Quantity:    qi.Quantity,
			Unit:        qi.Unit,
			Price:       qi.Price,
			ImagePath:   qi.ImagePath,
			Subtotal:    sub,
		})
	}
	return items, total
}

func (s *Service) notifyConverted(ctx context.Context, q *quotations.Quotation, order *SalesOrder) {
	if s.notifier == nil || q.CreatedBy == nil {
		return
	}
	s.notifier.Notify(ctx, notifications.Fanout{
		UserIDs: []int64{*q.CreatedBy},
		Title:   "Quotation converted",
		Message: fmt.Sprintf("Quotation %s became sales order %s (%s)", q.Number, order.Number, s.notifier.FormatAmount(order.TotalAmount)),
		Type:    notifications.TypeSuccess,
	})
}

// Create records a manual sales order not tied to a quotation.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, tenant *shared.TenantContext, createdBy *int64) (*SalesOrder, error) {
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

	number, err := s.numbers.Next(ctx, brandID, numbering.KindSalesOrder, req.OrderDate)
	if err != nil {
		return nil, fmt.Errorf("orders: reserve number: %w", err)
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
			ImagePath:   ir.ImagePath,
			Subtotal:    sub,
		})
	}

	order := SalesOrder{
		Number:         number,
		BrandProfileID: brandID,
		CustomerID:     req.CustomerID,
		OrderDate:      req.OrderDate,
		Status:         StatusOpen,
		TotalAmount:    total,
		CreatedBy:      createdBy,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, order)
		if err != nil {
			return err
		}
		for _, item := range items {
			item.SalesOrderID = id
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id, tenant.AllowedBrandIDs)
}

func (s *Service) Get(ctx context.Context, id int64, tenant *shared.TenantContext) (*SalesOrder, error) {
	o, err := s.repo.Get(ctx, id, allowedOf(tenant))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, req ListOrdersRequest, tenant *shared.TenantContext) ([]OrderWithCustomer, int, error) {
	return s.repo.List(ctx, req, allowedOf(tenant))
}

func allowedOf(tenant *shared.TenantContext) []int64 {
	if tenant == nil {
		return []int64{}
	}
	return tenant.AllowedBrandIDs
}
