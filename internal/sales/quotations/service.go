package quotations

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

// NumberSource reserves and previews quotation numbers.
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

// resolveBrand picks the brand a new document belongs to: the explicit
// request value, otherwise the caller's active brand.
func resolveBrand(requested *int64, tenant *shared.TenantContext) (int64, error) {
	var brandID int64
	switch {
	case requested != nil:
		brandID = *requested
	case tenant != nil && tenant.ActiveBrand != nil:
		brandID = tenant.ActiveBrand.ID
	default:
		return 0, fmt.Errorf("%w: no brand profile selected", httpx.ErrValidation)
	}
	if !tenant.CanAccess(brandID) {
		return 0, httpx.ErrForbidden
	}
	return brandID, nil
}

func buildItems(docID int64, reqs []ItemRequest) ([]Item, float64) {
	items := make([]Item, 0, len(reqs))
	var total float64
	for _, ir := range reqs {
		sub := salesshared.LineSubtotal(ir.Quantity, ir.Price)
		total += sub
		items = append(items, Item{
			QuotationID: docID,
			ProductID:   ir.ProductID,
			Description: ir.Description,
			Quantity:    ir.Quantity,
			Unit:        ir.Unit,
			Price:       ir.Price,
			ImagePath:   ir.ImagePath,
			Subtotal:    sub,
		})
	}
	return items, total
}

func (s *Service) Create(ctx context.Context, req CreateQuotationRequest, tenant *shared.TenantContext, createdBy *int64) (*Quotation, error) {
	brandID, err := resolveBrand(req.BrandProfileID, tenant)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, brandID, numbering.KindQuotation, req.QuoteDate)
	if err != nil {
		return nil, fmt.Errorf("quotations: reserve number: %w", err)
	}

	items, total := buildItems(0, req.Items)
	quotation := Quotation{
		Number:         number,
		BrandProfileID: brandID,
		CustomerID:     req.CustomerID,
		QuoteDate:      req.QuoteDate,
		Status:         StatusDraft,
		TotalAmount:    total,
		CreatedBy:      createdBy,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, quotation)
		if err != nil {
			return err
		}
		for _, item := range items {
			item.QuotationID = id
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

// Update replaces the header fields and, when items are supplied, the full
// item set in a single transaction. Only DRAFT and SENT quotations accept
// edits.
func (s *Service) Update(ctx context.Context, id int64, req UpdateQuotationRequest, tenant *shared.TenantContext) (*Quotation, error) {
	existing, err := s.getScoped(ctx, id, tenant)
	if err != nil {
		return nil, err
	}
	if !existing.CanEdit() {
		return nil, fmt.Errorf("%w: quotation %s is already confirmed", httpx.ErrConflict, existing.Number)
	}

	customerID := existing.CustomerID
	if req.CustomerID != nil {
		customerID = *req.CustomerID
	}
	quoteDate := existing.QuoteDate
	if req.QuoteDate != nil {
		quoteDate = *req.QuoteDate
	}

	total := existing.TotalAmount
	var items []Item
	if req.Items != nil {
		items, total = buildItems(id, *req.Items)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if req.Items != nil {
			if err := repo.DeleteItems(ctx, id); err != nil {
				return err
			}
			for _, item := range items {
				if _, err := repo.InsertItem(ctx, item); err != nil {
					return err
				}
			}
		}
		return repo.UpdateHeader(ctx, id, customerID, quoteDate, total)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id, tenant.AllowedBrandIDs)
}

// Send transitions DRAFT to SENT.
func (s *Service) Send(ctx context.Context, id int64, tenant *shared.TenantContext) (*Quotation, error) {
	existing, err := s.getScoped(ctx, id, tenant)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusDraft {
		return nil, fmt.Errorf("%w: quotation %s is not a draft", httpx.ErrConflict, existing.Number)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusSent); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id, tenant.AllowedBrandIDs)
}

func (s *Service) Get(ctx context.Context, id int64, tenant *shared.TenantContext) (*Quotation, error) {
	return s.getScoped(ctx, id, tenant)
}

func (s *Service) List(ctx context.Context, req ListQuotationsRequest, tenant *shared.TenantContext) ([]QuotationWithCustomer, int, error) {
	return s.repo.List(ctx, req, allowedOf(tenant))
}

// NextNumber previews the next quotation number for the active brand
// without reserving it.
func (s *Service) NextNumber(ctx context.Context, tenant *shared.TenantContext) (string, error) {
	if tenant == nil || tenant.ActiveBrand == nil {
		return "", fmt.Errorf("%w: no brand profile selected", httpx.ErrValidation)
	}
	return s.numbers.Peek(ctx, tenant.ActiveBrand.ID, numbering.KindQuotation, time.Now())
}

func (s *Service) getScoped(ctx context.Context, id int64, tenant *shared.TenantContext) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id, allowedOf(tenant))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

// allowedOf maps a missing tenant context to "no access" rather than "all".
func allowedOf(tenant *shared.TenantContext) []int64 {
	if tenant == nil {
		return []int64{}
	}
	return tenant.AllowedBrandIDs
}
