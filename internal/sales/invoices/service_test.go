package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/numbering"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/sales/orders"
	"github.com/meridian-erp/meridian/internal/shared"
)

type stubInvoiceRepo struct {
	byID   map[int64]*Invoice
	items  map[int64][]Item
	nextID int64
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{byID: map[int64]*Invoice{}, items: map[int64][]Item{}}
}

func (s *stubInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, s)
}

func (s *stubInvoiceRepo) Get(_ context.Context, id int64, allowed []int64) (*Invoice, error) {
	inv, ok := s.byID[id]
	if !ok || inv.DeletedAt != nil {
		return nil, shared.ErrNotFound
	}
	if allowed != nil {
		visible := false
		for _, b := range allowed {
			if b == inv.BrandProfileID {
				visible = true
			}
		}
		if !visible {
			return nil, shared.ErrNotFound
		}
	}
	cp := *inv
	cp.Items = append([]Item(nil), s.items[id]...)
	return &cp, nil
}

func (s *stubInvoiceRepo) List(context.Context, ListInvoicesRequest, []int64) ([]InvoiceWithCustomer, int, error) {
	return nil, 0, nil
}

func (s *stubInvoiceRepo) Create(_ context.Context, inv Invoice) (int64, error) {
	s.nextID++
	inv.ID = s.nextID
	s.byID[inv.ID] = &inv
	return inv.ID, nil
}

func (s *stubInvoiceRepo) UpdateStatus(_ context.Context, id int64, status Status) error {
	inv, ok := s.byID[id]
	if !ok || inv.DeletedAt != nil {
		return shared.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (s *stubInvoiceRepo) SoftDelete(_ context.Context, id int64) error {
	inv, ok := s.byID[id]
	if !ok || inv.DeletedAt != nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	inv.DeletedAt = &now
	return nil
}

func (s *stubInvoiceRepo) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for id, inv := range s.byID {
		if inv.DeletedAt != nil && inv.DeletedAt.Before(cutoff) {
			delete(s.byID, id)
			purged++
		}
	}
	return purged, nil
}

func (s *stubInvoiceRepo) InsertItem(_ context.Context, item Item) (int64, error) {
	item.ID = int64(len(s.items[item.InvoiceID]) + 1)
	s.items[item.InvoiceID] = append(s.items[item.InvoiceID], item)
	return item.ID, nil
}

type stubOrderSource struct{ byID map[int64]*orders.SalesOrder }

func (s *stubOrderSource) WithTx(ctx context.Context, fn func(context.Context, orders.Repository) error) error {
	return fn(ctx, s)
}

func (s *stubOrderSource) Get(_ context.Context, id int64, allowed []int64) (*orders.SalesOrder, error) {
	o, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if allowed != nil {
		visible := false
		for _, b := range allowed {
			if b == o.BrandProfileID {
				visible = true
			}
		}
		if !visible {
			return nil, shared.ErrNotFound
		}
	}
	return o, nil
}

func (s *stubOrderSource) GetByQuotationID(context.Context, int64) (*orders.SalesOrder, error) {
	return nil, shared.ErrNotFound
}

func (s *stubOrderSource) List(context.Context, orders.ListOrdersRequest, []int64) ([]orders.OrderWithCustomer, int, error) {
	return nil, 0, nil
}

func (s *stubOrderSource) Create(context.Context, orders.SalesOrder) (int64, error) { return 0, nil }

func (s *stubOrderSource) UpdateTotals(context.Context, int64, int64, float64) error { return nil }

func (s *stubOrderSource) InsertItem(context.Context, orders.Item) (int64, error) { return 0, nil }

func (s *stubOrderSource) DeleteItems(context.Context, int64) error { return nil }

type stubNumbers struct{ n int }

func (s *stubNumbers) Next(_ context.Context, _ int64, kind numbering.Kind, at time.Time) (string, error) {
	s.n++
	return numbering.Format(kind, numbering.Period(kind, at), int64(s.n)), nil
}

func (s *stubNumbers) Peek(_ context.Context, _ int64, kind numbering.Kind, at time.Time) (string, error) {
	return numbering.Format(kind, numbering.Period(kind, at), int64(s.n+1)), nil
}

func ptr[T any](v T) *T { return &v }

var invoiceDate = time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

func tenantFor(brands ...int64) *shared.TenantContext {
	return &shared.TenantContext{AllowedBrandIDs: append([]int64{}, brands...)}
}

func TestCreateFromSalesOrderCopiesItems(t *testing.T) {
	quotationID := int64(10)
	orderSource := &stubOrderSource{byID: map[int64]*orders.SalesOrder{
		20: {
			ID:             20,
			Number:         "SO-2025-0042",
			BrandProfileID: 3,
			CustomerID:     77,
			QuotationID:    &quotationID,
			Items: []orders.Item{
				{ProductID: 1, Quantity: 2, Unit: "pcs", Price: 500},
			},
		},
	}}
	svc := NewService(newStubInvoiceRepo(), orderSource, &stubNumbers{})

	inv, err := svc.Create(context.Background(), CreateInvoiceRequest{
		SalesOrderID: ptr(int64(20)),
		InvoiceDate:  invoiceDate,
	}, tenantFor(3), nil)
	require.NoError(t, err)

	assert.Equal(t, "INV-2025-0001", inv.Number)
	assert.Equal(t, int64(77), inv.CustomerID)
	assert.Equal(t, int64(3), inv.BrandProfileID)
	require.NotNil(t, inv.QuotationID)
	assert.Equal(t, quotationID, *inv.QuotationID)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 1000.0, inv.TotalAmount)
	assert.Equal(t, StatusDraft, inv.Status)
}

func TestCreateFromOutOfScopeOrderLooksAbsent(t *testing.T) {
	orderSource := &stubOrderSource{byID: map[int64]*orders.SalesOrder{
		20: {ID: 20, BrandProfileID: 3, CustomerID: 77},
	}}
	svc := NewService(newStubInvoiceRepo(), orderSource, &stubNumbers{})

	_, err := svc.Create(context.Background(), CreateInvoiceRequest{
		SalesOrderID: ptr(int64(20)),
		InvoiceDate:  invoiceDate,
	}, tenantFor(8), nil)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteIsSoftThenPurged(t *testing.T) {
	repo := newStubInvoiceRepo()
	svc := NewService(repo, &stubOrderSource{}, &stubNumbers{})
	tenant := &shared.TenantContext{AllowedBrandIDs: []int64{3}, ActiveBrand: &shared.BrandRef{ID: 3}}

	inv, err := svc.Create(context.Background(), CreateInvoiceRequest{
		CustomerID:  77,
		InvoiceDate: invoiceDate,
		Items:       []ItemRequest{{ProductID: 1, Quantity: 1, Unit: "pcs", Price: 10}},
	}, tenant, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), inv.ID, tenant))

	_, err = svc.Get(context.Background(), inv.ID, tenant)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	err = svc.Delete(context.Background(), inv.ID, tenant)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	// Not yet past retention, stays on disk.
	purged, err := svc.PurgeSoftDeleted(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, purged)

	purged, err = svc.PurgeSoftDeleted(context.Background(), -time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestSetStatusValidatesTarget(t *testing.T) {
	repo := newStubInvoiceRepo()
	svc := NewService(repo, &stubOrderSource{}, &stubNumbers{})
	tenant := &shared.TenantContext{AllowedBrandIDs: []int64{3}, ActiveBrand: &shared.BrandRef{ID: 3}}

	inv, err := svc.Create(context.Background(), CreateInvoiceRequest{
		CustomerID:  77,
		InvoiceDate: invoiceDate,
		Items:       []ItemRequest{{ProductID: 1, Quantity: 1, Unit: "pcs", Price: 10}},
	}, tenant, nil)
	require.NoError(t, err)

	paid, err := svc.SetStatus(context.Background(), inv.ID, StatusPaid, tenant)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)

	_, err = svc.SetStatus(context.Background(), inv.ID, Status("VOID"), tenant)
	require.ErrorIs(t, err, httpx.ErrValidation)
}
