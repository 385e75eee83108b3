package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/notifications"
	"github.com/meridian-erp/meridian/internal/numbering"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/sales/quotations"
	"github.com/meridian-erp/meridian/internal/shared"
)

// clock hands out strictly increasing instants so updated_at comparisons
// behave like sequential database writes.
type clock struct{ t time.Time }

func (c *clock) tick() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type stubQuotationRepo struct {
	byID map[int64]*quotations.Quotation
	clk  *clock
}

func (s *stubQuotationRepo) WithTx(ctx context.Context, fn func(context.Context, quotations.Repository) error) error {
	return fn(ctx, s)
}

func (s *stubQuotationRepo) Get(_ context.Context, id int64, allowed []int64) (*quotations.Quotation, error) {
	q, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if allowed != nil {
		visible := false
		for _, b := range allowed {
			if b == q.BrandProfileID {
				visible = true
			}
		}
		if !visible {
			return nil, shared.ErrNotFound
		}
	}
	cp := *q
	cp.Items = append([]quotations.Item(nil), q.Items...)
	return &cp, nil
}

func (s *stubQuotationRepo) List(context.Context, quotations.ListQuotationsRequest, []int64) ([]quotations.QuotationWithCustomer, int, error) {
	return nil, 0, nil
}

func (s *stubQuotationRepo) Create(context.Context, quotations.Quotation) (int64, error) {
	return 0, nil
}

func (s *stubQuotationRepo) UpdateHeader(context.Context, int64, int64, time.Time, float64) error {
	return nil
}

func (s *stubQuotationRepo) UpdateStatus(_ context.Context, id int64, status quotations.Status) error {
	q := s.byID[id]
	q.Status = status
	q.UpdatedAt = s.clk.tick()
	return nil
}

func (s *stubQuotationRepo) InsertItem(context.Context, quotations.Item) (int64, error) {
	return 0, nil
}

func (s *stubQuotationRepo) DeleteItems(context.Context, int64) error { return nil }

type stubOrderRepo struct {
	orders map[int64]*SalesOrder
	items  map[int64][]Item
	nextID int64
	clk    *clock
}

func newStubOrderRepo(clk *clock) *stubOrderRepo {
	return &stubOrderRepo{orders: map[int64]*SalesOrder{}, items: map[int64][]Item{}, clk: clk}
}

func (s *stubOrderRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, s)
}

func (s *stubOrderRepo) Get(_ context.Context, id int64, allowed []int64) (*SalesOrder, error) {
	o, ok := s.orders[id]
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
	cp := *o
	cp.Items = append([]Item(nil), s.items[id]...)
	return &cp, nil
}

func (s *stubOrderRepo) GetByQuotationID(_ context.Context, quotationID int64) (*SalesOrder, error) {
	for id, o := range s.orders {
		if o.QuotationID != nil && *o.QuotationID == quotationID {
			cp := *o
			cp.Items = append([]Item(nil), s.items[id]...)
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubOrderRepo) List(context.Context, ListOrdersRequest, []int64) ([]OrderWithCustomer, int, error) {
	return nil, 0, nil
}

func (s *stubOrderRepo) Create(_ context.Context, o SalesOrder) (int64, error) {
	s.nextID++
	o.ID = s.nextID
	o.CreatedAt = s.clk.tick()
	o.UpdatedAt = o.CreatedAt
	s.orders[o.ID] = &o
	return o.ID, nil
}

func (s *stubOrderRepo) UpdateTotals(_ context.Context, id int64, customerID int64, total float64) error {
	o, ok := s.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	o.CustomerID = customerID
	o.TotalAmount = total
	o.UpdatedAt = s.clk.tick()
	return nil
}

func (s *stubOrderRepo) InsertItem(_ context.Context, item Item) (int64, error) {
	item.ID = int64(len(s.items[item.SalesOrderID]) + 1)
	s.items[item.SalesOrderID] = append(s.items[item.SalesOrderID], item)
	return item.ID, nil
}

func (s *stubOrderRepo) DeleteItems(_ context.Context, orderID int64) error {
	s.items[orderID] = nil
	return nil
}

type stubNumbers struct{ n int }

func (s *stubNumbers) Next(_ context.Context, _ int64, kind numbering.Kind, at time.Time) (string, error) {
	s.n++
	return numbering.Format(kind, at.Format("2006"), int64(s.n)), nil
}

type stubNotifier struct{ sent []notifications.Fanout }

func (s *stubNotifier) Notify(_ context.Context, f notifications.Fanout) { s.sent = append(s.sent, f) }
func (s *stubNotifier) FormatAmount(float64) string                      { return "1,250" }

func ptr[T any](v T) *T { return &v }

func fixture() (*Service, *stubQuotationRepo, *stubOrderRepo, *stubNotifier, *clock) {
	clk := &clock{t: time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)}
	quotes := &stubQuotationRepo{clk: clk, byID: map[int64]*quotations.Quotation{
		10: {
			ID:             10,
			Number:         "QUO-2025-0001",
			BrandProfileID: 3,
			CustomerID:     77,
			Status:         quotations.StatusSent,
			CreatedBy:      ptr(int64(5)),
			UpdatedAt:      clk.tick(),
			Items: []quotations.Item{
				{ProductID: 1, Quantity: 2, Unit: "pcs", Price: 500},
				{ProductID: 2, Quantity: 1, Unit: "pcs", Price: 250},
			},
		},
	}}
	ordersRepo := newStubOrderRepo(clk)
	notifier := &stubNotifier{}
	svc := NewService(ordersRepo, quotes, &stubNumbers{}, notifier)
	svc.now = func() time.Time { return clk.t }
	return svc, quotes, ordersRepo, notifier, clk
}

func tenantFor(brands ...int64) *shared.TenantContext {
	return &shared.TenantContext{AllowedBrandIDs: append([]int64{}, brands...)}
}

func TestConvertCreatesOrderAndConfirmsQuotation(t *testing.T) {
	svc, quotes, _, notifier, _ := fixture()

	order, err := svc.ConvertFromQuotation(context.Background(), 10, tenantFor(3), ptr(int64(9)))
	require.NoError(t, err)

	assert.Equal(t, quotations.StatusConfirmed, quotes.byID[10].Status)
	assert.Equal(t, StatusConfirmed, order.Status)
	assert.Equal(t, "SO-2025-0001", order.Number)
	assert.Equal(t, int64(3), order.BrandProfileID)
	assert.Equal(t, int64(77), order.CustomerID)
	require.NotNil(t, order.QuotationID)
	assert.Equal(t, int64(10), *order.QuotationID)

	require.Len(t, order.Items, 2)
	assert.Equal(t, 1000.0, order.Items[0].Subtotal)
	assert.Equal(t, 250.0, order.Items[1].Subtotal)
	assert.Equal(t, 1250.0, order.TotalAmount)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, []int64{5}, notifier.sent[0].UserIDs)
}

func TestConvertOutOfScopeLooksAbsent(t *testing.T) {
	svc, _, _, _, _ := fixture()

	_, err := svc.ConvertFromQuotation(context.Background(), 10, tenantFor(8), nil)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestConvertUnknownQuotation(t *testing.T) {
	svc, _, _, _, _ := fixture()

	_, err := svc.ConvertFromQuotation(context.Background(), 999, tenantFor(3), nil)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestReconvertWithoutNewerChangesConflicts(t *testing.T) {
	svc, _, ordersRepo, _, _ := fixture()

	first, err := svc.ConvertFromQuotation(context.Background(), 10, tenantFor(3), nil)
	require.NoError(t, err)

	_, err = svc.ConvertFromQuotation(context.Background(), 10, tenantFor(3), nil)
	require.ErrorIs(t, err, httpx.ErrConflict)

	// Nothing was touched by the rejected attempt.
	after, err := ordersRepo.Get(context.Background(), first.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, first.Items, after.Items)
}

func TestReconvertAfterQuotationEditReplacesItems(t *testing.T) {
	svc, quotes, _, _, clk := fixture()

	first, err := svc.ConvertFromQuotation(context.Background(), 10, tenantFor(3), nil)
	require.NoError(t, err)

	// Edit the quotation: one line, new price, newer updated_at.
	q := quotes.byID[10]
	q.Items = []quotations.Item{{ProductID: 3, Quantity: 4, Unit: "box", Price: 100}}
	q.UpdatedAt = clk.tick()

	second, err := svc.ConvertFromQuotation(context.Background(), 10, tenantFor(3), nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Number, second.Number)
	assert.Equal(t, first.OrderDate, second.OrderDate)
	require.Len(t, second.Items, 1)
	assert.Equal(t, int64(3), second.Items[0].ProductID)
	assert.Equal(t, 400.0, second.Items[0].Subtotal)
	assert.Equal(t, 400.0, second.TotalAmount)

	// A third attempt without further edits conflicts again.
	_, err = svc.ConvertFromQuotation(context.Background(), 10, tenantFor(3), nil)
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestConvertElevatedCallerSeesAllBrands(t *testing.T) {
	svc, _, _, _, _ := fixture()

	order, err := svc.ConvertFromQuotation(context.Background(), 10, &shared.TenantContext{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), order.BrandProfileID)
}
