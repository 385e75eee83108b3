package numbering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	seqs     map[string]int64
	existing map[string]bool
	probes   int
	err      error
}

func key(brandID int64, kind Kind, period string) string {
	return Format(kind, period, brandID)
}

func (s *stubRepo) NextSequence(_ context.Context, brandID int64, kind Kind, period string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.seqs == nil {
		s.seqs = map[string]int64{}
	}
	s.seqs[key(brandID, kind, period)]++
	return s.seqs[key(brandID, kind, period)], nil
}

func (s *stubRepo) PeekSequence(_ context.Context, brandID int64, kind Kind, period string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.seqs[key(brandID, kind, period)] + 1, nil
}

func (s *stubRepo) OrderNumberExists(_ context.Context, number string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.probes++
	return s.existing[number], nil
}

func TestNextSequentialFormats(t *testing.T) {
	repo := &stubRepo{seqs: map[string]int64{key(1, KindQuotation, "2025"): 3}}
	svc := NewService(repo)
	at := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

	got, err := svc.Next(context.Background(), 1, KindQuotation, at)
	require.NoError(t, err)
	assert.Equal(t, "QUO-2025-0004", got)

	got, err = svc.Next(context.Background(), 1, KindInvoice, at)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0001", got)

	got, err = svc.Next(context.Background(), 1, KindPurchase, at)
	require.NoError(t, err)
	assert.Equal(t, "PL-202503-0001", got)
}

func TestSequencesIndependentPerBrandAndPeriod(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)
	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	a, err := svc.Next(context.Background(), 1, KindPurchase, jan)
	require.NoError(t, err)
	b, err := svc.Next(context.Background(), 1, KindPurchase, feb)
	require.NoError(t, err)
	c, err := svc.Next(context.Background(), 2, KindPurchase, jan)
	require.NoError(t, err)

	assert.Equal(t, "PL-202501-0001", a)
	assert.Equal(t, "PL-202502-0001", b)
	assert.Equal(t, "PL-202501-0001", c)
}

func TestPeekDoesNotAdvance(t *testing.T) {
	repo := &stubRepo{seqs: map[string]int64{key(1, KindInvoice, "2025"): 7}}
	svc := NewService(repo)
	at := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		got, err := svc.Peek(context.Background(), 1, KindInvoice, at)
		require.NoError(t, err)
		assert.Equal(t, "INV-2025-0008", got)
	}
}

func TestOrderNumberRetriesOnCollision(t *testing.T) {
	repo := &stubRepo{existing: map[string]bool{"SO-2025-0001": true}}
	svc := NewService(repo)
	draws := []int{1, 1, 42}
	svc.rnd = func(int) int {
		n := draws[0]
		draws = draws[1:]
		return n
	}

	got, err := svc.Next(context.Background(), 1, KindSalesOrder, time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "SO-2025-0042", got)
	assert.Equal(t, 3, repo.probes)
}

func TestOrderNumberExhaustsAttempts(t *testing.T) {
	repo := &stubRepo{existing: map[string]bool{"SO-2025-0007": true}}
	svc := NewService(repo)
	svc.rnd = func(int) int { return 7 }

	_, err := svc.Next(context.Background(), 1, KindSalesOrder, time.Date(2025, time.May, 2, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, ErrNumberExhausted)
	assert.Equal(t, orderNumberAttempts, repo.probes)
}

func TestRepoErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&stubRepo{err: boom})

	_, err := svc.Next(context.Background(), 1, KindQuotation, time.Now())
	require.ErrorIs(t, err, boom)

	_, err = svc.Next(context.Background(), 1, KindSalesOrder, time.Now())
	require.ErrorIs(t, err, boom)
}
