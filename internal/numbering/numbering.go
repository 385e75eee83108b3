// Package numbering generates human-readable document numbers scoped by
// brand and period.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Kind identifies a numbered document series.
type Kind string

const (
	KindQuotation  Kind = "QUO"
	KindSalesOrder Kind = "SO"
	KindInvoice    Kind = "INV"
	KindPurchase   Kind = "PL"
)

// ErrNumberExhausted is returned when the random sales-order suffix keeps
// colliding across the bounded retry budget. Under realistic per-tenant
// write volume this does not happen; under contention it surfaces as a hard
// failure by design of the scheme.
var ErrNumberExhausted = errors.New("numbering: exhausted sales order number attempts")

const orderNumberAttempts = 5

// Repository provides the sequence and probe primitives.
type Repository interface {
	// NextSequence atomically increments and returns the sequence for
	// (brand, kind, period).
	NextSequence(ctx context.Context, brandID int64, kind Kind, period string) (int64, error)
	// PeekSequence returns what NextSequence would return, without
	// incrementing.
	PeekSequence(ctx context.Context, brandID int64, kind Kind, period string) (int64, error)
	// OrderNumberExists probes for an existing sales order with the number.
	OrderNumberExists(ctx context.Context, number string) (bool, error)
}

// Service formats document numbers.
type Service struct {
	repo Repository
	rnd  func(n int) int
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, rnd: func(n int) int { return rand.IntN(n) }}
}

// Next reserves and returns the next number of the given kind for the brand
// and period date. Quotations and invoices use a yearly sequence, direct
// purchases a monthly one. Sales orders use a random 4-digit suffix probed
// for collisions instead of a sequence.
func (s *Service) Next(ctx context.Context, brandID int64, kind Kind, at time.Time) (string, error) {
	if kind == KindSalesOrder {
		return s.nextOrderNumber(ctx, at)
	}
	p := Period(kind, at)
	seq, err := s.repo.NextSequence(ctx, brandID, kind, p)
	if err != nil {
		return "", fmt.Errorf("numbering: next %s sequence: %w", kind, err)
	}
	return Format(kind, p, seq), nil
}

// Peek returns the number Next would produce, without reserving it. For
// sales orders the returned candidate is not reserved either way.
func (s *Service) Peek(ctx context.Context, brandID int64, kind Kind, at time.Time) (string, error) {
	if kind == KindSalesOrder {
		return s.nextOrderNumber(ctx, at)
	}
	p := Period(kind, at)
	seq, err := s.repo.PeekSequence(ctx, brandID, kind, p)
	if err != nil {
		return "", fmt.Errorf("numbering: peek %s sequence: %w", kind, err)
	}
	return Format(kind, p, seq), nil
}

func (s *Service) nextOrderNumber(ctx context.Context, at time.Time) (string, error) {
	year := at.Format("2006")
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number := fmt.Sprintf("%s-%s-%04d", KindSalesOrder, year, s.rnd(10000))
		exists, err := s.repo.OrderNumberExists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("numbering: probe order number: %w", err)
		}
		if !exists {
			return number, nil
		}
	}
	return "", ErrNumberExhausted
}

// Period returns the sequence period string for a kind at a point in time.
func Period(kind Kind, at time.Time) string {
	if kind == KindPurchase {
		return at.Format("200601")
	}
	return at.Format("2006")
}

// Format renders a document number from its parts.
func Format(kind Kind, period string, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", kind, period, seq)
}
