package reports

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-erp/meridian/internal/brand"
)

type Service struct {
	repo  Repository
	scope *brand.ScopeResolver
	group singleflight.Group
}

func NewService(repo Repository, scope *brand.ScopeResolver) *Service {
	return &Service{repo: repo, scope: scope}
}

// SalesSummary aggregates per-brand totals for the date range. The requested
// brand ids pass through the scope resolver first; a caller can never widen
// the report beyond the brands they may see. Concurrent identical requests
// share a single aggregate query.
func (s *Service) SalesSummary(ctx context.Context, userID *int64, roles []string, requested []int64, from, to time.Time) ([]BrandSummary, error) {
	allowed, err := s.scope.ResolveAllowedBrandIDs(ctx, userID, roles, requested)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 {
		return []BrandSummary{}, nil
	}

	key := summaryKey(allowed, from, to)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.repo.SalesSummary(context.WithoutCancel(ctx), allowed, from, to)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]BrandSummary), nil
	}
}

func summaryKey(allowed []int64, from, to time.Time) string {
	key := fmt.Sprintf("%s|%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	for _, id := range allowed {
		key += fmt.Sprintf("|%d", id)
	}
	return key
}
