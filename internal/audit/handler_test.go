package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/rbac"
	"github.com/meridian-erp/meridian/internal/shared"
)

type stubTimelineRepo struct {
	rows        []Row
	total       int
	lastFilters TimelineFilters
}

func (s *stubTimelineRepo) Insert(ctx context.Context, entry Entry) error { return nil }

func (s *stubTimelineRepo) Timeline(ctx context.Context, filters TimelineFilters) ([]Row, int, error) {
	s.lastFilters = filters
	return s.rows, s.total, nil
}

func timelineRouter(t *testing.T, repo Repository, principal *shared.Principal) http.Handler {
	t.Helper()
	h := NewHandler(NewService(repo, nil, nil), rbac.Middleware{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), principal)))
		})
	})
	h.MountRoutes(r)
	return r
}

func TestTimelineListsEntriesForElevated(t *testing.T) {
	repo := &stubTimelineRepo{
		rows: []Row{{
			ID:       1,
			Action:   "quotation.convert",
			Entity:   "quotation",
			EntityID: "10",
			At:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}},
		total: 1,
	}
	router := timelineRouter(t, repo, &shared.Principal{UserID: 1, Roles: []string{rbac.RoleAdmin}})

	req := httptest.NewRequest(http.MethodGet, "/activity?entity=quotation&actor_id=5&page=2&page_size=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"quotation.convert"`)
	assert.Equal(t, "quotation", repo.lastFilters.Entity)
	require.NotNil(t, repo.lastFilters.ActorID)
	assert.Equal(t, int64(5), *repo.lastFilters.ActorID)
	assert.Equal(t, 2, repo.lastFilters.Page)
	assert.Equal(t, 10, repo.lastFilters.PageSize)
}

func TestTimelineForbiddenForNonElevated(t *testing.T) {
	repo := &stubTimelineRepo{}
	router := timelineRouter(t, repo, &shared.Principal{UserID: 9, Roles: []string{rbac.RoleStaff}})

	req := httptest.NewRequest(http.MethodGet, "/activity", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTimelineUnauthenticated(t *testing.T) {
	router := timelineRouter(t, &stubTimelineRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/activity", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
