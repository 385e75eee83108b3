package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/rbac"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Handler serves the activity timeline.
type Handler struct {
	service *Service
	guard   rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, guard rbac.Middleware) *Handler {
	return &Handler{service: service, guard: guard}
}

// MountRoutes registers the timeline route. The activity log spans every
// module, so it is an elevated-only surface.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireElevated())
		r.Get("/activity", h.Timeline)
	})
}

// Timeline lists activity rows, newest first, with optional filters.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	filters := TimelineFilters{Page: 1, PageSize: 20}
	qs := r.URL.Query()
	filters.Entity = qs.Get("entity")
	filters.Action = qs.Get("action")
	if v := qs.Get("actor_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.ActorID = &id
		}
	}
	if v := qs.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filters.Page = n
		}
	}
	if v := qs.Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			filters.PageSize = n
		}
	}

	rows, total, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries":    rows,
		"pagination": shared.NewPagination(filters.Page, filters.PageSize, total),
	})
}
