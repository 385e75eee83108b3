package reports

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/rbac"
	"github.com/meridian-erp/meridian/internal/shared"
)

type Handler struct {
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{service: service, rbac: rbacMW}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleReports, rbac.ActionView))
		r.Get("/reports/sales-summary", h.SalesSummary)
	})
}

func (h *Handler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now
	if v := qs.Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "from must be yyyy-mm-dd")
			return
		}
		from = parsed
	}
	if v := qs.Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "to must be yyyy-mm-dd")
			return
		}
		to = parsed
	}

	var requested []int64
	if v := qs.Get("brand_ids"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				httpx.Fail(w, http.StatusBadRequest, "brand_ids must be a comma-separated list of ids")
				return
			}
			requested = append(requested, id)
		}
	}

	principal := shared.PrincipalFromContext(r.Context())
	var userID *int64
	var roles []string
	if principal != nil {
		userID = &principal.UserID
		roles = principal.Roles
	}

	summaries, err := h.service.SalesSummary(r.Context(), userID, roles, requested, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
		"brands": summaries,
	})
}
