package purchasing

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian/internal/audit"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/rbac"
	"github.com/meridian-erp/meridian/internal/shared"
)

type Handler struct {
	service   *Service
	recorder  audit.Recorder
	validator *validator.Validate
	rbac      rbac.Middleware
}

func NewHandler(service *Service, recorder audit.Recorder, rbacMW rbac.Middleware) *Handler {
	return &Handler{
		service:   service,
		recorder:  recorder,
		validator: validator.New(),
		rbac:      rbacMW,
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModulePurchasing, rbac.ActionView))
		r.Get("/purchases", h.List)
		r.Get("/purchases/next-number", h.NextNumber)
		r.Get("/purchases/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModulePurchasing, rbac.ActionCreate))
		r.Post("/purchases", h.Create)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListPurchasesRequest{Limit: 50}
	qs := r.URL.Query()
	req.Supplier = qs.Get("supplier")
	if v := qs.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			req.Limit = n
		}
	}
	if v := qs.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			req.Offset = n
		}
	}

	rows, total, err := h.service.List(r.Context(), req, shared.TenantFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchases": rows, "total": total})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid purchase id")
		return
	}
	p, err := h.service.Get(r.Context(), id, shared.TenantFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) NextNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.service.NextNumber(r.Context(), shared.TenantFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"number": number})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "supplier, date and at least one item are required")
		return
	}

	principal := shared.PrincipalFromContext(r.Context())
	var createdBy *int64
	if principal != nil {
		createdBy = &principal.UserID
	}

	p, err := h.service.Create(r.Context(), req, shared.TenantFromContext(r.Context()), createdBy)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	if h.recorder != nil {
		var actorID *int64
		if principal != nil {
			actorID = &principal.UserID
		}
		h.recorder.Record(r.Context(), audit.Entry{
			ActorID:   actorID,
			Action:    "purchase.create",
			Entity:    "purchase_direct",
			EntityID:  strconv.FormatInt(p.ID, 10),
			Meta:      map[string]any{"number": p.Number},
			IP:        r.RemoteAddr,
			UserAgent: r.UserAgent(),
		})
	}
	httpx.JSON(w, http.StatusCreated, p)
}
