package invoices

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
		r.Use(h.rbac.Require(rbac.ModuleSales, rbac.ActionView))
		r.Get("/invoices", h.List)
		r.Get("/invoices/next-number", h.NextNumber)
		r.Get("/invoices/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleSales, rbac.ActionCreate))
		r.Post("/invoices", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleSales, rbac.ActionEdit))
		r.Post("/invoices/{id}/status", h.SetStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleSales, rbac.ActionDelete))
		r.Delete("/invoices/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListInvoicesRequest{Limit: 50}
	qs := r.URL.Query()
	if v := qs.Get("customer_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.CustomerID = &id
		}
	}
	if v := qs.Get("status"); v != "" {
		st := Status(v)
		req.Status = &st
	}
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
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": rows, "total": total})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	inv, err := h.service.Get(r.Context(), id, shared.TenantFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
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
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "a sales order reference or customer and items are required")
		return
	}

	principal := shared.PrincipalFromContext(r.Context())
	var createdBy *int64
	if principal != nil {
		createdBy = &principal.UserID
	}

	inv, err := h.service.Create(r.Context(), req, shared.TenantFromContext(r.Context()), createdBy)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.record(r, principal, "invoice.create", inv.ID, map[string]any{"number": inv.Number})
	httpx.JSON(w, http.StatusCreated, inv)
}

type statusRequest struct {
	Status Status `json:"status" validate:"required"`
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "status is required")
		return
	}

	inv, err := h.service.SetStatus(r.Context(), id, req.Status, shared.TenantFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.record(r, shared.PrincipalFromContext(r.Context()), "invoice.status", inv.ID, map[string]any{"status": inv.Status})
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	if err := h.service.Delete(r.Context(), id, shared.TenantFromContext(r.Context())); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.record(r, shared.PrincipalFromContext(r.Context()), "invoice.delete", id, nil)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) record(r *http.Request, principal *shared.Principal, action string, id int64, meta map[string]any) {
	if h.recorder == nil {
		return
	}
	var actorID *int64
	if principal != nil {
		actorID = &principal.UserID
	}
	h.recorder.Record(r.Context(), audit.Entry{
		ActorID:   actorID,
		Action:    action,
		Entity:    "invoice",
		EntityID:  strconv.FormatInt(id, 10),
		Meta:      meta,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
