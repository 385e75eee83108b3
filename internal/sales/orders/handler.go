package orders

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

// Handler exposes sales order endpoints, including the conversion entry
// point mounted under /quotations.
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

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	quotationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid quotation id")
		return
	}

	principal := shared.PrincipalFromContext(r.Context())
	var actorID *int64
	if principal != nil {
		actorID = &principal.UserID
	}

	order, err := h.service.ConvertFromQuotation(r.Context(), quotationID, shared.TenantFromContext(r.Context()), actorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.record(r, principal, "order.convert", order.ID, map[string]any{
		"number":       order.Number,
		"quotation_id": quotationID,
	})
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListOrdersRequest{Limit: 50}
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
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": rows, "total": total})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.service.Get(r.Context(), id, shared.TenantFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "customer, date and at least one item are required")
		return
	}

	principal := shared.PrincipalFromContext(r.Context())
	var createdBy *int64
	if principal != nil {
		createdBy = &principal.UserID
	}

	order, err := h.service.Create(r.Context(), req, shared.TenantFromContext(r.Context()), createdBy)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	h.record(r, principal, "order.create", order.ID, map[string]any{"number": order.Number})
	httpx.JSON(w, http.StatusCreated, order)
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
		Entity:    "sales_order",
		EntityID:  strconv.FormatInt(id, 10),
		Meta:      meta,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
