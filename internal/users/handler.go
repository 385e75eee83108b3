package users

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
		r.Use(h.rbac.Require(rbac.ModuleUsers, rbac.ActionView))
		r.Get("/users", h.List)
		r.Get("/users/pending", h.ListPending)
		r.Get("/users/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleUsers, rbac.ActionApprove))
		r.Post("/users/{id}/approve", h.Approve)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleUsers, rbac.ActionEdit))
		r.Post("/users/{id}/roles", h.AssignRole)
		r.Delete("/users/{id}/roles/{roleID}", h.RemoveRole)
		r.Put("/users/{id}/default-brand", h.SetDefaultBrand)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context(), false)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.List(r.Context(), true)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	account, err := h.service.Approve(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.record(r, "user.approve", id, map[string]any{"email": account.Email})
	httpx.JSON(w, http.StatusOK, account)
}

type assignRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "role_id is required")
		return
	}
	if err := h.service.AssignRole(r.Context(), id, req.RoleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.record(r, "user.assign_role", id, map[string]any{"role_id": req.RoleID})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid role id")
		return
	}
	if err := h.service.RemoveRole(r.Context(), id, roleID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.record(r, "user.remove_role", id, map[string]any{"role_id": roleID})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type defaultBrandRequest struct {
	BrandProfileID *int64 `json:"brand_profile_id"`
}

func (h *Handler) SetDefaultBrand(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req defaultBrandRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, err := h.service.SetDefaultBrand(r.Context(), id, req.BrandProfileID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.record(r, "user.set_default_brand", id, map[string]any{"brand_profile_id": req.BrandProfileID})
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) record(r *http.Request, action string, id int64, meta map[string]any) {
	if h.recorder == nil {
		return
	}
	var actorID *int64
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		actorID = &p.UserID
	}
	h.recorder.Record(r.Context(), audit.Entry{
		ActorID:   actorID,
		Action:    action,
		Entity:    "user",
		EntityID:  strconv.FormatInt(id, 10),
		Meta:      meta,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
