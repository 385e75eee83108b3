package brand

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian/internal/audit"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/platform/storage"
	"github.com/meridian-erp/meridian/internal/rbac"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Handler exposes brand profile endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	active    *ActiveResolver
	store     *storage.Store
	recorder  audit.Recorder
	cookieTTL time.Duration
	validator *validator.Validate
	rbac      rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, active *ActiveResolver, store *storage.Store, recorder audit.Recorder, cookieTTL time.Duration, rbacMW rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		active:    active,
		store:     store,
		recorder:  recorder,
		cookieTTL: cookieTTL,
		validator: validator.New(),
		rbac:      rbacMW,
	}
}

// MountRoutes registers brand profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/brand-profiles/activate", h.Activate)
	r.Get("/brand-profiles/active", h.Active)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleBrands, rbac.ActionView))
		r.Get("/brand-profiles", h.List)
		r.Get("/brand-profiles/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireElevated())
		r.Post("/brand-profiles", h.Create)
		r.Put("/brand-profiles/{id}", h.Update)
		r.Post("/brand-profiles/{id}/set-active", h.SetGlobalActive)
		r.Post("/brand-profiles/{id}/logo", h.UploadLogo)
		r.Post("/brand-profiles/{id}/scopes", h.GrantScope)
		r.Delete("/brand-profiles/{id}/scopes/{userID}", h.RevokeScope)
	})
}

type activateRequest struct {
	Slug string `json:"slug" validate:"required"`
}

// Activate resolves the slug, authorizes the caller, and sets the
// working-brand cookie.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "slug is required")
		return
	}

	principal := shared.PrincipalFromContext(r.Context())
	var userID *int64
	var roles []string
	if principal != nil {
		userID = &principal.UserID
		roles = principal.Roles
	}

	profile, err := h.service.Activate(r.Context(), userID, roles, req.Slug)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	WriteCookie(w, profile.Slug, h.cookieTTL)
	h.record(r, principal, "brand.activate", profile.ID, map[string]any{"slug": profile.Slug})
	httpx.JSON(w, http.StatusOK, profile)
}

// Active returns the resolved active brand, or null when none exists.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	var userID *int64
	var roles []string
	if principal != nil {
		userID = &principal.UserID
		roles = principal.Roles
	}
	profile := h.active.Resolve(r.Context(), userID, roles, SlugFromRequest(r))
	httpx.JSON(w, http.StatusOK, profile)
}

// List returns all brand profiles.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list brand profiles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profiles)
}

// Show returns one brand profile.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	profile, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

type profileRequest struct {
	Name           string            `json:"name" validate:"required,min=2,max=100"`
	EnabledModules map[string]bool   `json:"enabled_modules,omitempty"`
	Defaults       map[string]string `json:"defaults,omitempty"`
}

// Create inserts a new brand profile.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	profile, err := h.service.Create(r.Context(), req.Name, req.EnabledModules, req.Defaults)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.record(r, shared.PrincipalFromContext(r.Context()), "brand.create", profile.ID, map[string]any{"slug": profile.Slug})
	httpx.JSON(w, http.StatusCreated, profile)
}

// Update replaces mutable fields.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Name           string            `json:"name,omitempty"`
		EnabledModules map[string]bool   `json:"enabled_modules,omitempty"`
		Defaults       map[string]string `json:"defaults,omitempty"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profile, err := h.service.Update(r.Context(), id, req.Name, nil, req.EnabledModules, req.Defaults)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.record(r, shared.PrincipalFromContext(r.Context()), "brand.update", profile.ID, nil)
	httpx.JSON(w, http.StatusOK, profile)
}

// SetGlobalActive makes one profile the system-wide default.
func (h *Handler) SetGlobalActive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	profile, err := h.service.SetGlobalActive(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.record(r, shared.PrincipalFromContext(r.Context()), "brand.set_active", profile.ID, map[string]any{"slug": profile.Slug})
	httpx.JSON(w, http.StatusOK, profile)
}

// UploadLogo stores a logo asset under a random filename and attaches it to
// the profile.
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "logo file is required")
		return
	}
	defer file.Close()

	name, err := h.store.Save(header.Filename, file)
	if err != nil {
		h.logger.Error("store logo", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	profile, err := h.service.Update(r.Context(), id, "", &name, nil, nil)
	if err != nil {
		_ = h.store.Remove(name)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

type scopeRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// GrantScope gives a user access to this brand.
func (h *Handler) GrantScope(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	var req scopeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if err := h.service.GrantScope(r.Context(), req.UserID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.record(r, shared.PrincipalFromContext(r.Context()), "brand.grant_scope", id, map[string]any{"user_id": req.UserID})
	httpx.JSON(w, http.StatusCreated, map[string]bool{"granted": true})
}

// RevokeScope removes a user's access to this brand.
func (h *Handler) RevokeScope(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.service.RevokeScope(r.Context(), userID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.record(r, shared.PrincipalFromContext(r.Context()), "brand.revoke_scope", id, map[string]any{"user_id": userID})
	httpx.JSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid brand profile id")
		return 0, false
	}
	return id, true
}

func (h *Handler) record(r *http.Request, principal *shared.Principal, action string, brandID int64, meta map[string]any) {
	if h.recorder == nil {
		return
	}
	entry := audit.Entry{
		Action:    action,
		Entity:    "brand_profile",
		EntityID:  strconv.FormatInt(brandID, 10),
		Meta:      meta,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if principal != nil {
		entry.ActorID = &principal.UserID
	}
	h.recorder.Record(r.Context(), entry)
}
