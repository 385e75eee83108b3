package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian/internal/audit"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	Service  *Service
	Tokens   *TokenManager
	Audit    audit.Recorder
	Validate *validator.Validate
}

// MountRoutes registers the auth routes. Login and signup are public, logout
// and the session probe sit behind the authenticator.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.login)
	r.Post("/auth/signup", h.signup)
	r.Post("/auth/logout", h.logout)
	r.Get("/auth/me", h.me)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2"`
	Password string `json:"password" validate:"required,min=8"`
}

type sessionResponse struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.Service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Fail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		httpx.RespondError(w, err)
		return
	}

	roles := h.Service.RoleNames(r.Context(), user.ID)
	token, err := h.Tokens.Issue(user, roles)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.Tokens.WriteCookie(w, token)

	h.record(r, &user.ID, "auth.login", "user", strconv.FormatInt(user.ID, 10), nil)
	httpx.JSON(w, http.StatusOK, sessionResponse{ID: user.ID, Email: user.Email, Name: user.Name, Roles: roles})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "name, email and a password of at least 8 characters are required")
		return
	}

	user, err := h.Service.Signup(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.Fail(w, http.StatusConflict, "email already registered")
			return
		}
		httpx.RespondError(w, err)
		return
	}

	h.record(r, nil, "auth.signup", "user", strconv.FormatInt(user.ID, 10),
		map[string]any{"email": user.Email})
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":      user.ID,
		"email":   user.Email,
		"pending": true,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.Tokens.ClearCookie(w)
	if p := shared.PrincipalFromContext(r.Context()); p != nil {
		h.record(r, &p.UserID, "auth.logout", "user", strconv.FormatInt(p.UserID, 10), nil)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.Fail(w, http.StatusUnauthorized, "authentication required")
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{ID: p.UserID, Email: p.Email, Roles: p.Roles})
}

func (h *Handler) record(r *http.Request, actorID *int64, action, entity, entityID string, meta map[string]any) {
	if h.Audit == nil {
		return
	}
	h.Audit.Record(r.Context(), audit.Entry{
		ActorID:   actorID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Meta:      meta,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
