package quotations

import (
	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian/internal/rbac"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleSales, rbac.ActionView))
		r.Get("/quotations", h.List)
		r.Get("/quotations/next-number", h.NextNumber)
		r.Get("/quotations/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleSales, rbac.ActionCreate))
		r.Post("/quotations", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleSales, rbac.ActionEdit))
		r.Put("/quotations/{id}", h.Update)
		r.Post("/quotations/{id}/send", h.Send)
	})
}
