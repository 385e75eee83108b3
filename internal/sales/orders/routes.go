package orders

import (
	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian/internal/rbac"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleSales, rbac.ActionView))
		r.Get("/sales-orders", h.List)
		r.Get("/sales-orders/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.ModuleSales, rbac.ActionCreate))
		r.Post("/sales-orders", h.Create)
		r.Post("/quotations/{id}/convert-to-so", h.Convert)
	})
}
