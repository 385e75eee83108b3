package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/meridian-erp/meridian/internal/audit"
	"github.com/meridian-erp/meridian/internal/auth"
	"github.com/meridian-erp/meridian/internal/brand"
	"github.com/meridian-erp/meridian/internal/notifications"
	"github.com/meridian-erp/meridian/internal/purchasing"
	"github.com/meridian-erp/meridian/internal/rbac"
	"github.com/meridian-erp/meridian/internal/reports"
	"github.com/meridian-erp/meridian/internal/sales/invoices"
	"github.com/meridian-erp/meridian/internal/sales/orders"
	"github.com/meridian-erp/meridian/internal/sales/quotations"
	"github.com/meridian-erp/meridian/internal/users"
	"github.com/meridian-erp/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Tokens *auth.TokenManager
	Scope  *brand.ScopeResolver
	Active *brand.ActiveResolver

	AuthHandler          *auth.Handler
	BrandHandler         *brand.Handler
	RolesHandler         *rbac.Handler
	UsersHandler         *users.Handler
	QuotationsHandler    *quotations.Handler
	OrdersHandler        *orders.Handler
	InvoicesHandler      *invoices.Handler
	PurchasingHandler    *purchasing.Handler
	ReportsHandler       *reports.Handler
	NotificationsHandler *notifications.Handler
	ActivityHandler      *audit.Handler
	JobHandler           *jobs.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
		Tokens: params.Tokens,
		Scope:  params.Scope,
		Active: params.Active,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
			params.AuthHandler.MountRoutes(r)
		})
		params.BrandHandler.MountRoutes(r)
		params.RolesHandler.MountRoutes(r)
		params.UsersHandler.MountRoutes(r)
		params.QuotationsHandler.MountRoutes(r)
		params.OrdersHandler.MountRoutes(r)
		params.InvoicesHandler.MountRoutes(r)
		params.PurchasingHandler.MountRoutes(r)
		params.ReportsHandler.MountRoutes(r)
		params.NotificationsHandler.MountRoutes(r)
		params.ActivityHandler.MountRoutes(r)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
