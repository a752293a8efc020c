package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nou-pos/nou/internal/activity"
	"github.com/nou-pos/nou/internal/auth"
	"github.com/nou-pos/nou/internal/bootstrap"
	"github.com/nou-pos/nou/internal/cashclosing"
	"github.com/nou-pos/nou/internal/observability"
	"github.com/nou-pos/nou/internal/platform/httpx"
	"github.com/nou-pos/nou/internal/rbac"
	"github.com/nou-pos/nou/internal/tenancy"
	"github.com/nou-pos/nou/internal/warranty"
	"github.com/nou-pos/nou/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Auth          *auth.Service
	Tenancy       *tenancy.Service
	Metrics       *observability.Metrics
	DomainMetrics *observability.DomainMetrics

	AuthHandler        *auth.Handler
	BootstrapHandler   *bootstrap.Handler
	TenancyHandler     *tenancy.Handler
	WarrantyHandler    *warranty.Handler
	CashClosingHandler *cashclosing.Handler
	ActivityHandler    *activity.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with NOU defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.BootstrapHandler != nil {
		r.Route("/functions", params.BootstrapHandler.MountRoutes)
	}

	if params.Auth == nil || params.Tenancy == nil {
		return r
	}
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireToken(params.Auth, params.Logger))

		// Reachable before the organization has its first branch.
		r.Group(func(r chi.Router) {
			r.Use(tenancy.RequireOrganizationScope(params.Tenancy, params.Auth, params.Logger, params.DomainMetrics))
			if params.TenancyHandler != nil {
				params.TenancyHandler.MountMe(r)
				r.Route("/branches", params.TenancyHandler.MountBranches)
			}
			if params.PermissionsHandler != nil {
				r.Route("/permissions", params.PermissionsHandler.MountRoutes)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(tenancy.RequireScope(params.Tenancy, params.Auth, params.Logger, params.DomainMetrics))
			if params.WarrantyHandler != nil {
				r.Route("/warranties", params.WarrantyHandler.MountRoutes)
			}
			if params.CashClosingHandler != nil {
				r.Route("/cash-closings", params.CashClosingHandler.MountRoutes)
			}
			if params.ActivityHandler != nil {
				r.Route("/activities", params.ActivityHandler.MountRoutes)
			}
		})
	})

	return r
}
