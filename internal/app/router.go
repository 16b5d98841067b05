package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tillpoint/tillpoint/internal/auth"
	"github.com/tillpoint/tillpoint/internal/credit"
	"github.com/tillpoint/tillpoint/internal/inventory"
	"github.com/tillpoint/tillpoint/internal/masterdata"
	"github.com/tillpoint/tillpoint/internal/observability"
	"github.com/tillpoint/tillpoint/internal/org"
	"github.com/tillpoint/tillpoint/internal/procurement"
	"github.com/tillpoint/tillpoint/internal/sales"
	"github.com/tillpoint/tillpoint/internal/settings"
	"github.com/tillpoint/tillpoint/internal/shared"
	"github.com/tillpoint/tillpoint/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	ContextResolver *auth.ContextResolver

	AuthHandler        *auth.Handler
	OrgHandler         *org.Handler
	UsersHandler       *users.Handler
	SettingsHandler    *settings.Handler
	MasterDataHandler  *masterdata.Handler
	InventoryHandler   *inventory.Handler
	SalesHandler       *sales.Handler
	CreditHandler      *credit.Handler
	ProcurementHandler *procurement.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router for the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Everything below requires a resolved tenant context.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireContext(params.ContextResolver, params.Logger))

		r.Route("/org", params.OrgHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/settings", params.SettingsHandler.MountRoutes)
		params.MasterDataHandler.MountRoutes(r)
		r.Route("/products", params.InventoryHandler.MountRoutes)
		r.Route("/sales", params.SalesHandler.MountRoutes)
		r.Route("/credit-sales", params.CreditHandler.MountRoutes)
		r.Route("/purchases", params.ProcurementHandler.MountRoutes)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
