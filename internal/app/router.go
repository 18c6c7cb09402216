package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carecrm/carecrm/internal/catalog"
	"github.com/carecrm/carecrm/internal/customers"
	"github.com/carecrm/carecrm/internal/dashboard"
	"github.com/carecrm/carecrm/internal/exchange"
	"github.com/carecrm/carecrm/internal/observability"
	"github.com/carecrm/carecrm/internal/orders"
	"github.com/carecrm/carecrm/internal/settings"
	"github.com/carecrm/carecrm/jobs"
	"github.com/carecrm/carecrm/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	CustomerHandler  *customers.Handler
	OrderHandler     *orders.Handler
	SettingsHandler  *settings.Handler
	DashboardHandler *dashboard.Handler
	ExchangeHandler  *exchange.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with carecrm defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
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
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.CustomerHandler != nil {
			r.Route("/customers", params.CustomerHandler.MountRoutes)
		}
		if params.OrderHandler != nil {
			r.Route("/orders", params.OrderHandler.MountRoutes)
		}
		if params.CatalogHandler != nil {
			r.Route("/products", params.CatalogHandler.MountRoutes)
		}
		if params.SettingsHandler != nil || params.CatalogHandler != nil {
			r.Route("/settings", func(r chi.Router) {
				if params.SettingsHandler != nil {
					params.SettingsHandler.MountRoutes(r)
				}
				if params.CatalogHandler != nil {
					r.Route("/products", params.CatalogHandler.MountSettingsRoutes)
				}
			})
		}
		if params.ExchangeHandler != nil {
			params.ExchangeHandler.MountRoutes(r)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
		return r
	}
	fileServer := http.FileServer(http.FS(staticFS))
	r.Handle("/static/*", staticCacheHandler(http.StripPrefix("/static/", fileServer)))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, staticFS, "index.html")
	})

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
