package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/shopdesk/internal/auth"
	"github.com/odyssey-erp/shopdesk/internal/observability"
	"github.com/odyssey-erp/shopdesk/internal/platform/httpx"
)

// RouteMounter is implemented by every API handler.
type RouteMounter interface {
	MountRoutes(r chi.Router)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Verifier *auth.Verifier
	Metrics  *observability.Metrics

	// Handlers are mounted under /api behind token verification.
	Handlers []RouteMounter
	// Live serves the WebSocket endpoint; it authenticates on its own.
	Live http.Handler
	// JobsHealth reports worker queue health.
	JobsHealth http.Handler
	// Ready reports dependency health for /healthz; nil means always ready.
	Ready func(r *http.Request) error
}

// NewRouter constructs the chi.Router.
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
		if params.Ready != nil {
			if err := params.Ready(r); err != nil {
				params.Logger.Warn("health check failed", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.Live != nil {
		r.Method(http.MethodGet, "/live", params.Live)
	}

	r.Route("/api", func(api chi.Router) {
		for _, mw := range apiMiddleware(params.Config) {
			api.Use(mw)
		}
		api.Use(auth.Middleware(params.Verifier, params.Logger))
		for _, h := range params.Handlers {
			if h != nil {
				h.MountRoutes(api)
			}
		}
	})

	if params.JobsHealth != nil {
		r.Route("/jobs", func(jr chi.Router) {
			jr.Use(auth.Middleware(params.Verifier, params.Logger))
			jr.Method(http.MethodGet, "/health", params.JobsHealth)
		})
	}

	return r
}
