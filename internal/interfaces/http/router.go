// Package http exposes the notation engine and the monomer catalog over a
// chi router.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/internal/interfaces/http/handlers"
	"github.com/turtacn/helmkit/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	NotationHandler *handlers.NotationHandler
	MonomerHandler  *handlers.MonomerHandler
	HealthHandler   *handlers.HealthHandler

	CORS    *middleware.CORSConfig
	Logging middleware.LoggingConfig

	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter builds the route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics(cfg.Metrics))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))

	if h := cfg.HealthHandler; h != nil {
		r.Get("/healthz", h.Liveness)
		r.Get("/readyz", h.Readiness)
		r.Get("/health", h.Detailed)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerNotationRoutes(api, cfg.NotationHandler)
		registerMonomerRoutes(api, cfg.MonomerHandler)
	})
	return r
}

func registerNotationRoutes(r chi.Router, h *handlers.NotationHandler) {
	if h == nil {
		return
	}
	r.Route("/notations", func(nr chi.Router) {
		nr.Post("/validate", h.Validate)
		nr.Post("/count", h.Count)
		nr.Post("/canonical", h.Canonical)
		nr.Post("/smiles", h.SMILES)
		nr.Post("/properties", h.Properties)
		nr.Post("/sequences", h.Sequences)
		nr.Post("/analyze", h.Analyze)
		nr.Post("/convert", h.Convert)
	})
}

func registerMonomerRoutes(r chi.Router, h *handlers.MonomerHandler) {
	if h == nil {
		return
	}
	r.Route("/monomers", func(mr chi.Router) {
		mr.Get("/", h.List)
		mr.Get("/{type}/{symbol}", h.Get)
	})
}
