// Package http wires the chi router, middleware chain, and HTTP server for
// the case compliance API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
	"github.com/medregula/casetrack/internal/interfaces/http/handlers"
	"github.com/medregula/casetrack/internal/interfaces/http/middleware"
)

// RouterConfig aggregates everything the router needs.  MetricsHandler and
// MetricsRecorder are optional; when nil the /metrics endpoint and request
// instrumentation are omitted.
type RouterConfig struct {
	Logger    logging.Logger
	Case      *handlers.CaseHandler
	Dashboard *handlers.DashboardHandler
	Admin     *handlers.AdminHandler
	Health    *handlers.HealthHandler

	MetricsHandler  http.Handler
	MetricsRecorder middleware.HTTPRecorder
}

// NewRouter builds the full route tree.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogging(cfg.Logger, middleware.DefaultLoggingConfig()))
	if cfg.MetricsRecorder != nil {
		r.Use(middleware.Metrics(cfg.MetricsRecorder))
	}

	r.Get("/healthz", cfg.Health.Liveness)
	r.Get("/readyz", cfg.Health.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cases", func(r chi.Router) {
			r.Post("/", cfg.Case.Create)
			r.Get("/{caseID}", cfg.Case.Get)
			r.Get("/{caseID}/deadline", cfg.Case.Deadline)
			r.Post("/{caseID}/complete", cfg.Case.Complete)
			r.Post("/{caseID}/cancel", cfg.Case.Cancel)
			r.Post("/{caseID}/recompute", cfg.Case.Recompute)
			r.Post("/{caseID}/alert/ack", cfg.Case.AcknowledgeAlert)
		})
		r.Put("/executions/{executionID}", cfg.Case.RecordExecution)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/overview", cfg.Dashboard.Overview)
			r.Get("/approaching", cfg.Dashboard.Approaching)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", cfg.Admin.TriggerSweep)
		})
	})

	return r
}
