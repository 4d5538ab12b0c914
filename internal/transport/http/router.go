// Package httptransport assembles the public HTTP surface. It delegates to
// the module handlers so transport concerns remain isolated from business
// logic.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attest/internal/platform/metrics"
	"attest/internal/transport/http/shared"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// NewRouter wires the operational endpoints and mounts each module's routes.
// httpMetrics may be nil; tests build routers without touching the default
// prometheus registry.
func NewRouter(health map[string]HealthCheck, httpMetrics *metrics.HTTP, registrars ...Registrar) http.Handler {
	r := chi.NewRouter()
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(health))
		for name, check := range health {
			if err := check(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		shared.WriteJSON(w, status, checks)
	})
	r.Handle("/metrics", promhttp.Handler())

	for _, registrar := range registrars {
		registrar.Register(r)
	}
	return r
}
