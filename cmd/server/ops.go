package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventdesk/internal/platform/redis"
	"eventdesk/pkg/platform/httputil"
)

const healthTimeout = 2 * time.Second

type healthCheck func(ctx context.Context) error

// healthChecks lists the backends readiness depends on. In-memory
// deployments have none.
func healthChecks(pool *pgxpool.Pool, cache *redis.Client) map[string]healthCheck {
	checks := map[string]healthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if cache != nil {
		checks["redis"] = cache.Health
	}
	return checks
}

func registerOpsRoutes(r chi.Router, gatherer prometheus.Gatherer, checks map[string]healthCheck) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				body[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}
		body["status"] = "ok"
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		httputil.WriteJSON(w, status, body)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
