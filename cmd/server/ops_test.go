package main

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"eventdesk/internal/platform/metrics"
	"eventdesk/pkg/testutil"
)

func TestHealth(t *testing.T) {
	t.Run("in-memory deployment is healthy", func(t *testing.T) {
		r := chi.NewRouter()
		registerOpsRoutes(r, prometheus.NewRegistry(), healthChecks(nil, nil))

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/health"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "ok")
	})

	t.Run("failing backend degrades", func(t *testing.T) {
		r := chi.NewRouter()
		registerOpsRoutes(r, prometheus.NewRegistry(), map[string]healthCheck{
			"postgres": func(context.Context) error { return errors.New("connection refused") },
		})

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/health"))
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		body := testutil.UnmarshalErrorResponse(t, rr)
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "unavailable", body["postgres"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	m.IncrementRegistrationsCreated()

	r := chi.NewRouter()
	registerOpsRoutes(r, registry, nil)

	rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, rr.Body.String(), "registrations_created_total")
}
