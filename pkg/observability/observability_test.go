// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreSafe(t *testing.T) {
	ctx := context.Background()
	var m *Metrics

	m.RecordAnalysis(ctx, "gemini-2.5-flash", "success", time.Second, 10, 5)
	m.RecordTransition(ctx, "analyzing")
	m.RecordStaleCompletion(ctx)
	m.AddSessions(ctx, 1)
	m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Millisecond)
}

func TestNoopManager(t *testing.T) {
	m := NoopManager()
	assert.NotNil(t, m.Tracer())
	assert.Nil(t, m.Metrics())
	assert.False(t, m.MetricsEnabled())
	assert.Equal(t, "/metrics", m.MetricsEndpoint())
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestConfigDefaultsAndValidation(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.Equal(t, ExporterOTLP, cfg.Tracing.Exporter)
	assert.Equal(t, 1.0, cfg.Tracing.SamplingRate)
	assert.Equal(t, "/metrics", cfg.Metrics.Endpoint)
	assert.Equal(t, DefaultServiceName, cfg.Metrics.Namespace)
	require.NoError(t, cfg.Validate())

	bad := Config{Tracing: TracingConfig{Enabled: true, Exporter: "jaeger"}}
	bad.SetDefaults()
	assert.Error(t, bad.Validate())

	bad = Config{Tracing: TracingConfig{Enabled: true, SamplingRate: 2}}
	bad.SetDefaults()
	assert.Error(t, bad.Validate())

	bad = Config{Metrics: MetricsConfig{Enabled: true, Endpoint: "metrics"}}
	assert.Error(t, bad.Validate())
}

func scrape(t *testing.T, m *Manager) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestManagerExposesMetrics(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, Config{Metrics: MetricsConfig{Enabled: true}})
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	require.True(t, m.MetricsEnabled())
	metrics := m.Metrics()
	require.NotNil(t, metrics)

	metrics.RecordAnalysis(ctx, "gemini-2.5-flash", "success", 250*time.Millisecond, 100, 40)
	metrics.RecordTransition(ctx, "complete")
	metrics.AddSessions(ctx, 2)

	body := scrape(t, m)
	assert.Contains(t, body, "cpeof_analysis_requests_total")
	assert.Contains(t, body, "cpeof_workflow_transitions_total")
	assert.Contains(t, body, `outcome="success"`)
}

func TestHTTPMiddlewareRecordsRoutePattern(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, Config{Metrics: MetricsConfig{Enabled: true}})
	require.NoError(t, err)
	defer m.Shutdown(ctx)

	r := chi.NewRouter()
	r.Use(HTTPMiddleware(m.Tracer(), m.Metrics()))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	body := scrape(t, m)
	assert.Contains(t, body, `route="/items/{id}"`)
	assert.Contains(t, body, `status="418"`)
}
