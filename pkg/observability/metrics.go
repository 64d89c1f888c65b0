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
	"fmt"
	"strconv"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records application metrics. A nil *Metrics is valid and records
// nothing, so callers never need to check whether metrics are enabled.
type Metrics struct {
	analysisDuration metric.Float64Histogram
	analysisTotal    metric.Int64Counter
	llmInputTokens   metric.Int64Counter
	llmOutputTokens  metric.Int64Counter

	transitionsTotal metric.Int64Counter
	staleCompletions metric.Int64Counter
	activeSessions   metric.Int64UpDownCounter

	httpDuration metric.Float64Histogram
	httpRequests metric.Int64Counter
}

// InitMetrics creates a meter provider exporting to a private Prometheus
// registry. A disabled config yields nil metrics and a nil provider.
func InitMetrics(cfg MetricsConfig) (*Metrics, *sdkmetric.MeterProvider, *promclient.Registry, error) {
	if !cfg.Enabled {
		return nil, nil, nil, nil
	}

	registry := promclient.NewRegistry()
	promExporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithNamespace(cfg.Namespace),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	m, err := newMetrics(meterProvider.Meter(DefaultServiceName))
	if err != nil {
		_ = meterProvider.Shutdown(context.Background())
		return nil, nil, nil, err
	}
	return m, meterProvider, registry, nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.analysisDuration, err = meter.Float64Histogram(
		"analysis_duration_seconds",
		metric.WithDescription("Image analysis duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create analysis duration histogram: %w", err)
	}

	if m.analysisTotal, err = meter.Int64Counter(
		"analysis_requests",
		metric.WithDescription("Total image analyses by outcome"),
	); err != nil {
		return nil, fmt.Errorf("failed to create analysis counter: %w", err)
	}

	if m.llmInputTokens, err = meter.Int64Counter(
		"llm_tokens_input",
		metric.WithDescription("Total input tokens sent to the model"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm input tokens counter: %w", err)
	}

	if m.llmOutputTokens, err = meter.Int64Counter(
		"llm_tokens_output",
		metric.WithDescription("Total output tokens from the model"),
	); err != nil {
		return nil, fmt.Errorf("failed to create llm output tokens counter: %w", err)
	}

	if m.transitionsTotal, err = meter.Int64Counter(
		"workflow_transitions",
		metric.WithDescription("Workflow state transitions by target status"),
	); err != nil {
		return nil, fmt.Errorf("failed to create transitions counter: %w", err)
	}

	if m.staleCompletions, err = meter.Int64Counter(
		"workflow_stale_completions",
		metric.WithDescription("Analysis completions discarded because they were superseded"),
	); err != nil {
		return nil, fmt.Errorf("failed to create stale completions counter: %w", err)
	}

	if m.activeSessions, err = meter.Int64UpDownCounter(
		"sessions_active",
		metric.WithDescription("Browser sessions currently held in memory"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sessions gauge: %w", err)
	}

	if m.httpDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	if m.httpRequests, err = meter.Int64Counter(
		"http_requests",
		metric.WithDescription("Total HTTP requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	return m, nil
}

// RecordAnalysis records one finished analysis.
func (m *Metrics) RecordAnalysis(ctx context.Context, model, outcome string, duration time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	)
	m.analysisDuration.Record(ctx, duration.Seconds(), attrs)
	m.analysisTotal.Add(ctx, 1, attrs)

	modelAttr := metric.WithAttributes(attribute.String("model", model))
	if inputTokens > 0 {
		m.llmInputTokens.Add(ctx, int64(inputTokens), modelAttr)
	}
	if outputTokens > 0 {
		m.llmOutputTokens.Add(ctx, int64(outputTokens), modelAttr)
	}
}

// RecordTransition counts a workflow transition into status.
func (m *Metrics) RecordTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.transitionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordStaleCompletion counts a discarded, superseded analysis completion.
func (m *Metrics) RecordStaleCompletion(ctx context.Context) {
	if m == nil {
		return
	}
	m.staleCompletions.Add(ctx, 1)
}

// AddSessions adjusts the active session gauge by delta.
func (m *Metrics) AddSessions(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.activeSessions.Add(ctx, delta)
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
	m.httpRequests.Add(ctx, 1, attrs)
}
