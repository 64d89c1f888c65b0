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

// Package analysis turns one uploaded image into one validated
// orchestration.AgentResponse by asking a multimodal model for structured
// JSON output.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/cpeof/pkg/media"
	"github.com/kadirpekel/cpeof/pkg/model"
	"github.com/kadirpekel/cpeof/pkg/model/gemini"
	"github.com/kadirpekel/cpeof/pkg/observability"
	"github.com/kadirpekel/cpeof/pkg/orchestration"
)

// DefaultTemperature favors consistent structured output over variety.
const DefaultTemperature = 0.4

// Config holds the client settings.
type Config struct {
	// APIKey is the credential for the model service. Required for Analyze.
	APIKey string

	// Model is the model name. Empty uses the provider default.
	Model string

	// BaseURL overrides the service endpoint.
	BaseURL string

	// Temperature is the sampling temperature. Zero means DefaultTemperature.
	Temperature float64

	// Timeout bounds a single analysis. Zero leaves it to the transport.
	Timeout time.Duration

	// MaxImageDimension downscales larger images before upload. Zero disables.
	MaxImageDimension int
}

// GeneratorFactory builds a model.Generator for cfg.
type GeneratorFactory func(ctx context.Context, cfg Config) (model.Generator, error)

// GeminiFactory builds a Gemini generator.
func GeminiFactory(ctx context.Context, cfg Config) (model.Generator, error) {
	return gemini.New(ctx, gemini.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
	})
}

// Client performs analyses. It keeps no state between calls other than the
// lazily created generator, and is safe for concurrent use.
type Client struct {
	factory GeneratorFactory
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	mu  sync.Mutex
	cfg Config
	gen model.Generator
}

// Option configures a Client.
type Option func(*Client)

// WithGeneratorFactory replaces the Gemini factory.
func WithGeneratorFactory(f GeneratorFactory) Option {
	return func(c *Client) {
		c.factory = f
	}
}

// WithGenerator uses g for every call instead of building one.
func WithGenerator(g model.Generator) Option {
	return func(c *Client) {
		c.factory = func(context.Context, Config) (model.Generator, error) { return g, nil }
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithObservability records spans and metrics through m.
func WithObservability(m *observability.Manager) Option {
	return func(c *Client) {
		c.tracer = m.Tracer()
		c.metrics = m.Metrics()
	}
}

// NewClient creates a client. A missing API key is not an error here: the
// application can start and render without one, and Analyze reports it.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		factory: GeminiFactory,
		logger:  slog.Default(),
		tracer:  observability.NoopTracer(),
		cfg:     withDefaults(cfg),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func withDefaults(cfg Config) Config {
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Model == "" {
		cfg.Model = gemini.DefaultModel
	}
	return cfg
}

// Config returns the current settings.
func (c *Client) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Reconfigure swaps the settings. The next Analyze builds a fresh generator;
// calls already in flight finish with the old one.
func (c *Client) Reconfigure(cfg Config) {
	c.mu.Lock()
	old := c.gen
	c.cfg = withDefaults(cfg)
	c.gen = nil
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	c.logger.Info("Analysis client reconfigured", "model", cfg.Model)
}

// Close releases the generator.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == nil {
		return nil
	}
	err := c.gen.Close()
	c.gen = nil
	return err
}

func (c *Client) generator(ctx context.Context) (model.Generator, Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.cfg
	if cfg.APIKey == "" {
		return nil, cfg, &ConfigurationError{Reason: ReasonMissingCredential}
	}
	if c.gen != nil {
		return c.gen, cfg, nil
	}

	gen, err := c.factory(ctx, cfg)
	if err != nil {
		return nil, cfg, &ConfigurationError{Reason: "cannot create model client", Err: err}
	}
	c.gen = gen
	return gen, cfg, nil
}

// Analyze sends img with the fixed instruction and returns the validated
// response. Errors are one of *ConfigurationError, *EmptyResponseError,
// *MalformedResponseError or *AnalysisRequestError; use UserMessage for
// display. There are no retries.
func (c *Client) Analyze(ctx context.Context, img media.Image) (resp *orchestration.AgentResponse, err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, observability.SpanAnalyze,
		trace.WithAttributes(
			attribute.String(observability.AttrMIMEType, img.MIMEType),
			attribute.Int(observability.AttrImageBytes, len(img.Data)),
		),
	)

	var usage *model.Usage
	modelName := ""
	defer func() {
		o := outcome(err)
		span.SetAttributes(attribute.String(observability.AttrOutcome, o))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, o)
		}
		span.End()

		in, out := 0, 0
		if usage != nil {
			in, out = usage.PromptTokens, usage.CompletionTokens
		}
		c.metrics.RecordAnalysis(ctx, modelName, o, time.Since(start), in, out)
	}()

	gen, cfg, err := c.generator(ctx)
	if err != nil {
		c.logger.Warn("Analysis not attempted", "error", err)
		return nil, err
	}
	modelName = gen.Name()

	req, err := c.buildRequest(img, cfg)
	if err != nil {
		return nil, &AnalysisRequestError{Err: err}
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	llmCtx, llmSpan := c.tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(attribute.String(observability.AttrModel, modelName)))
	reply, err := gen.Generate(llmCtx, req)
	if reply != nil && reply.Usage != nil {
		usage = reply.Usage
		llmSpan.SetAttributes(
			attribute.Int(observability.AttrPromptTokens, usage.PromptTokens),
			attribute.Int(observability.AttrOutputTokens, usage.CompletionTokens),
		)
	}
	llmSpan.End()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.logger.Debug("Analysis cancelled", "model", modelName)
		} else {
			c.logger.Error("Model interaction error", "model", modelName, "error", err)
		}
		return nil, &AnalysisRequestError{Err: err}
	}

	resp, err = orchestration.Decode(reply.Text)
	if err != nil {
		if errors.Is(err, orchestration.ErrEmpty) {
			c.logger.Warn("Empty reply from model", "model", modelName, "finish_reason", reply.FinishReason)
			return nil, &EmptyResponseError{FinishReason: reply.FinishReason}
		}
		c.logger.Warn("Unusable reply from model", "model", modelName, "error", err)
		return nil, &MalformedResponseError{Err: err}
	}

	c.logger.Info("Analysis complete",
		"model", modelName,
		"steps", len(resp.OrchestrationPlan),
		"component", resp.ExecutionResults.DetectedComponent,
		"duration", time.Since(start))
	return resp, nil
}

func (c *Client) buildRequest(img media.Image, cfg Config) (*model.Request, error) {
	if cfg.MaxImageDimension > 0 {
		resized, err := media.Downscale(img, cfg.MaxImageDimension)
		if err != nil {
			// the service may still accept formats we cannot decode
			c.logger.Warn("Image downscale skipped", "mime_type", img.MIMEType, "error", err)
		} else {
			img = resized
		}
	}

	schema, err := orchestration.SchemaMap()
	if err != nil {
		return nil, fmt.Errorf("response schema unavailable: %w", err)
	}

	temperature := cfg.Temperature
	return &model.Request{
		Blobs:          []model.Blob{{MIMEType: img.MIMEType, Data: img.Data}},
		Instruction:    Instruction,
		ResponseSchema: schema,
		Temperature:    &temperature,
	}, nil
}
