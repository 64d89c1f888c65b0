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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/cpeof"
	"github.com/kadirpekel/cpeof/pkg/analysis"
	"github.com/kadirpekel/cpeof/pkg/config"
	"github.com/kadirpekel/cpeof/pkg/observability"
	"github.com/kadirpekel/cpeof/pkg/server"
	"github.com/kadirpekel/cpeof/pkg/session"
	"github.com/kadirpekel/cpeof/pkg/workflow"
)

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Model        string        `help:"Gemini model name." placeholder:"MODEL"`
	APIKey       string        `name:"api-key" help:"Gemini API key (defaults to GEMINI_API_KEY, then API_KEY)."`
	BaseURL      string        `name:"base-url" help:"Custom API base URL."`
	Temperature  float64       `help:"Sampling temperature (default 0.4)."`
	Timeout      time.Duration `help:"Per-analysis timeout (0 = transport default)."`
	MaxDimension int           `name:"max-dimension" help:"Downscale images larger than this before analysis (0 = off)."`

	Host    string `help:"Host to bind."`
	Port    int    `help:"Port to listen on (default 8080)."`
	Observe bool   `help:"Enable metrics and tracing."`
	Tracing string `name:"tracing-exporter" help:"Trace exporter (otlp, stdout)." enum:"otlp,stdout" default:"otlp"`
	Watch   bool   `help:"Reload the config file on change."`
}

func (c *ServeCmd) zeroConfig(cli *CLI) config.ZeroConfig {
	return config.ZeroConfig{
		APIKey:         c.APIKey,
		Model:          c.Model,
		BaseURL:        c.BaseURL,
		Temperature:    c.Temperature,
		Timeout:        c.Timeout,
		Host:           c.Host,
		Port:           c.Port,
		MaxDimension:   c.MaxDimension,
		LogLevel:       cli.LogLevel,
		LogFile:        cli.LogFile,
		LogFormat:      cli.LogFormat,
		MetricsEnabled: c.Observe,
		TracingEnabled: c.Observe,
		TracingExport:  c.Tracing,
	}
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var client *analysis.Client
	cfg, loader, err := loadConfig(ctx, cli.Config, c.zeroConfig(cli), config.WithOnChange(func(next *config.Config) {
		c.applyOverrides(next)
		if client != nil {
			client.Reconfigure(analysisConfig(next))
		}
	}))
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
		c.applyOverrides(cfg)
	}

	logCleanup, err := applyLoggerConfig(cli, &cfg.Logger)
	if err != nil {
		return err
	}
	defer logCleanup()

	obs, err := observability.NewManager(ctx, cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Observability shutdown failed", "error", err)
		}
	}()

	client = analysis.NewClient(analysisConfig(cfg), analysis.WithObservability(obs))
	defer client.Close()
	if cfg.LLM.APIKey == "" {
		slog.Warn("No API key configured; analyses will fail until GEMINI_API_KEY is set")
	}

	store := session.NewStore(func(id string) *workflow.Controller {
		return workflow.NewController(client,
			workflow.WithLogger(slog.Default().With("session_id", id)),
			workflow.WithMetrics(obs.Metrics()),
		)
	},
		session.WithTTL(cfg.Server.SessionTTL),
		session.WithMetrics(obs.Metrics()),
	)
	defer store.Close()

	srv := server.New(cfg.Server, store,
		server.WithObservability(obs),
		server.WithVersion(cpeof.GetVersion().Version),
	)

	fmt.Printf("\ncpeof server ready\n")
	fmt.Printf("   Web UI:  http://%s\n", srv.Address())
	fmt.Printf("   API:     http://%s/api/state\n", srv.Address())
	fmt.Printf("   Health:  http://%s/health\n", srv.Address())
	if obs.MetricsEnabled() {
		fmt.Printf("   Metrics: http://%s%s\n", srv.Address(), obs.MetricsEndpoint())
	}
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return store.Run(gctx) })
	if c.Watch {
		if loader == nil {
			slog.Warn("--watch ignored without --config")
		} else {
			g.Go(func() error { return loader.Watch(gctx) })
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Shut down cleanly")
	return nil
}

// applyOverrides lets explicit flags win over the config file.
func (c *ServeCmd) applyOverrides(cfg *config.Config) {
	if c.APIKey != "" {
		cfg.LLM.APIKey = c.APIKey
	}
	if c.Model != "" {
		cfg.LLM.Model = c.Model
	}
	if c.BaseURL != "" {
		cfg.LLM.BaseURL = c.BaseURL
	}
	if c.Temperature > 0 {
		temp := c.Temperature
		cfg.LLM.Temperature = &temp
	}
	if c.Timeout > 0 {
		cfg.LLM.Timeout = c.Timeout
	}
	if c.MaxDimension > 0 {
		cfg.Image.MaxDimension = c.MaxDimension
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.Observe {
		cfg.Observability.Metrics.Enabled = true
		cfg.Observability.Tracing.Enabled = true
		cfg.Observability.Tracing.Exporter = c.Tracing
	}
}
