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

// Package server exposes the workflow over HTTP: a server-rendered page for
// browsers and a small JSON API.
//
// Routes:
//
//	GET  /             HTML page for the caller's session
//	POST /upload       multipart field "image"; redirects to /
//	POST /reset        redirects to /
//	GET  /api/state    session state as JSON; ?wait=30s blocks until terminal
//	POST /api/analyze  multipart field "image" or a raw image body; 202, 409 once finished
//	POST /api/reset    204
//	GET  /api/schema   response JSON schema
//	GET  /health       liveness
//
// Sessions are tracked with the cpeof_session cookie. Only /upload and
// /api/analyze create one; the other routes treat a caller without a session
// as idle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/cpeof/pkg/config"
	"github.com/kadirpekel/cpeof/pkg/observability"
	"github.com/kadirpekel/cpeof/pkg/session"
)

// HTTPServer serves the UI and API.
type HTTPServer struct {
	cfg           config.ServerConfig
	store         *session.Store
	observability *observability.Manager
	logger        *slog.Logger
	version       string

	server *http.Server
}

// Option configures an HTTPServer.
type Option func(*HTTPServer)

// WithObservability enables tracing, metrics and the metrics endpoint.
func WithObservability(obs *observability.Manager) Option {
	return func(s *HTTPServer) {
		s.observability = obs
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *HTTPServer) {
		s.logger = l
	}
}

// WithVersion sets the version shown in the page footer and /health.
func WithVersion(v string) Option {
	return func(s *HTTPServer) {
		s.version = v
	}
}

// New creates a server for the sessions in store.
func New(cfg config.ServerConfig, store *session.Store, opts ...Option) *HTTPServer {
	cfg.SetDefaults()
	s := &HTTPServer{
		cfg:           cfg,
		store:         store,
		observability: observability.NoopManager(),
		logger:        slog.Default(),
		version:       "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Address returns the listen address.
func (s *HTTPServer) Address() string {
	return s.cfg.Address()
}

// Handler returns the routed handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(s.observability.Tracer(), s.observability.Metrics()))
	r.Use(s.loggingMiddleware)

	r.Get("/health", s.handleHealth)
	if s.observability.MetricsEnabled() {
		endpoint := s.observability.MetricsEndpoint()
		r.Method(http.MethodGet, endpoint, s.observability.MetricsHandler())
		s.logger.Info("Metrics endpoint enabled", "path", endpoint)
	}
	r.Get("/api/schema", s.handleSchema)

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware(false))

		r.Get("/", s.handlePage)
		r.Post("/reset", s.handleReset)
		r.Get("/api/state", s.handleState)
		r.Post("/api/reset", s.handleAPIReset)
	})

	// only submissions start a session
	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware(true))

		r.Post("/upload", s.handleUpload)
		r.Post("/api/analyze", s.handleAnalyze)
	})

	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("HTTP server starting", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.WithoutCancel(ctx))
	}
}

// Shutdown stops accepting requests and waits for active ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}
