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

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/cpeof/pkg/analysis"
	"github.com/kadirpekel/cpeof/pkg/media"
	"github.com/kadirpekel/cpeof/pkg/observability"
	"github.com/kadirpekel/cpeof/pkg/orchestration"
)

var (
	// ErrInvalidTransition is returned when a completion arrives while the
	// controller is not analyzing, or a submission arrives after the
	// previous one finished and before Reset.
	ErrInvalidTransition = errors.New("invalid workflow transition")

	// ErrStaleGeneration is returned when a completion belongs to a
	// submission that has since been reset or superseded.
	ErrStaleGeneration = errors.New("stale analysis generation")
)

// Analyzer performs the external analysis of one image.
type Analyzer interface {
	Analyze(ctx context.Context, img media.Image) (*orchestration.AgentResponse, error)
}

// Observer receives every applied state, in order. Observers run with the
// controller lock held and must not call back into the controller.
type Observer func(State)

// Controller is the state machine for one session. It is safe for
// concurrent use.
type Controller struct {
	analyzer  Analyzer
	logger    *slog.Logger
	metrics   *observability.Metrics
	observers []Observer
	now       func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
	changed    chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithMetrics records transitions and stale completions.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// NewController creates a controller in the idle state.
func NewController(analyzer Analyzer, opts ...Option) *Controller {
	c := &Controller{
		analyzer: analyzer,
		logger:   slog.Default(),
		now:      time.Now,
		state:    Idle(),
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SubmitImage validates the image, moves to analyzing and starts the
// analysis in the background. Any analysis still in flight is cancelled.
// Invalid input returns *media.InvalidInputError and leaves the state
// untouched. A finished submission (complete or error) must be Reset first;
// until then SubmitImage returns ErrInvalidTransition.
//
// The analysis is detached from ctx cancellation but keeps its values.
func (c *Controller) SubmitImage(ctx context.Context, data []byte, mimeType string) (uint64, error) {
	img, err := media.NewImage(data, mimeType)
	if err != nil {
		c.logger.Debug("Submission rejected", "mime_type", mimeType, "error", err)
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status.Terminal() {
		c.logger.Debug("Submission rejected", "status", c.state.Status, "generation", c.generation)
		return 0, fmt.Errorf("%w: submit while %s", ErrInvalidTransition, c.state.Status)
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.logger.Debug("Superseded in-flight analysis", "generation", c.generation)
	}
	c.generation++
	gen := c.generation

	c.apply(ctx, State{Status: StatusUploading, Generation: gen})
	preview := img.DataURL()
	c.apply(ctx, State{Status: StatusAnalyzing, ImagePreview: preview, Generation: gen})

	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel

	analysisID := uuid.NewString()
	c.logger.Info("Analysis started",
		"analysis_id", analysisID,
		"generation", gen,
		"mime_type", img.MIMEType,
		"bytes", len(img.Data))

	go c.run(actx, cancel, gen, analysisID, img)
	return gen, nil
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, gen uint64, analysisID string, img media.Image) {
	defer cancel()

	resp, err := c.analyzer.Analyze(ctx, img)
	if err != nil {
		c.logger.Warn("Analysis failed", "analysis_id", analysisID, "generation", gen, "error", err)
		err = c.failed(ctx, gen, analysis.UserMessage(err))
	} else {
		err = c.succeeded(ctx, gen, resp)
	}
	if err != nil {
		c.logger.Debug("Analysis completion discarded", "analysis_id", analysisID, "generation", gen, "reason", err)
	}
}

// OnAnalysisSucceeded moves analyzing to complete for the given generation.
func (c *Controller) OnAnalysisSucceeded(gen uint64, resp *orchestration.AgentResponse) error {
	return c.succeeded(context.Background(), gen, resp)
}

// OnAnalysisFailed moves analyzing to error for the given generation.
func (c *Controller) OnAnalysisFailed(gen uint64, message string) error {
	return c.failed(context.Background(), gen, message)
}

func (c *Controller) succeeded(ctx context.Context, gen uint64, resp *orchestration.AgentResponse) error {
	if resp == nil {
		return c.failed(ctx, gen, analysis.UserMessage(&analysis.EmptyResponseError{}))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkCompletion(ctx, gen); err != nil {
		return err
	}
	c.apply(ctx, State{
		Status:       StatusComplete,
		ImagePreview: c.state.ImagePreview,
		Response:     resp,
		Generation:   gen,
	})
	c.release()
	return nil
}

func (c *Controller) failed(ctx context.Context, gen uint64, message string) error {
	if message == "" {
		message = analysis.UserMessage(errors.New("unknown"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkCompletion(ctx, gen); err != nil {
		return err
	}
	c.apply(ctx, State{
		Status:       StatusError,
		ImagePreview: c.state.ImagePreview,
		ErrorMessage: message,
		Generation:   gen,
	})
	c.release()
	return nil
}

// checkCompletion must be called with c.mu held.
func (c *Controller) checkCompletion(ctx context.Context, gen uint64) error {
	if gen != c.generation || c.state.Generation != gen {
		c.metrics.RecordStaleCompletion(ctx)
		return fmt.Errorf("%w: got %d, current %d", ErrStaleGeneration, gen, c.generation)
	}
	if c.state.Status != StatusAnalyzing {
		return fmt.Errorf("%w: completion while %s", ErrInvalidTransition, c.state.Status)
	}
	return nil
}

// release drops the cancel func of the finished analysis. Requires c.mu.
func (c *Controller) release() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Reset returns to idle and cancels any in-flight analysis.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.logger.Debug("Cancelling in-flight analysis", "generation", c.generation)
	}
	c.release()
	c.apply(context.Background(), Idle())
}

// Await blocks until the current submission reaches complete or error, or
// ctx ends. It returns immediately when the controller is idle or already
// terminal.
func (c *Controller) Await(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		s, changed := c.state, c.changed
		c.mu.Unlock()

		if !s.Status.InFlight() {
			return s, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

// Close cancels any in-flight analysis without changing the state. The
// cancelled analysis counts as stale, so it cannot move the state to error.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.generation++
	}
	c.release()
}

// apply replaces the state and wakes waiters. Requires c.mu.
func (c *Controller) apply(ctx context.Context, s State) {
	if s.Status != StatusIdle {
		s.UpdatedAt = c.now()
	}
	prev := c.state.Status
	c.state = s

	close(c.changed)
	c.changed = make(chan struct{})

	c.metrics.RecordTransition(ctx, string(s.Status))
	c.logger.Debug("Workflow transition", "from", prev, "to", s.Status, "generation", s.Generation)

	for _, o := range c.observers {
		o(s)
	}
}
