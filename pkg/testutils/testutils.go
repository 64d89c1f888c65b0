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

// Package testutils provides fixtures and fakes shared by package tests.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/kadirpekel/cpeof/pkg/model"
	"github.com/kadirpekel/cpeof/pkg/orchestration"
)

// SampleResponse returns a complete four-step response.
func SampleResponse() *orchestration.AgentResponse {
	return &orchestration.AgentResponse{
		OrchestrationPlan: []orchestration.Step{
			{StepNumber: 1, System: orchestration.SystemJira, Action: "Identify P0 ticket", DataFlow: "Board screenshot -> ticket PAY-142", Status: orchestration.StepComplete},
			{StepNumber: 2, System: orchestration.SystemGitHub, Action: "Look up last commit", DataFlow: "payments-service -> commit a1b2c3d", Status: orchestration.StepComplete},
			{StepNumber: 3, System: orchestration.SystemDocs, Action: "Create incident doc", DataFlow: "Bug summary -> DOC-7781", Status: orchestration.StepComplete},
			{StepNumber: 4, System: orchestration.SystemSlack, Action: "Announce incident", DataFlow: "Incident doc -> #eng-incidents", Status: orchestration.StepComplete},
		},
		ExecutionResults: orchestration.ExecutionResults{
			DetectedComponent: "payments-service",
			BugPriority:       "P0",
			BugSummary:        "Checkout fails with 500 on card authorization",
			CommitHash:        "a1b2c3d",
			DeveloperName:     "Jordan Lee",
			DocEntryID:        "DOC-7781",
			DocContent:        "Incident report for checkout failures.",
			SlackChannel:      "#eng-incidents",
			SlackMessage:      "P0 in payments-service; incident doc DOC-7781.",
		},
	}
}

// SampleResponseJSON returns SampleResponse encoded as the service would.
func SampleResponseJSON(t testing.TB) string {
	t.Helper()
	data, err := json.Marshal(SampleResponse())
	if err != nil {
		t.Fatalf("marshal sample response: %v", err)
	}
	return string(data)
}

// RedSquarePNG returns a 10x10 red PNG.
func RedSquarePNG(t testing.TB) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	red := color.RGBA{R: 255, A: 255}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, red)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// FakeGenerator is a scriptable model.Generator.
//
// When Block is non-nil, Generate waits for it to be closed (or for ctx to
// end) before answering, which lets tests observe in-flight states.
type FakeGenerator struct {
	Text  string
	Err   error
	Usage *model.Usage
	Block chan struct{}

	mu       sync.Mutex
	requests []*model.Request
	closed   bool
}

// Name returns the model identifier.
func (f *FakeGenerator) Name() string { return "fake-model" }

// Provider returns the provider type.
func (f *FakeGenerator) Provider() model.Provider { return "fake" }

// Generate records req and returns the scripted reply.
func (f *FakeGenerator) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.Block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return &model.Response{Text: f.Text, Usage: f.Usage}, nil
}

// Close marks the generator closed.
func (f *FakeGenerator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Requests returns the requests seen so far.
func (f *FakeGenerator) Requests() []*model.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*model.Request(nil), f.requests...)
}

// Closed reports whether Close was called.
func (f *FakeGenerator) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var _ model.Generator = (*FakeGenerator)(nil)
