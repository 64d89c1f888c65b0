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

// Package model defines the multimodal generation interface the analysis
// client talks to. Providers live in subpackages (see model/gemini).
package model

import (
	"context"
)

// Generator produces one structured reply for one request.
//
// Implementations must be safe for concurrent use and must honor ctx
// cancellation for the in-flight call.
type Generator interface {
	// Name returns the model identifier.
	Name() string

	// Provider returns the provider type.
	Provider() Provider

	// Generate sends the request and returns the textual reply.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Close releases any resources held by the generator.
	Close() error
}

// Provider identifies the model provider.
type Provider string

const (
	// ProviderGemini represents Google Gemini models.
	ProviderGemini Provider = "gemini"
)

// Blob is inline binary input such as an image.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Request is a single-turn multimodal request.
type Request struct {
	// Blobs are sent before the instruction text.
	Blobs []Blob

	// Instruction is the natural-language prompt.
	Instruction string

	// ResponseSchema is a JSON schema (as a generic map) the reply should
	// conform to. When set, the provider is asked for JSON output.
	ResponseSchema map[string]any

	// Temperature overrides the provider default when non-nil.
	Temperature *float64
}

// Response is the provider reply.
type Response struct {
	// Text is the concatenated text of the first candidate.
	Text string

	// FinishReason is the provider-reported stop reason, if any.
	FinishReason string

	// Usage is token accounting, when the provider reports it.
	Usage *Usage
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
