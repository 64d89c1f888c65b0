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

const (
	SpanHTTPRequest = "http.request"
	SpanAnalyze     = "cpeof.analyze"
	SpanLLMRequest  = "cpeof.llm_request"

	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"
	AttrModel          = "llm.model"
	AttrMIMEType       = "image.mime_type"
	AttrImageBytes     = "image.bytes"
	AttrOutcome        = "analysis.outcome"
	AttrPromptTokens   = "llm.tokens.prompt"
	AttrOutputTokens   = "llm.tokens.output"

	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"

	DefaultServiceName = "cpeof"
)
