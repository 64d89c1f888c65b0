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

// Package cpeof is the C-PEOF orchestrator: it takes a screenshot of a
// ticket board, repository or architecture diagram, asks Gemini for a
// cross-system release plan with simulated results, and presents both.
//
// # Quick Start
//
//	export GEMINI_API_KEY=...
//	go run ./cmd/cpeof serve
//
// Open http://localhost:8080 and upload an image. The same flow is available
// from the command line:
//
//	go run ./cmd/cpeof analyze board.png
//
// # Layout
//
//   - pkg/workflow: per-session state machine (idle, uploading, analyzing,
//     complete, error)
//   - pkg/analysis: Gemini request, response validation and error taxonomy
//   - pkg/orchestration: response model and its JSON schema
//   - pkg/media: image validation, encoding and downscaling
//   - pkg/server, pkg/session: HTTP UI and API
//   - pkg/config, pkg/logger, pkg/observability: ambient concerns
package cpeof
