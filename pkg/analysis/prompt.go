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

package analysis

// Instruction is the fixed prompt sent alongside every image.
const Instruction = `You are the Software Development Ecosystem Orchestrator (C-PEOF).

TASK:
Analyze the provided image (which represents a Jira Board, Codebase Diagram, or generic software context).
If the image is generic or unclear, SIMULATE a realistic P0 critical bug scenario based on standard software patterns.

1. Identify a critical component and a P0 bug.
2. Simulate a Git lookup for the last commit and developer.
3. Simulate creating a Google Doc entry.
4. Simulate drafting a Slack announcement.

Return the result strictly as JSON matching the schema provided.
Every plan step uses a 1-based stepNumber, in execution order.
Ensure the tone is professional, technical, and executive-ready.`
