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

// Package orchestration defines the structured reply produced by the
// analysis service: an ordered orchestration plan and the simulated
// execution results that go with it.
package orchestration

// SystemType identifies which simulated external tool a plan step targets.
type SystemType string

const (
	// SystemJira is the ticket system.
	SystemJira SystemType = "Jira"
	// SystemGitHub is source control.
	SystemGitHub SystemType = "GitHub"
	// SystemDocs is the document store.
	SystemDocs SystemType = "Google Docs"
	// SystemSlack is the chat system.
	SystemSlack SystemType = "Slack"
	// SystemAnalysis marks a step that only analyzes input.
	SystemAnalysis SystemType = "Analysis"
)

// SystemTypes lists every valid SystemType in display order.
func SystemTypes() []SystemType {
	return []SystemType{SystemJira, SystemGitHub, SystemDocs, SystemSlack, SystemAnalysis}
}

// Valid reports whether s is one of the known system tags.
func (s SystemType) Valid() bool {
	for _, known := range SystemTypes() {
		if s == known {
			return true
		}
	}
	return false
}

// StepStatus is the completion status of a plan step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepComplete   StepStatus = "complete"
)

// Step is one ordered entry of the orchestration plan.
type Step struct {
	StepNumber int        `json:"stepNumber" jsonschema:"minimum=1,description=1-based position in the plan"`
	System     SystemType `json:"system" jsonschema:"enum=Jira,enum=GitHub,enum=Google Docs,enum=Slack,enum=Analysis"`
	Action     string     `json:"action" jsonschema:"description=Short description of the action"`
	DataFlow   string     `json:"dataFlow" jsonschema:"description=What data moves between systems"`
	Status     StepStatus `json:"status" jsonschema:"enum=pending,enum=processing,enum=complete"`
}

// ExecutionResults is the flat record of simulated outcomes.
type ExecutionResults struct {
	DetectedComponent string `json:"detectedComponent"`
	BugPriority       string `json:"bugPriority"`
	BugSummary        string `json:"bugSummary"`
	CommitHash        string `json:"commitHash"`
	DeveloperName     string `json:"developerName"`
	DocEntryID        string `json:"docEntryId"`
	DocContent        string `json:"docContent"`
	SlackChannel      string `json:"slackChannel"`
	SlackMessage      string `json:"slackMessage"`
}

// AgentResponse pairs an orchestration plan with its execution results.
// It is either fully populated or absent; Decode never returns a partial one.
type AgentResponse struct {
	OrchestrationPlan []Step           `json:"orchestrationPlan" jsonschema:"minItems=1"`
	ExecutionResults  ExecutionResults `json:"executionResults"`
}
