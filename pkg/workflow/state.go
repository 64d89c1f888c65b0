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

// Package workflow holds the per-session state machine that drives an image
// through upload, analysis and presentation.
//
// A Controller owns exactly one State. States are immutable values that are
// replaced wholesale on every transition:
//
//	idle|complete|error --submit--> uploading --encoded--> analyzing
//	analyzing --succeeded--> complete
//	analyzing --failed--> error
//	any --reset--> idle
//
// Every submission bumps a generation counter. Completions carry the
// generation they were started for and are discarded when it no longer
// matches.
package workflow

import (
	"encoding/json"
	"time"

	"github.com/kadirpekel/cpeof/pkg/orchestration"
)

// Status is the workflow phase.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusAnalyzing Status = "analyzing"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition happens without a reset or
// a new submission.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// InFlight reports whether an analysis is pending.
func (s Status) InFlight() bool {
	return s == StatusUploading || s == StatusAnalyzing
}

// State is a snapshot of the workflow.
type State struct {
	Status Status `json:"status"`

	// ImagePreview is the data URL of the submitted image. Set from analyzing
	// onwards and kept in complete and error.
	ImagePreview string `json:"imagePreview,omitempty"`

	// ErrorMessage is a user-facing message. Only set in error.
	ErrorMessage string `json:"errorMessage,omitempty"`

	// Response is the parsed analysis. Only set in complete.
	Response *orchestration.AgentResponse `json:"response,omitempty"`

	// Generation identifies the submission this state belongs to. Zero when idle.
	Generation uint64 `json:"generation,omitempty"`

	// UpdatedAt is when the state was entered. Zero when idle.
	UpdatedAt time.Time `json:"-"`
}

// Idle returns the initial state.
func Idle() State {
	return State{Status: StatusIdle}
}

// MarshalJSON adds updatedAt only when it is set.
func (s State) MarshalJSON() ([]byte, error) {
	type plain State
	out := struct {
		plain
		UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	}{plain: plain(s)}
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt.UTC()
		out.UpdatedAt = &t
	}
	return json.Marshal(out)
}
