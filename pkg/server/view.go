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

package server

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/kadirpekel/cpeof/pkg/orchestration"
	"github.com/kadirpekel/cpeof/pkg/workflow"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").ParseFS(templateFS, "templates/index.html"))

// refreshSeconds is the meta refresh interval while an analysis is pending.
const refreshSeconds = 2

type stepView struct {
	Number   int
	System   string
	Class    string
	Action   string
	DataFlow string
	Status   string
}

type pageView struct {
	Status      workflow.Status
	StatusLabel string
	InFlight    bool
	Refresh     int
	Flash       string
	Error       string
	Preview     template.URL
	Steps       []stepView
	Results     *orchestration.ExecutionResults
	ShortCommit string
	Version     string
}

func newPageView(s workflow.State, flash, version string) pageView {
	v := pageView{
		Status:      s.Status,
		StatusLabel: statusLabel(s.Status),
		InFlight:    s.Status.InFlight(),
		Flash:       flash,
		Error:       s.ErrorMessage,
		Version:     version,
	}
	if v.InFlight {
		v.Refresh = refreshSeconds
	}
	// previews are produced by media.Image.DataURL, never taken from input
	if strings.HasPrefix(s.ImagePreview, "data:image/") {
		v.Preview = template.URL(s.ImagePreview)
	}

	if s.Status == workflow.StatusComplete && s.Response != nil {
		for _, step := range s.Response.OrchestrationPlan {
			v.Steps = append(v.Steps, stepView{
				Number:   step.StepNumber,
				System:   string(step.System),
				Class:    systemClass(step.System),
				Action:   step.Action,
				DataFlow: step.DataFlow,
				Status:   string(step.Status),
			})
		}
		results := s.Response.ExecutionResults
		v.Results = &results
		v.ShortCommit = results.CommitHash
		if len(v.ShortCommit) > 8 {
			v.ShortCommit = v.ShortCommit[:8]
		}
	}
	return v
}

func systemClass(s orchestration.SystemType) string {
	switch s {
	case orchestration.SystemJira:
		return "sys-jira"
	case orchestration.SystemGitHub:
		return "sys-github"
	case orchestration.SystemDocs:
		return "sys-docs"
	case orchestration.SystemSlack:
		return "sys-slack"
	default:
		return "sys-analysis"
	}
}

func renderPage(w io.Writer, v pageView) error {
	return pageTemplate.Execute(w, v)
}
