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

package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/kadirpekel/cpeof/pkg/model"
	"github.com/kadirpekel/cpeof/pkg/orchestration"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestNew_DefaultModel(t *testing.T) {
	g, err := New(context.Background(), Config{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, g.Name())
	assert.Equal(t, model.ProviderGemini, g.Provider())
}

func TestToGenaiSchema_ResponseSchema(t *testing.T) {
	m, err := orchestration.SchemaMap()
	require.NoError(t, err)

	s := toGenaiSchema(m)
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"orchestrationPlan", "executionResults"}, s.Required)

	plan := s.Properties["orchestrationPlan"]
	require.NotNil(t, plan)
	assert.Equal(t, genai.TypeArray, plan.Type)
	require.NotNil(t, plan.Items)
	assert.Equal(t, genai.TypeInteger, plan.Items.Properties["stepNumber"].Type)
	assert.ElementsMatch(t,
		[]string{"Jira", "GitHub", "Google Docs", "Slack", "Analysis"},
		plan.Items.Properties["system"].Enum)

	results := s.Properties["executionResults"]
	require.NotNil(t, results)
	assert.Len(t, results.Required, 9)
	assert.Equal(t, genai.TypeString, results.Properties["slackMessage"].Type)
}

func TestBuildContents_ImageBeforeText(t *testing.T) {
	contents := buildContents(&model.Request{
		Blobs:       []model.Blob{{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
		Instruction: "describe",
	})
	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	require.NotNil(t, contents[0].Parts[0].InlineData)
	assert.Equal(t, "image/png", contents[0].Parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte{1, 2, 3}, contents[0].Parts[0].InlineData.Data)
	assert.Equal(t, "describe", contents[0].Parts[1].Text)
}

func TestBuildConfig(t *testing.T) {
	m := &geminiModel{config: Config{Temperature: 0.7}}

	cfg := m.buildConfig(&model.Request{})
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 1e-6)
	assert.Empty(t, cfg.ResponseMIMEType)
	assert.Nil(t, cfg.ResponseSchema)

	temp := 0.4
	cfg = m.buildConfig(&model.Request{
		Temperature:    &temp,
		ResponseSchema: map[string]any{"type": "object"},
	})
	assert.InDelta(t, 0.4, *cfg.Temperature, 1e-6)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.ResponseSchema)
	assert.Equal(t, genai.TypeObject, cfg.ResponseSchema.Type)
}

func TestParseResponse(t *testing.T) {
	t.Run("nil and empty", func(t *testing.T) {
		assert.Empty(t, parseResponse(nil).Text)
		assert.Empty(t, parseResponse(&genai.GenerateContentResponse{}).Text)
	})

	t.Run("skips thoughts and joins text", func(t *testing.T) {
		resp := parseResponse(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonStop,
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "thinking...", Thought: true},
					{Text: `{"a":`},
					{Text: `1}`},
				}},
			}},
			UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
				PromptTokenCount:     10,
				CandidatesTokenCount: 5,
				TotalTokenCount:      15,
			},
		})
		assert.Equal(t, `{"a":1}`, resp.Text)
		assert.Equal(t, string(genai.FinishReasonStop), resp.FinishReason)
		require.NotNil(t, resp.Usage)
		assert.Equal(t, 15, resp.Usage.TotalTokens)
	})
}

func TestGenerate_AgainstFakeEndpoint(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":true}"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	g, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	resp, err := g.Generate(context.Background(), &model.Request{
		Blobs:       []model.Blob{{MIMEType: "image/png", Data: []byte("png")}},
		Instruction: "analyze",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.NotNil(t, gotBody["contents"])
}

func TestGenerate_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
	}))
	defer srv.Close()

	g, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), &model.Request{Instruction: "analyze"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gemini generation failed")
}
