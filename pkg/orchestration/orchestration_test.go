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

package orchestration_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/cpeof/pkg/orchestration"
	"github.com/kadirpekel/cpeof/pkg/testutils"
)

func sampleMap(t *testing.T) map[string]any {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(testutils.SampleResponseJSON(t)), &m))
	return m
}

func encode(t *testing.T, m map[string]any) string {
	data, err := json.Marshal(m)
	require.NoError(t, err)
	return string(data)
}

func TestDecode_Valid(t *testing.T) {
	resp, err := orchestration.Decode(testutils.SampleResponseJSON(t))
	require.NoError(t, err)
	assert.Equal(t, testutils.SampleResponse(), resp)
	assert.Len(t, resp.OrchestrationPlan, 4)
	assert.Equal(t, orchestration.SystemDocs, resp.OrchestrationPlan[2].System)
}

func TestDecode_CodeFence(t *testing.T) {
	body := testutils.SampleResponseJSON(t)
	for _, text := range []string{
		"```json\n" + body + "\n```",
		"```\n" + body + "\n```",
		"\n\n  " + body + "  \n",
	} {
		resp, err := orchestration.Decode(text)
		require.NoError(t, err)
		assert.Equal(t, "payments-service", resp.ExecutionResults.DetectedComponent)
	}
}

func TestDecode_Empty(t *testing.T) {
	for _, text := range []string{"", "   \n", "```json\n```"} {
		_, err := orchestration.Decode(text)
		assert.ErrorIs(t, err, orchestration.ErrEmpty, "input %q", text)
	}
}

func TestDecode_Syntax(t *testing.T) {
	_, err := orchestration.Decode(`{"orchestrationPlan": [`)
	var syn *orchestration.SyntaxError
	require.True(t, errors.As(err, &syn))
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestDecode_SchemaViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]any)
		want   string
	}{
		{
			name: "missing results field",
			mutate: func(m map[string]any) {
				delete(m["executionResults"].(map[string]any), "slackMessage")
			},
			want: "slackMessage",
		},
		{
			name: "missing plan",
			mutate: func(m map[string]any) {
				delete(m, "orchestrationPlan")
			},
			want: "orchestrationPlan",
		},
		{
			name: "empty plan",
			mutate: func(m map[string]any) {
				m["orchestrationPlan"] = []any{}
			},
			want: "orchestrationPlan",
		},
		{
			name: "unknown system",
			mutate: func(m map[string]any) {
				m["orchestrationPlan"].([]any)[0].(map[string]any)["system"] = "Trello"
			},
			want: "system",
		},
		{
			name: "unknown status",
			mutate: func(m map[string]any) {
				m["orchestrationPlan"].([]any)[1].(map[string]any)["status"] = "done"
			},
			want: "status",
		},
		{
			name: "step number below one",
			mutate: func(m map[string]any) {
				m["orchestrationPlan"].([]any)[0].(map[string]any)["stepNumber"] = 0
			},
			want: "stepNumber",
		},
		{
			name: "wrong type",
			mutate: func(m map[string]any) {
				m["executionResults"].(map[string]any)["commitHash"] = 42
			},
			want: "commitHash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleMap(t)
			tt.mutate(m)

			resp, err := orchestration.Decode(encode(t, m))
			require.Error(t, err)
			assert.Nil(t, resp)

			var se *orchestration.SchemaError
			require.True(t, errors.As(err, &se), "got %T: %v", err, err)
			require.NotEmpty(t, se.Errors)
			assert.Contains(t, se.Error(), tt.want)
		})
	}
}

func TestDecode_ExtraFieldsAllowed(t *testing.T) {
	m := sampleMap(t)
	m["confidence"] = 0.9
	_, err := orchestration.Decode(encode(t, m))
	assert.NoError(t, err)
}

func TestSchemaJSON(t *testing.T) {
	data, err := orchestration.SchemaJSON()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "object", doc["type"])

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "orchestrationPlan")
	assert.Contains(t, props, "executionResults")

	required, ok := doc["required"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"orchestrationPlan", "executionResults"}, required)

	results := props["executionResults"].(map[string]any)
	assert.Len(t, results["required"], 9)
}

func TestSchemaMapIsIndependentCopy(t *testing.T) {
	a, err := orchestration.SchemaMap()
	require.NoError(t, err)
	a["type"] = "mutated"

	b, err := orchestration.SchemaMap()
	require.NoError(t, err)
	assert.Equal(t, "object", b["type"])
}

func TestSystemTypeValid(t *testing.T) {
	for _, s := range orchestration.SystemTypes() {
		assert.True(t, s.Valid())
	}
	assert.False(t, orchestration.SystemType("Trello").Valid())
}
