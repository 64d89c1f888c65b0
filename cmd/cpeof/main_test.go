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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/cpeof/pkg/config"
)

func TestRedact(t *testing.T) {
	assert.Equal(t, "", redact(""))
	assert.Equal(t, "****", redact("abc"))
	assert.Equal(t, "AIza****", redact("AIzaSyExample"))
}

func TestConfigSchemaUsesYAMLNames(t *testing.T) {
	schema := configSchema()
	data, err := json.Marshal(schema)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "llm")
	assert.Contains(t, props, "server")
	assert.NotContains(t, props, "LLM")
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Setenv(config.EnvGeminiAPIKey, "from-env")

	cfg, loader, err := loadConfig(context.Background(), "", config.ZeroConfig{
		Model:   "gemini-test",
		Timeout: 3 * time.Second,
	})
	require.NoError(t, err)
	assert.Nil(t, loader)

	ac := analysisConfig(cfg)
	assert.Equal(t, "from-env", ac.APIKey)
	assert.Equal(t, "gemini-test", ac.Model)
	assert.Equal(t, 3*time.Second, ac.Timeout)
	assert.Equal(t, config.DefaultTemperature, ac.Temperature)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpeof.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  api_key: file-key\nimage:\n  max_dimension: 512\n"), 0o600))

	cfg, loader, err := loadConfig(context.Background(), path, config.ZeroConfig{})
	require.NoError(t, err)
	require.NotNil(t, loader)
	t.Cleanup(func() { _ = loader.Close() })

	ac := analysisConfig(cfg)
	assert.Equal(t, "file-key", ac.APIKey)
	assert.Equal(t, 512, ac.MaxImageDimension)
}

func TestServeOverridesWinOverFile(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()

	cmd := &ServeCmd{Port: 9090, Model: "gemini-x", Observe: true, Tracing: "stdout"}
	cmd.applyOverrides(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "gemini-x", cfg.LLM.Model)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, "stdout", cfg.Observability.Tracing.Exporter)
}

func TestPrintJSONIndents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}
