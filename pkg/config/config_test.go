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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cpeof.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "from-env")
	path := writeConfig(t, `
server:
  port: 9090
  session_ttl: 10m
  max_upload_bytes: 1048576
llm:
  api_key: ${TEST_GEMINI_KEY}
  model: ${TEST_MODEL:-gemini-2.5-pro}
  temperature: 0.2
  timeout: 45s
image:
  max_dimension: 1024
logger:
  level: debug
  format: verbose
observability:
  metrics:
    enabled: true
`)

	cfg, loader, err := LoadConfigFile(context.Background(), path)
	require.NoError(t, err)
	defer loader.Close()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, 10*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.InDelta(t, 0.2, cfg.LLM.GetTemperature(), 1e-9)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 1024, cfg.Image.MaxDimension)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, LogFormatVerbose, cfg.Logger.Format)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Observability.Metrics.Endpoint)
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv(EnvGeminiAPIKey, "")
	t.Setenv(EnvAPIKey, "")

	cfg, err := Parse([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultSessionTTL, cfg.Server.SessionTTL)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Server.MaxUploadBytes)
	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	assert.InDelta(t, DefaultTemperature, cfg.LLM.GetTemperature(), 1e-9)
	assert.Empty(t, cfg.LLM.APIKey, "a missing key is not a load error")
	assert.Zero(t, cfg.Image.MaxDimension)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestParse_APIKeyFallback(t *testing.T) {
	t.Setenv(EnvGeminiAPIKey, "")
	t.Setenv(EnvAPIKey, "legacy")
	cfg, err := Parse([]byte("llm: {}"))
	require.NoError(t, err)
	assert.Equal(t, "legacy", cfg.LLM.APIKey)

	t.Setenv(EnvGeminiAPIKey, "primary")
	cfg, err = Parse([]byte("llm: {}"))
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.LLM.APIKey)

	cfg, err = Parse([]byte("llm:\n  api_key: explicit\n"))
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestParse_JSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"server": {"port": 7000}}`))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "syntax", body: "server: [unclosed", want: "parse"},
		{name: "unknown field", body: "server:\n  prot: 80\n", want: "prot"},
		{name: "bad port", body: "server:\n  port: 70000\n", want: "invalid port"},
		{name: "bad temperature", body: "llm:\n  temperature: 3\n", want: "temperature"},
		{name: "bad level", body: "logger:\n  level: loud\n", want: "log level"},
		{name: "bad format", body: "logger:\n  format: xml\n", want: "log format"},
		{name: "negative dimension", body: "image:\n  max_dimension: -1\n", want: "max_dimension"},
		{name: "bad exporter", body: "observability:\n  tracing:\n    enabled: true\n    exporter: zipkin\n", want: "exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigFile_Missing(t *testing.T) {
	_, _, err := LoadConfigFile(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CPEOF_SET", "value")
	t.Setenv("CPEOF_EMPTY", "")

	tests := map[string]string{
		"plain":                      "plain",
		"$CPEOF_SET":                 "value",
		"${CPEOF_SET}":               "value",
		"${CPEOF_EMPTY:-fallback}":   "fallback",
		"${CPEOF_MISSING:-fallback}": "fallback",
		"${CPEOF_SET:-fallback}":     "value",
		"${CPEOF_MISSING}":           "",
		"pre-${CPEOF_SET}-post":      "pre-value-post",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExpandEnv(in), "input %q", in)
	}
}

func TestCreateZeroConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PORT", "3000")

	cfg := CreateZeroConfig(ZeroConfig{
		APIKey:      "k",
		Temperature: 0.9,
		LogFormat:   LogFormatJSON,
	})
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "k", cfg.LLM.APIKey)
	assert.InDelta(t, 0.9, cfg.LLM.GetTemperature(), 1e-9)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logger.Format)
	assert.Equal(t, 3000, cfg.Server.Port)

	cfg = CreateZeroConfig(ZeroConfig{Port: 8181, LogLevel: "error"})
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "error", cfg.Logger.Level)
}

func TestLoaderWatch(t *testing.T) {
	path := writeConfig(t, "llm:\n  model: gemini-2.5-flash\n")

	reloaded := make(chan *Config, 4)
	_, loader, err := LoadConfigFile(context.Background(), path, WithOnChange(func(c *Config) {
		reloaded <- c
	}))
	require.NoError(t, err)
	defer loader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loader.Watch(ctx) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: gemini-2.5-pro\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
