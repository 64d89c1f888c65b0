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
	"fmt"
	"time"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.4
)

// LLMConfig configures the Gemini model used for analysis.
type LLMConfig struct {
	// APIKey for the Gemini API. Supports ${VAR} expansion.
	// Default: $GEMINI_API_KEY, then $API_KEY
	APIKey string `yaml:"api_key,omitempty"`

	// Model name.
	// Default: gemini-2.5-flash
	Model string `yaml:"model,omitempty"`

	// BaseURL overrides the API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// Temperature for generation (0.0 - 2.0).
	// Default: 0.4
	Temperature *float64 `yaml:"temperature,omitempty"`

	// Timeout bounds one analysis. Zero leaves it to the transport.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SetDefaults applies defaults to LLMConfig. A missing API key is not an
// error here; analysis requests fail instead.
func (c *LLMConfig) SetDefaults() {
	if c.APIKey == "" {
		c.APIKey = APIKeyFromEnv()
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == nil {
		temp := DefaultTemperature
		c.Temperature = &temp
	}
}

// Validate checks LLMConfig.
func (c *LLMConfig) Validate() error {
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", *c.Temperature)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// GetTemperature returns the temperature or the default.
func (c *LLMConfig) GetTemperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}
