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

// Package config defines the cpeof configuration file.
//
// A configuration is read from YAML (or JSON), has ${VAR} references
// expanded from the environment, and is decoded into Config. Every section
// has SetDefaults and Validate; Loader runs both after decoding.
//
//	server:
//	  port: 8080
//	  session_ttl: 30m
//	llm:
//	  api_key: ${GEMINI_API_KEY}
//	  model: gemini-2.5-flash
//	image:
//	  max_dimension: 2048
package config

import (
	"fmt"

	"github.com/kadirpekel/cpeof/pkg/observability"
)

// Config is the root configuration.
type Config struct {
	// Version of the configuration format.
	Version string `yaml:"version,omitempty"`

	// Server configures the HTTP server and sessions.
	Server ServerConfig `yaml:"server,omitempty"`

	// LLM configures the analysis model.
	LLM LLMConfig `yaml:"llm,omitempty"`

	// Image configures preprocessing of uploads.
	Image ImageConfig `yaml:"image,omitempty"`

	// Logger configures logging.
	Logger LoggerConfig `yaml:"logger,omitempty"`

	// Observability configures tracing and metrics.
	Observability observability.Config `yaml:"observability,omitempty"`
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	c.Server.SetDefaults()
	c.LLM.SetDefaults()
	c.Image.SetDefaults()
	c.Logger.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Image.Validate(); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

// ImageConfig configures upload preprocessing.
type ImageConfig struct {
	// MaxDimension downscales images whose longer side exceeds it before
	// they are sent for analysis.
	// Default: 0 (send as uploaded)
	MaxDimension int `yaml:"max_dimension,omitempty"`
}

// SetDefaults is a no-op; the zero value sends images unchanged.
func (c *ImageConfig) SetDefaults() {}

// Validate checks ImageConfig.
func (c *ImageConfig) Validate() error {
	if c.MaxDimension < 0 {
		return fmt.Errorf("max_dimension must be >= 0, got %d", c.MaxDimension)
	}
	return nil
}
