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
	"os"
	"strconv"
	"time"
)

// ZeroConfig holds the settings available without a config file.
type ZeroConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	Temperature  float64
	Timeout      time.Duration
	Host         string
	Port         int
	MaxDimension int

	LogLevel  string
	LogFile   string
	LogFormat string

	MetricsEnabled bool
	TracingEnabled bool
	TracingExport  string
}

// CreateZeroConfig builds a Config from flags and the environment.
// Flag values win; LOG_LEVEL, LOG_FILE, LOG_FORMAT and PORT fill gaps.
func CreateZeroConfig(z ZeroConfig) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host: z.Host,
			Port: z.Port,
		},
		LLM: LLMConfig{
			APIKey:  z.APIKey,
			Model:   z.Model,
			BaseURL: z.BaseURL,
			Timeout: z.Timeout,
		},
		Image: ImageConfig{MaxDimension: z.MaxDimension},
		Logger: LoggerConfig{
			Level:  firstNonEmpty(z.LogLevel, os.Getenv("LOG_LEVEL")),
			File:   firstNonEmpty(z.LogFile, os.Getenv("LOG_FILE")),
			Format: firstNonEmpty(z.LogFormat, os.Getenv("LOG_FORMAT")),
		},
	}
	if z.Temperature > 0 {
		temp := z.Temperature
		cfg.LLM.Temperature = &temp
	}
	if cfg.Server.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
			cfg.Server.Port = p
		}
	}
	cfg.Observability.Metrics.Enabled = z.MetricsEnabled
	cfg.Observability.Tracing.Enabled = z.TracingEnabled
	cfg.Observability.Tracing.Exporter = z.TracingExport

	cfg.SetDefaults()
	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
