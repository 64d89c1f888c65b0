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
	"context"
	"log/slog"

	"github.com/kadirpekel/cpeof/pkg/analysis"
	"github.com/kadirpekel/cpeof/pkg/config"
)

// loadConfig reads path, or builds a zero config from flags when path is
// empty. The loader is nil in zero-config mode.
func loadConfig(ctx context.Context, path string, zero config.ZeroConfig, opts ...config.LoaderOption) (*config.Config, *config.Loader, error) {
	if path == "" {
		slog.Debug("No config file, using flags and environment")
		cfg := config.CreateZeroConfig(zero)
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		return cfg, nil, nil
	}
	return config.LoadConfigFile(ctx, path, opts...)
}

func analysisConfig(cfg *config.Config) analysis.Config {
	return analysis.Config{
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		BaseURL:           cfg.LLM.BaseURL,
		Temperature:       cfg.LLM.GetTemperature(),
		Timeout:           cfg.LLM.Timeout,
		MaxImageDimension: cfg.Image.MaxDimension,
	}
}
