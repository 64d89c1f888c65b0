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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kadirpekel/cpeof/pkg/config"
)

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	Path        string `arg:"" name:"config" help:"Configuration file path." type:"path" placeholder:"PATH"`
	Format      string `short:"f" help:"Output format: compact, json." default:"compact" enum:"compact,json"`
	PrintConfig bool   `short:"p" name:"print-config" help:"Print the expanded configuration (defaults applied, env vars resolved)."`
}

type validationResult struct {
	Valid  bool           `json:"valid"`
	File   string         `json:"file"`
	Error  string         `json:"error,omitempty"`
	Config *config.Config `json:"config,omitempty"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	cfg, loader, err := config.LoadConfigFile(context.Background(), c.Path)
	if loader != nil {
		defer loader.Close()
	}
	if cfg != nil {
		cfg.LLM.APIKey = redact(cfg.LLM.APIKey)
	}

	if c.Format == "json" {
		res := validationResult{Valid: err == nil, File: c.Path}
		if err != nil {
			res.Error = err.Error()
		} else if c.PrintConfig {
			res.Config = cfg
		}
		if perr := printJSON(os.Stdout, res); perr != nil {
			return perr
		}
		if err != nil {
			return fmt.Errorf("validation failed")
		}
		return nil
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", c.Path, err)
		return fmt.Errorf("validation failed")
	}
	if c.PrintConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}
	fmt.Printf("%s: valid\n", c.Path)
	return nil
}

func redact(secret string) string {
	if len(secret) <= 4 {
		if secret == "" {
			return ""
		}
		return "****"
	}
	return secret[:4] + "****"
}
