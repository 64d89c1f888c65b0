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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/kadirpekel/cpeof/pkg/analysis"
	"github.com/kadirpekel/cpeof/pkg/config"
	"github.com/kadirpekel/cpeof/pkg/workflow"
)

// AnalyzeCmd runs one image through the workflow and prints the result.
type AnalyzeCmd struct {
	Image string `arg:"" help:"Image file to analyze." type:"existingfile"`

	Model        string        `help:"Gemini model name."`
	APIKey       string        `name:"api-key" help:"Gemini API key (defaults to GEMINI_API_KEY, then API_KEY)."`
	BaseURL      string        `name:"base-url" help:"Custom API base URL."`
	MaxDimension int           `name:"max-dimension" help:"Downscale images larger than this before analysis (0 = off)."`
	Timeout      time.Duration `help:"Give up after this long." default:"2m"`
	Compact      bool          `help:"Compact JSON output (no indentation)."`
}

func (c *AnalyzeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	data, err := os.ReadFile(c.Image)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	cfg, loader, err := loadConfig(ctx, cli.Config, config.ZeroConfig{
		APIKey:       c.APIKey,
		Model:        c.Model,
		BaseURL:      c.BaseURL,
		MaxDimension: c.MaxDimension,
	})
	if err != nil {
		return err
	}
	if loader != nil {
		_ = loader.Close()
	}

	client := analysis.NewClient(analysisConfig(cfg))
	defer client.Close()

	ctrl := workflow.NewController(client)
	defer ctrl.Close()

	if _, err := ctrl.SubmitImage(ctx, data, ""); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	state, err := ctrl.Await(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("analysis did not finish within %s", c.Timeout)
		}
		return err
	}

	if state.Status == workflow.StatusError {
		return errors.New(state.ErrorMessage)
	}
	if c.Compact {
		return json.NewEncoder(os.Stdout).Encode(state.Response)
	}
	return printJSON(os.Stdout, state.Response)
}
