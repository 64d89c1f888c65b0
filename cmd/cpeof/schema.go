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
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/kadirpekel/cpeof/pkg/config"
	"github.com/kadirpekel/cpeof/pkg/orchestration"
)

// SchemaCmd prints the response schema sent to the model, or the schema of
// the configuration file.
type SchemaCmd struct {
	Kind    string `arg:"" optional:"" help:"Schema to print: response or config." default:"response" enum:"response,config"`
	Compact bool   `help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	var doc any
	switch c.Kind {
	case "config":
		doc = configSchema()
	default:
		raw, err := orchestration.SchemaJSON()
		if err != nil {
			return err
		}
		doc = json.RawMessage(raw)
	}

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}

func configSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}
	schema := reflector.Reflect(&config.Config{})
	schema.Version = "http://json-schema.org/draft-07/schema#"
	schema.Title = "cpeof configuration"
	schema.Examples = []any{
		map[string]any{
			"llm": map[string]any{
				"model":   config.DefaultModel,
				"api_key": "${GEMINI_API_KEY}",
			},
			"server": map[string]any{"port": config.DefaultPort},
		},
	}
	return schema
}
