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

package orchestration

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

const schemaDraft = "http://json-schema.org/draft-07/schema#"

var (
	schemaOnce     sync.Once
	schemaDoc      *jsonschema.Schema
	schemaJSON     []byte
	schemaCompiled *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() {
	schemaOnce.Do(func() {
		reflector := &jsonschema.Reflector{
			AllowAdditionalProperties: true,
			DoNotReference:            true,
			Anonymous:                 true,
		}
		schemaDoc = reflector.Reflect(&AgentResponse{})
		schemaDoc.Version = schemaDraft
		schemaDoc.Title = "AgentResponse"
		schemaDoc.Description = "Orchestration plan and simulated execution results"

		schemaJSON, schemaErr = json.Marshal(schemaDoc)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to marshal response schema: %w", schemaErr)
			return
		}

		schemaCompiled, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile response schema: %w", schemaErr)
		}
	})
}

// Schema returns the JSON schema every AgentResponse must satisfy.
func Schema() (*jsonschema.Schema, error) {
	loadSchema()
	return schemaDoc, schemaErr
}

// SchemaJSON returns the response schema as JSON.
func SchemaJSON() ([]byte, error) {
	loadSchema()
	return schemaJSON, schemaErr
}

// SchemaMap returns the response schema as a generic map, the form model
// providers translate into their own structured-output types.
func SchemaMap() (map[string]any, error) {
	data, err := SchemaJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode response schema: %w", err)
	}
	return m, nil
}

// FieldError is a single schema violation.
type FieldError struct {
	Field       string
	Description string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// SchemaError reports that a document does not match the response schema.
type SchemaError struct {
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Error())
	}
	return "response does not match schema: " + strings.Join(parts, "; ")
}

// Validate checks raw JSON against the response schema.
// It returns *SchemaError when the document is well-formed but invalid.
func Validate(data []byte) error {
	loadSchema()
	if schemaErr != nil {
		return schemaErr
	}

	result, err := schemaCompiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	se := &SchemaError{}
	for _, re := range result.Errors() {
		se.Errors = append(se.Errors, FieldError{
			Field:       re.Field(),
			Description: re.Description(),
		})
	}
	return se
}
