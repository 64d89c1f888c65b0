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
	"errors"
	"fmt"
	"strings"
)

// ErrEmpty is returned by Decode when the reply carries no text.
var ErrEmpty = errors.New("empty response")

// SyntaxError reports a reply that is not parseable JSON.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("response is not valid JSON: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Decode parses and validates a textual reply from the analysis service.
//
// The requested output shape is only a hint to the service, so the reply is
// checked against the full schema before it is exposed. A markdown code
// fence around the JSON is tolerated.
func Decode(text string) (*AgentResponse, error) {
	body := stripCodeFence(strings.TrimSpace(text))
	if body == "" {
		return nil, ErrEmpty
	}

	data := []byte(body)
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &SyntaxError{Err: err}
	}

	if err := Validate(data); err != nil {
		return nil, err
	}

	var resp AgentResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &SyntaxError{Err: err}
	}
	return &resp, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		// drop the language tag line
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
