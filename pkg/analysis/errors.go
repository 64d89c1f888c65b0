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

package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/kadirpekel/cpeof/pkg/media"
)

// Messages shown to users. Raw causes never reach the UI.
const (
	msgInvalidInput      = "Please upload an image file."
	msgMissingCredential = "API Key is missing. Please set GEMINI_API_KEY."
	msgMisconfigured     = "The analysis service is not configured correctly."
	msgEmptyResponse     = "No response from the analysis service."
	msgMalformed         = "The analysis service returned an unusable response."
	msgRequestFailed     = "Failed to process the orchestration request."
	msgCanceled          = "The analysis was cancelled."
	msgUnknown           = "Unknown error occurred"
)

// ReasonMissingCredential is the ConfigurationError reason for an absent API key.
const ReasonMissingCredential = "missing credential"

// ConfigurationError is returned when the client cannot be used as configured.
// No network I/O has happened when it is returned.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis client misconfigured: %s: %v", e.Reason, e.Err)
	}
	return "analysis client misconfigured: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// EmptyResponseError is returned when the service replied without text.
type EmptyResponseError struct {
	FinishReason string
}

func (e *EmptyResponseError) Error() string {
	if e.FinishReason != "" {
		return "empty response from analysis service (finish reason " + e.FinishReason + ")"
	}
	return "empty response from analysis service"
}

// MalformedResponseError is returned when the reply is not valid JSON or
// misses required fields.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from analysis service: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// AnalysisRequestError wraps a transport or service-side failure.
type AnalysisRequestError struct {
	Err error
}

func (e *AnalysisRequestError) Error() string {
	return fmt.Sprintf("analysis request failed: %v", e.Err)
}

func (e *AnalysisRequestError) Unwrap() error { return e.Err }

// UserMessage maps an analysis or intake error to a short message that is
// safe to show to users.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		invalid    *media.InvalidInputError
		configErr  *ConfigurationError
		emptyErr   *EmptyResponseError
		malformed  *MalformedResponseError
		requestErr *AnalysisRequestError
	)

	switch {
	case errors.As(err, &invalid):
		return msgInvalidInput
	case errors.As(err, &configErr):
		if configErr.Reason == ReasonMissingCredential {
			return msgMissingCredential
		}
		return msgMisconfigured
	case errors.As(err, &emptyErr):
		return msgEmptyResponse
	case errors.As(err, &malformed):
		return msgMalformed
	case errors.Is(err, context.Canceled):
		return msgCanceled
	case errors.As(err, &requestErr):
		return msgRequestFailed
	default:
		return msgUnknown
	}
}

// outcome labels an analysis result for metrics.
func outcome(err error) string {
	var (
		configErr *ConfigurationError
		emptyErr  *EmptyResponseError
		malformed *MalformedResponseError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &configErr):
		return "configuration_error"
	case errors.As(err, &emptyErr):
		return "empty_response"
	case errors.As(err, &malformed):
		return "malformed_response"
	default:
		return "request_error"
	}
}
