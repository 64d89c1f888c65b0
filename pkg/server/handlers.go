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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/kadirpekel/cpeof/pkg/analysis"
	"github.com/kadirpekel/cpeof/pkg/media"
	"github.com/kadirpekel/cpeof/pkg/orchestration"
	"github.com/kadirpekel/cpeof/pkg/workflow"
)

const (
	formField         = "image"
	maxMultipartInMem = 8 << 20
	maxStateWait      = 60 * time.Second
	msgTooLarge       = "The image is too large."
	msgNoFile         = "Please choose an image to upload."
	msgFinished       = "This simulation has finished. Start a new simulation first."
)

var errNoFile = errors.New("no image in request")

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *HTTPServer) handleSchema(w http.ResponseWriter, r *http.Request) {
	data, err := orchestration.SchemaJSON()
	if err != nil {
		s.logger.Error("Failed to build schema", "error", err)
		http.Error(w, "Failed to generate schema", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

func (s *HTTPServer) handlePage(w http.ResponseWriter, r *http.Request) {
	view := newPageView(stateFrom(r.Context()), takeFlash(w, r), s.version)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := renderPage(w, view); err != nil {
		s.logger.Error("Failed to render page", "error", err)
	}
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	data, mimeType, err := s.readImage(w, r)
	if err == nil {
		_, err = sess.Controller().SubmitImage(r.Context(), data, mimeType)
	}
	if err != nil {
		setFlash(w, uploadMessage(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *HTTPServer) handleReset(w http.ResponseWriter, r *http.Request) {
	resetSession(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *HTTPServer) handleState(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	if raw := r.URL.Query().Get("wait"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid wait duration %q", raw))
			return
		}
		d = min(d, maxStateWait)

		if sess != nil {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			// timing out just returns the current state
			_, _ = sess.Controller().Await(ctx)
		}
	}

	writeJSON(w, http.StatusOK, stateFrom(r.Context()))
}

func (s *HTTPServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	data, mimeType, err := s.readImage(w, r)
	if err == nil {
		var gen uint64
		gen, err = sess.Controller().SubmitImage(r.Context(), data, mimeType)
		if err == nil {
			writeJSON(w, http.StatusAccepted, map[string]any{
				"generation": gen,
				"sessionId":  sess.ID(),
			})
			return
		}
	}

	status := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, workflow.ErrInvalidTransition):
		status = http.StatusConflict
	}
	writeError(w, status, uploadMessage(err))
}

func (s *HTTPServer) handleAPIReset(w http.ResponseWriter, r *http.Request) {
	resetSession(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// readImage extracts the upload from a multipart form field or, for
// non-multipart requests, from the raw body.
func (s *HTTPServer) readImage(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", err
		}
		if len(data) == 0 {
			return nil, "", errNoFile
		}
		return data, mediaType, nil
	}

	if err := r.ParseMultipartForm(maxMultipartInMem); err != nil {
		return nil, "", err
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(formField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", errNoFile
		}
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errNoFile
	}
	return data, header.Header.Get("Content-Type"), nil
}

func uploadMessage(err error) string {
	var (
		tooLarge *http.MaxBytesError
		invalid  *media.InvalidInputError
	)
	switch {
	case errors.As(err, &tooLarge):
		return msgTooLarge
	case errors.Is(err, workflow.ErrInvalidTransition):
		return msgFinished
	case errors.As(err, &invalid):
		return analysis.UserMessage(err)
	default:
		return msgNoFile
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusLabel is the indicator text for in-flight states.
func statusLabel(s workflow.Status) string {
	switch s {
	case workflow.StatusUploading:
		return "Uploading Context..."
	case workflow.StatusAnalyzing:
		return "Orchestrating Workflow..."
	default:
		return ""
	}
}
